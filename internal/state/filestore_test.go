package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	rec := standings.Record{
		League:     "gt3-cup",
		ChannelID:  "chan-1",
		MessageID:  "msg-1",
		Digest:     "abc123",
		RenderedAt: time.Date(2026, time.March, 14, 18, 0, 0, 0, time.UTC),
		CheckedAt:  time.Date(2026, time.March, 14, 18, 5, 0, 0, time.UTC),
	}
	if err := store.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := store.Load("gt3-cup")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("expected record to be found")
	}
	if got != rec {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, rec)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, found, err := store.Load("never-saved")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatal("expected found=false for a missing record")
	}
}

func TestFileStoreDeleteTolerant(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Delete("never-saved"); err != nil {
		t.Fatalf("delete of missing record should not error: %v", err)
	}

	if err := store.Save(standings.Record{League: "gt3-cup"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete("gt3-cup"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := store.Load("gt3-cup"); found {
		t.Fatal("expected record gone after delete")
	}
}

func TestFileStoreSanitizesSlug(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Save(standings.Record{League: "../../etc/passwd"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file inside the store dir, got %d", len(entries))
	}
	if filepath.Ext(entries[0].Name()) != ".json" {
		t.Fatalf("unexpected file %q", entries[0].Name())
	}
}

func TestFileStoreRejectsEmptyLeague(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, _, err := store.Load("  "); err == nil {
		t.Fatal("expected error for blank league")
	}
	if err := store.Save(standings.Record{}); err == nil {
		t.Fatal("expected error for record without league")
	}
}

func TestNewFileStoreRequiresDirectory(t *testing.T) {
	t.Parallel()

	if _, err := NewFileStore(""); err == nil {
		t.Fatal("expected error for empty dir")
	}

	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := NewFileStore(file); err == nil {
		t.Fatal("expected error when path is a file")
	}
}
