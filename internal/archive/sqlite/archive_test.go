package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("close archive: %v", err)
		}
	})
	return a
}

func snapshotAt(id string, taken time.Time) standings.Snapshot {
	return standings.Snapshot{
		ID:      id,
		League:  "gt3-cup",
		Digest:  "digest-" + id,
		TakenAt: taken,
		Table: standings.Table{
			League: "gt3-cup",
			Title:  "GT3 Cup",
			Rows:   []standings.Row{{Position: 1, Driver: "A. Senna", Points: "145"}},
		},
	}
}

func TestArchiveAppendAndRecent(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		snap := snapshotAt(fmt.Sprintf("snap-%d", i), base.Add(time.Duration(i)*time.Hour))
		if err := a.Append(ctx, snap); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	snaps, err := a.Recent(ctx, "gt3-cup", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].ID != "snap-2" || snaps[1].ID != "snap-1" {
		t.Fatalf("expected newest first, got %s then %s", snaps[0].ID, snaps[1].ID)
	}
	if !snaps[0].TakenAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("taken_at round trip mismatch: %v", snaps[0].TakenAt)
	}
	if len(snaps[0].Table.Rows) != 1 || snaps[0].Table.Rows[0].Driver != "A. Senna" {
		t.Fatalf("table payload mismatch: %+v", snaps[0].Table)
	}
}

func TestArchiveRecentScopedByLeague(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mine := snapshotAt("mine", now)
	other := snapshotAt("other", now)
	other.League = "gt4-cup"
	other.Table.League = "gt4-cup"

	if err := a.Append(ctx, mine); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := a.Append(ctx, other); err != nil {
		t.Fatalf("append: %v", err)
	}

	snaps, err := a.Recent(ctx, "gt3-cup", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(snaps) != 1 || snaps[0].ID != "mine" {
		t.Fatalf("expected only gt3-cup snapshots, got %+v", snaps)
	}
}

func TestArchiveRecentEmpty(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)
	snaps, err := a.Recent(context.Background(), "never-seen", 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(snaps) != 0 {
		t.Fatalf("expected no snapshots, got %d", len(snaps))
	}
}

func TestArchiveDuplicateIDRejected(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)
	ctx := context.Background()
	snap := snapshotAt("snap-1", time.Now().UTC())

	if err := a.Append(ctx, snap); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := a.Append(ctx, snap); err == nil {
		t.Fatal("expected primary key violation for duplicate snapshot id")
	}
}
