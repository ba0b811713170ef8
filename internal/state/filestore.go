// Package state persists per-league records between runs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FileStore keeps one JSON file per league under a base directory.
type FileStore struct {
	baseDir string
}

// NewFileStore validates the directory and returns a store.
func NewFileStore(baseDir string) (*FileStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("state directory is required")
	}

	info, err := os.Stat(baseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat state directory: %w", err)
		}
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create state directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("state path is not a directory")
	}

	// Fail at startup rather than on the first save.
	testFile := filepath.Join(baseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("state directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("clean up writable test file: %w", err)
	}

	return &FileStore{baseDir: baseDir}, nil
}

// Load reads the record for a league; found is false when none exists.
func (s *FileStore) Load(league string) (standings.Record, bool, error) {
	path, err := s.recordPath(league)
	if err != nil {
		return standings.Record{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return standings.Record{}, false, nil
		}
		return standings.Record{}, false, fmt.Errorf("read record %s: %w", path, err)
	}
	var rec standings.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return standings.Record{}, false, fmt.Errorf("unmarshal record %s: %w", path, err)
	}
	return rec, true, nil
}

// Save writes the record atomically via a temp file rename.
func (s *FileStore) Save(rec standings.Record) error {
	path, err := s.recordPath(rec.League)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write record %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename record %s: %w", path, err)
	}
	return nil
}

// Delete removes the record for a league; a missing record is not an error.
func (s *FileStore) Delete(league string) error {
	path, err := s.recordPath(league)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete record %s: %w", path, err)
	}
	return nil
}

// recordPath maps a league slug to its JSON file, rejecting slugs that would
// escape the base directory.
func (s *FileStore) recordPath(league string) (string, error) {
	if strings.TrimSpace(league) == "" {
		return "", fmt.Errorf("league is required")
	}
	name := invalidFilenameChars.ReplaceAllString(league, "_")
	full := filepath.Join(s.baseDir, name+".json")

	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(full), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected for league %q", league)
	}
	return full, nil
}
