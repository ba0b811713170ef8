// Package sqlite implements the snapshot archive on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id        TEXT PRIMARY KEY,
	league    TEXT NOT NULL,
	digest    TEXT NOT NULL,
	taken_at  TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	rows_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_league_taken
	ON snapshots (league, taken_at DESC);
`

// Archive is an append-only snapshot history.
type Archive struct {
	db *sql.DB
}

// Open opens (and migrates) the archive database at path.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// The archive is written by a single process; one connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the database handle.
func (a *Archive) Close() error {
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close archive db: %w", err)
	}
	return nil
}

// Append stores one snapshot.
func (a *Archive) Append(ctx context.Context, snap standings.Snapshot) error {
	rows, err := json.Marshal(snap.Table)
	if err != nil {
		return fmt.Errorf("marshal snapshot table: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, league, digest, taken_at, row_count, rows_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.League, snap.Digest, snap.TakenAt.UTC().Format(timeLayout),
		len(snap.Table.Rows), string(rows),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Recent returns the newest snapshots for a league, most recent first.
func (a *Archive) Recent(ctx context.Context, league string, limit int) ([]standings.Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, league, digest, taken_at, rows_json
		 FROM snapshots WHERE league = ?
		 ORDER BY taken_at DESC LIMIT ?`,
		league, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots for %s: %w", league, err)
	}
	defer rows.Close()

	var snaps []standings.Snapshot
	for rows.Next() {
		var snap standings.Snapshot
		var takenAt, rowsJSON string
		if err := rows.Scan(&snap.ID, &snap.League, &snap.Digest, &takenAt, &rowsJSON); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(rowsJSON), &snap.Table); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot %s: %w", snap.ID, err)
		}
		snap.TakenAt, err = parseTime(takenAt)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot time %s: %w", snap.ID, err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}
