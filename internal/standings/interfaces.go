package standings

import (
	"context"
	"time"
)

// Fetcher retrieves a league page over plain HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Headless renders a league page with JavaScript enabled and returns the
// resulting DOM snapshot.
type Headless interface {
	Render(ctx context.Context, url string) (Page, error)
	Close(ctx context.Context) error
}

// Detector decides whether a fetched page needs a headless re-fetch.
type Detector interface {
	NeedsJS(ctx context.Context, page Page) bool
}

// Parser extracts a normalized standings table from a page.
type Parser interface {
	Parse(page Page, league League) (Table, error)
}

// Renderer draws a standings table into PNG bytes. The context bounds badge
// image downloads; drawing itself never blocks on it.
type Renderer interface {
	Render(ctx context.Context, table Table) ([]byte, error)
}

// Notifier owns the Discord side: upserting the per-league board message and
// tearing it down.
type Notifier interface {
	Upsert(ctx context.Context, rec Record, png []byte, table Table) (Record, error)
	Remove(ctx context.Context, rec Record) error
}

// StateStore persists per-league records between runs.
type StateStore interface {
	Load(league string) (Record, bool, error)
	Save(rec Record) error
	Delete(league string) error
}

// Archive keeps the snapshot history.
type Archive interface {
	Append(ctx context.Context, snap Snapshot) error
	Recent(ctx context.Context, league string, limit int) ([]Snapshot, error)
	Close() error
}

// Hasher computes digests for change detection.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// RetryPolicy governs fetch retries.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces snapshot IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
