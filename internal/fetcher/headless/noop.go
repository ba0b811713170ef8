package headless

import (
	"context"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

// Noop implements standings.Headless but always reports that headless
// browsing is unavailable in the current build.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Render returns ErrDisabled since this is a stub implementation.
func (Noop) Render(_ context.Context, _ string) (standings.Page, error) {
	return standings.Page{}, ErrDisabled
}

// Close is a no-op.
func (Noop) Close(_ context.Context) error {
	return nil
}
