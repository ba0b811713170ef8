package scheduler

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCronRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := New(zap.NewNop())
	if err := s.Cron("not a cron spec", func() {}); err == nil {
		t.Fatal("expected error for invalid spec")
	}
	if err := s.Cron("*/5 * * * *", func() {}); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
}

func TestStopWaitsForCallbacks(t *testing.T) {
	t.Parallel()

	s := New(zap.NewNop())
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestFields(t *testing.T) {
	t.Parallel()

	got := fields([]interface{}{"league", "gt3-cup", "rows", 12})
	if len(got) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(got))
	}
	if got[0].Key != "league" || got[1].Key != "rows" {
		t.Fatalf("unexpected keys %q %q", got[0].Key, got[1].Key)
	}

	// Odd trailing value is dropped rather than panicking.
	if got := fields([]interface{}{"only-key"}); len(got) != 0 {
		t.Fatalf("expected dangling key dropped, got %d fields", len(got))
	}
}
