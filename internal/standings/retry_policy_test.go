package standings

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string   { return "net error" }
func (e timeoutErr) Timeout() bool   { return e.timeout }
func (e timeoutErr) Temporary() bool { return e.timeout }

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy(3, 500*time.Millisecond, 8*time.Second)

	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{name: "nil error", err: nil, attempt: 1, want: false},
		{name: "generic error retries", err: errors.New("boom"), attempt: 1, want: true},
		{name: "attempt cap reached", err: errors.New("boom"), attempt: 3, want: false},
		{name: "context canceled is terminal", err: context.Canceled, attempt: 1, want: false},
		{name: "deadline exceeded is terminal", err: context.DeadlineExceeded, attempt: 1, want: false},
		{name: "net timeout retries", err: timeoutErr{timeout: true}, attempt: 1, want: true},
		{name: "net non-timeout does not", err: timeoutErr{timeout: false}, attempt: 1, want: false},
		{name: "marker miss retries", err: fmt.Errorf("validate: %w", ErrMarkerMissing), attempt: 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ShouldRetry(tt.err, tt.attempt); got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestPolicyUsesConfiguredAttemptCap(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy(5, time.Millisecond, time.Second)
	if !p.ShouldRetry(errors.New("boom"), 4) {
		t.Fatal("attempt 4 should retry under a cap of 5")
	}
	if p.ShouldRetry(errors.New("boom"), 5) {
		t.Fatal("attempt 5 should be terminal under a cap of 5")
	}
}

func TestPolicyDefaultsOnZeroValues(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy(0, 0, 0)
	if p.maxAttempts != 3 || p.baseDelay != 500*time.Millisecond || p.maxDelay != 8*time.Second {
		t.Fatalf("unexpected defaults: %d %v %v", p.maxAttempts, p.baseDelay, p.maxDelay)
	}
}

func TestBackoffBounds(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy(3, 500*time.Millisecond, 8*time.Second)

	for attempt := 0; attempt < 8; attempt++ {
		delay := p.Backoff(attempt)
		if delay <= 0 {
			t.Fatalf("attempt %d: non-positive backoff %v", attempt, delay)
		}
		if delay > 8*time.Second {
			t.Fatalf("attempt %d: backoff %v exceeds cap", attempt, delay)
		}
	}
}
