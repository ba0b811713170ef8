package discord

import (
	"testing"
	"time"
)

func TestCooldownMapAllow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 14, 18, 0, 0, 0, time.UTC)
	c := NewCooldownMap(30 * time.Second)
	c.now = func() time.Time { return now }

	allowed, _ := c.Allow("user-1")
	if !allowed {
		t.Fatal("first attempt should be allowed")
	}

	now = now.Add(10 * time.Second)
	allowed, remaining := c.Allow("user-1")
	if allowed {
		t.Fatal("second attempt inside the window should be denied")
	}
	if remaining != 20*time.Second {
		t.Fatalf("expected 20s remaining, got %v", remaining)
	}

	// A different user has their own window.
	if allowed, _ := c.Allow("user-2"); !allowed {
		t.Fatal("other users should not share cooldowns")
	}

	now = now.Add(25 * time.Second)
	if allowed, _ := c.Allow("user-1"); !allowed {
		t.Fatal("attempt after the window should be allowed")
	}
}

func TestCooldownMapPrunes(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	c := NewCooldownMap(time.Second)
	c.now = func() time.Time { return now }

	for _, id := range []string{"a", "b", "c"} {
		c.Allow(id)
	}
	now = now.Add(time.Minute)
	c.Allow("d")

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.last) != 1 {
		t.Fatalf("expected expired entries pruned, map has %d entries", len(c.last))
	}
}

func TestCooldownMapDisabled(t *testing.T) {
	t.Parallel()

	c := NewCooldownMap(0)
	for i := 0; i < 3; i++ {
		if allowed, _ := c.Allow("user-1"); !allowed {
			t.Fatal("zero window must disable cooldowns")
		}
	}
}
