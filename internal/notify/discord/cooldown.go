package discord

import (
	"sync"
	"time"
)

// CooldownMap rate limits interactive refreshes per user. Expired entries
// are pruned on access, so the map never grows beyond recently active users.
type CooldownMap struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

// NewCooldownMap builds a map with the given window.
func NewCooldownMap(window time.Duration) *CooldownMap {
	return &CooldownMap{
		window: window,
		last:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether the user may trigger a refresh now; when denied it
// returns the remaining wait. Allowing records the attempt.
func (c *CooldownMap) Allow(userID string) (bool, time.Duration) {
	if c.window <= 0 {
		return true, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.prune(now)

	if last, ok := c.last[userID]; ok {
		if remaining := c.window - now.Sub(last); remaining > 0 {
			return false, remaining
		}
	}
	c.last[userID] = now
	return true, 0
}

func (c *CooldownMap) prune(now time.Time) {
	for id, last := range c.last {
		if now.Sub(last) >= c.window {
			delete(c.last, id)
		}
	}
}
