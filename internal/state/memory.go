package state

import (
	"sync"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

// MemoryStore is an in-memory StateStore for tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]standings.Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]standings.Record)}
}

// Load returns the record for a league.
func (s *MemoryStore) Load(league string) (standings.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[league]
	return rec, ok, nil
}

// Save stores the record.
func (s *MemoryStore) Save(rec standings.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.League] = rec
	return nil
}

// Delete removes the record.
func (s *MemoryStore) Delete(league string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, league)
	return nil
}
