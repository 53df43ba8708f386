package store

import (
	"context"
	"sync"

	"parking_twin/internal/grid"
)

// MemoryStore implements Store in memory. Used in tests and as a stand-in
// when durability is disabled.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]grid.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recs: make(map[string]grid.Record),
	}
}

func (s *MemoryStore) LoadAll(ctx context.Context) ([]grid.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]grid.Record, 0, len(s.recs))
	for _, rec := range s.recs {
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, rec grid.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.ID] = rec
	return nil
}

func (s *MemoryStore) UpsertMany(ctx context.Context, recs []grid.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.recs[rec.ID] = rec
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Len reports how many records have been written, for tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}
