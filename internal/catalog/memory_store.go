package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests for the planner,
// executor, and coordinator, which are specified against the Store
// contract rather than any particular backing engine.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*MediaRecord // keyed by path
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*MediaRecord)}
}

func (s *MemoryStore) FindByPath(_ context.Context, path string) (*MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[path]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) AllPaths(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.records))
	for path := range s.records {
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *MemoryStore) SaveBatch(_ context.Context, records []*MediaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		s.records[rec.Path] = rec.Clone()
	}
	return nil
}

func (s *MemoryStore) DeleteBatch(_ context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range paths {
		delete(s.records, path)
	}
	return nil
}

func (s *MemoryStore) DeleteStaleGeneration(_ context.Context, currentGeneration int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for path, rec := range s.records {
		if rec.scanGeneration < currentGeneration {
			delete(s.records, path)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// SetGeneration is a test helper that stamps every currently stored
// record with generation, modeling records touched by an earlier scan.
func (s *MemoryStore) SetGeneration(generation int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		rec.scanGeneration = generation
	}
}
