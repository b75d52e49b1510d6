package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryDirectoryStore is an in-process DirectoryStore for tests.
type MemoryDirectoryStore struct {
	mu   sync.RWMutex
	dirs map[string]*Directory
}

func NewMemoryDirectoryStore() *MemoryDirectoryStore {
	return &MemoryDirectoryStore{dirs: make(map[string]*Directory)}
}

func (s *MemoryDirectoryStore) Upsert(_ context.Context, dir *Directory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir.ID == "" {
		dir.ID = uuid.NewString()
	}
	copied := *dir
	s.dirs[dir.Path] = &copied
	return nil
}

func (s *MemoryDirectoryStore) FindByPath(_ context.Context, path string) (*Directory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dir, ok := s.dirs[path]
	if !ok {
		return nil, nil
	}
	copied := *dir
	return &copied, nil
}
