package store

import (
	"context"
	"sync"
)

// InMemoryStore keeps consent flags in memory. Used by tests and by local
// development runs without a Redis URL; values do not survive a restart.
type InMemoryStore struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewInMemory constructs an empty in-memory flag store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{flags: make(map[string]bool)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.flags[key]
	if !ok {
		return false, ErrNotFound
	}
	return value, nil
}

func (s *InMemoryStore) Set(_ context.Context, key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = value
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, key)
	return nil
}
