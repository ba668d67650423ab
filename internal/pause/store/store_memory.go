package store

import (
	"context"
	"sync"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	paused map[string]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{paused: make(map[string]bool)}
}

func (s *InMemoryStore) SetPaused(_ context.Context, module string, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if paused {
		s.paused[module] = true
	} else {
		delete(s.paused, module)
	}
	return nil
}

func (s *InMemoryStore) IsPaused(_ context.Context, module string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused[module], nil
}
