package auth

import (
	"context"
	"sync"
)

// MemoryStore implements Store using in-memory storage
type MemoryStore struct {
	mu    sync.RWMutex
	creds *Credentials
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory credential store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.Load
func (s *MemoryStore) Load(_ context.Context) (*Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.creds == nil {
		return nil, ErrNoCredentials
	}
	c := *s.creds
	return &c, nil
}

// Save implements Store.Save
func (s *MemoryStore) Save(_ context.Context, creds *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *creds
	s.creds = &c
	return nil
}

// Clear implements Store.Clear
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = nil
	return nil
}
