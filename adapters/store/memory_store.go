package store

import (
	"context"
	"sync"
	"time"

	"github.com/widgetml/gatekeeper/ports"
)

type entry struct {
	value    string
	deadline time.Time
}

// MemoryStore is an in-memory implementation of the RevocationStore
// interface, used in tests and single-node runs.
type MemoryStore struct {
	entries map[string]entry
	mu      sync.Mutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

var _ ports.RevocationStore = (*MemoryStore)(nil)

// Set writes a key with a value and expiration time
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value, deadline: s.now().Add(ttl)}
	return nil
}

// Get retrieves a value by key, dropping entries past their deadline
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists {
		return "", false, nil
	}

	if s.now().After(e.deadline) {
		delete(s.entries, key)
		return "", false, nil
	}

	return e.value, true, nil
}

// SetNX claims a key if absent; the check and the write happen under one
// lock so concurrent presentations race safely.
func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if exists && !s.now().After(e.deadline) {
		return false, nil
	}

	s.entries[key] = entry{value: value, deadline: s.now().Add(ttl)}
	return true, nil
}
