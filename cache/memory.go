package cache

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store backed by a map. It doubles as the
// in-memory tier of Cache and as the fallback store in degraded mode.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]float64
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]float64)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, key Key) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, false, ErrClosed
	}
	v, ok := s.entries[key]
	return v, ok, nil
}

// Insert implements Store. The first writer wins.
func (s *MemoryStore) Insert(_ context.Context, key Key, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.entries[key]; !ok {
		s.entries[key] = value
	}
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Enumerate calls fn for every entry until fn returns false. The iteration
// order is unspecified.
func (s *MemoryStore) Enumerate(_ context.Context, fn func(key Key, value float64) bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	for k, v := range s.entries {
		if !fn(k, v) {
			return nil
		}
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
