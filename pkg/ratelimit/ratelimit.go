// Package ratelimit provides the per-client upload limiter. Counting is
// fixed-window: the first request from a key opens a window, later requests
// increment the same counter until the window expires, then the next request
// opens a fresh one.
package ratelimit

import (
	"sync"
	"time"
)

// Store decides whether a request from the given client key may proceed.
// Implementations must be safe for concurrent use.
type Store interface {
	Allow(key string) bool
}

// MemoryStore is an in-memory Store guarded by a mutex. State lives only as
// long as the process; a restart clears all windows.
type MemoryStore struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	entries   map[string]*entry
	lastPrune time.Time

	// now is the clock, replaceable in tests.
	now func() time.Time
}

type entry struct {
	count   int
	resetAt time.Time
}

// NewMemoryStore returns a store allowing limit requests per key per window.
func NewMemoryStore(limit int, window time.Duration) *MemoryStore {
	return &MemoryStore{
		limit:   limit,
		window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow records a request for key and reports whether it still fits the
// current window.
func (s *MemoryStore) Allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	e, ok := s.entries[key]
	if !ok || now.After(e.resetAt) {
		s.entries[key] = &entry{count: 1, resetAt: now.Add(s.window)}
		return true
	}

	e.count++
	return e.count <= s.limit
}

// Reset drops every tracked window.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

// pruneLocked drops expired windows at most once per window so the map does
// not grow with every client ever seen. Caller holds the lock.
func (s *MemoryStore) pruneLocked(now time.Time) {
	if now.Sub(s.lastPrune) < s.window {
		return
	}
	s.lastPrune = now
	for key, e := range s.entries {
		if now.After(e.resetAt) {
			delete(s.entries, key)
		}
	}
}
