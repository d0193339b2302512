// Package session keeps the coordinates a browser session last reported.
//
// A session is identified by an opaque id carried in a signed cookie (see
// Tokens). Coordinates are written once per location fetch and overwritten
// on repeat; the last write wins.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// Store persists per-session coordinates. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the stored coordinates and true, or false when the session
	// has none (or they expired).
	Get(ctx context.Context, sessionID string) (coordinates.Geographic, bool, error)

	// Set stores coordinates for the session, replacing any previous value.
	Set(ctx context.Context, sessionID string, c coordinates.Geographic) error
}

// MemoryStore is an in-process Store with per-entry expiry.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	coords  coordinates.Geographic
	expires time.Time
}

// NewMemoryStore creates a store whose entries live for ttl after their last
// write. ttl <= 0 keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (coordinates.Geographic, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return coordinates.Geographic{}, false, nil
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		delete(s.entries, sessionID)
		return coordinates.Geographic{}, false, nil
	}
	return e.coords, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, sessionID string, c coordinates.Geographic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{coords: c}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.entries[sessionID] = e
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}
