// Package memory implements db.Store in process, for local runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/solrfacet/internal/db"
)

var _ db.Store = (*Store)(nil)

type entry struct {
	value   []byte
	expires time.Time
}

// Store is a map with per-key expiry. Expired keys are dropped lazily.
type Store struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]entry), now: time.Now}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close drops all keys.
func (s *Store) Close() {
	s.mu.Lock()
	clear(s.data)
	s.mu.Unlock()
}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// SetWithTTL stores a value with an expiration. A non-positive ttl never expires.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: append([]byte(nil), value...), expires: s.deadline(ttl)}
	return nil
}

// Del removes a key.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); !ok {
		return db.ErrKeyNotFound
	}
	delete(s.data, key)
	return nil
}

// Expire resets the TTL of an existing key.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return db.ErrKeyNotFound
	}
	e.expires = s.deadline(ttl)
	s.data[key] = e
	return nil
}

// live returns the entry if present and not expired. Caller holds mu.
func (s *Store) live(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.data, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}
