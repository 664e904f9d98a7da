// Package memcache provides a concurrency-safe, map-backed [cache.Store] for
// single-process use where persistence across restarts is not required.
package memcache

import (
	"context"
	"sync"
	"time"

	"github.com/leofalp/draftly/providers/cache"
)

type entry struct {
	value   []byte
	created time.Time
}

// Store keeps entries in memory. A zero TTL disables expiry.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty Store whose entries live for ttl.
func New(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ cache.Store = (*Store)(nil)

// Get returns a copy of the stored value. Expired entries are evicted.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if s.ttl > 0 && s.now().Sub(e.created) >= s.ttl {
		s.mu.Lock()
		if cur, still := s.entries[key]; still && cur.created.Equal(e.created) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores a copy of value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	s.entries[key] = entry{value: v, created: s.now()}
	s.mu.Unlock()
	return nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
