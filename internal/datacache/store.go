package datacache

import (
	"strings"
	"sync"
	"time"
)

// Entry is a cached query result.
type Entry struct {
	Key      string
	Value    any
	StoredAt time.Time
	TTL      time.Duration
}

// FreshAt reports whether the entry may still be served at now.
func (e Entry) FreshAt(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

// Observer receives cache lookup outcomes.
type Observer interface {
	CacheHit(key string)
	CacheMiss(key string)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source used for freshness checks and StoredAt.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithObserver reports hits and misses from Fresh to o.
func WithObserver(o Observer) StoreOption {
	return func(s *Store) {
		s.observer = o
	}
}

// Store is a keyed TTL cache shared by every Query built on it.
// Entries are replaced as whole values, so readers never observe a partial write.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	now      func() time.Time
	observer Observer
}

// NewStore creates an empty cache.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entries: make(map[string]Entry),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Get returns the raw entry for key, fresh or not.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]

	return e, ok
}

// Fresh returns the cached value for key when it exists and has not outlived its TTL.
// Stale entries are left in place; the next Set replaces them.
func (s *Store) Fresh(key string) (any, bool) {
	e, ok := s.Get(key)
	if !ok || !e.FreshAt(s.now()) {
		if s.observer != nil {
			s.observer.CacheMiss(key)
		}

		return nil, false
	}

	if s.observer != nil {
		s.observer.CacheHit(key)
	}

	return e.Value, true
}

// Set stores value under key, stamped with the current time.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	e := Entry{
		Key:      key,
		Value:    value,
		StoredAt: s.now(),
		TTL:      ttl,
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

// Delete evicts key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// DeletePrefix evicts every key starting with prefix and returns how many were removed.
func (s *Store) DeletePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}

	return removed
}

// Clear evicts everything.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]Entry)
	s.mu.Unlock()
}

// Len returns the number of entries, including stale ones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}
