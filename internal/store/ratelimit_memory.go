package store

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/serroba/storefront-edge-go/internal/ratelimit"
)

// DefaultMaxKeys bounds how many client keys the memory store tracks at once.
const DefaultMaxKeys = 100_000

// RateLimitMemoryOption configures a RateLimitMemoryStore.
type RateLimitMemoryOption func(*RateLimitMemoryStore)

// WithMaxKeys sets the LRU bound on tracked keys.
func WithMaxKeys(n int) RateLimitMemoryOption {
	return func(s *RateLimitMemoryStore) {
		s.maxKeys = n
	}
}

// WithClock overrides the time source used for window boundaries.
func WithClock(now func() time.Time) RateLimitMemoryOption {
	return func(s *RateLimitMemoryStore) {
		s.now = now
	}
}

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
// Each process keeps its own counters, so N replicas admit N times the limit.
type RateLimitMemoryStore struct {
	mu      sync.Mutex
	records *expirable.LRU[string, *ratelimit.Record]
	maxKeys int
	now     func() time.Time
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
// Records idle for longer than retention are dropped, as are the least
// recently seen keys once the bound is reached.
func NewRateLimitMemoryStore(retention time.Duration, opts ...RateLimitMemoryOption) *RateLimitMemoryStore {
	s := &RateLimitMemoryStore{
		maxKeys: DefaultMaxKeys,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.records = expirable.NewLRU[string, *ratelimit.Record](s.maxKeys, nil, retention)

	return s
}

func (s *RateLimitMemoryStore) Hit(_ context.Context, key string, limit int64, window time.Duration) (ratelimit.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	rec, ok := s.records.Get(key)
	if !ok || !now.Before(rec.ResetAt) {
		rec = &ratelimit.Record{Count: 1, ResetAt: now.Add(window)}
		s.records.Add(key, rec)

		return *rec, true, nil
	}

	if rec.Count >= limit {
		return *rec, false, nil
	}

	rec.Count++

	return *rec, true, nil
}

// Len returns the number of tracked keys.
func (s *RateLimitMemoryStore) Len() int {
	return s.records.Len()
}

var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)
