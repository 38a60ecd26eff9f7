package ratelimit

import (
	"context"
	"time"
)

const (
	// DefaultWindow is the length of one counting window.
	DefaultWindow = time.Minute
	// DefaultMaxRequests is the number of requests a key may make per window.
	DefaultMaxRequests = 100
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed bool
	Count   int64
	Limit   int64
	ResetAt time.Time
	// RetryAfter is the hint sent with a rejection. It is always the window size.
	RetryAfter time.Duration
}

// Limiter defines the interface for rate limiting.
type Limiter interface {
	// Allow checks if a request from the given key should be allowed.
	Allow(ctx context.Context, key string) (Decision, error)
}

// FixedWindowLimiter counts requests per key in fixed windows.
// Up to twice the limit can pass across a window boundary.
type FixedWindowLimiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// NewFixedWindowLimiter creates a new fixed window rate limiter.
func NewFixedWindowLimiter(store Store, limit int64, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		store:  store,
		limit:  limit,
		window: window,
	}
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	rec, allowed, err := l.store.Hit(ctx, key, l.limit, l.window)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed:    allowed,
		Count:      rec.Count,
		Limit:      l.limit,
		ResetAt:    rec.ResetAt,
		RetryAfter: l.window,
	}, nil
}

// Window returns the configured window size.
func (l *FixedWindowLimiter) Window() time.Duration {
	return l.window
}
