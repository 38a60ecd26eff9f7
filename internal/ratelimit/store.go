package ratelimit

import (
	"context"
	"time"
)

// Record is the state of one key's current window.
type Record struct {
	Count   int64
	ResetAt time.Time
}

// Store defines the interface for rate limit data storage.
type Store interface {
	// Hit applies one request to key's fixed window and reports whether it is allowed.
	// A request at or after ResetAt starts a new window with Count 1.
	// A rejected request does not increment Count.
	Hit(ctx context.Context, key string, limit int64, window time.Duration) (rec Record, allowed bool, err error)
}
