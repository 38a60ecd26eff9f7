package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/storefront-edge-go/internal/ratelimit"
)

// hitScript returns {count, pttl, allowed}.
// The first request of a window creates the key with the window as its expiry,
// so the key disappearing is the window rolling over.
var hitScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current > 0 and current >= tonumber(ARGV[1]) then
	return {current, redis.call('PTTL', KEYS[1]), 0}
end
local count = redis.call('INCR', KEYS[1])
if count == 1 or redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {count, redis.call('PTTL', KEYS[1]), 1}
`)

// RateLimitRedisStore is a Redis implementation of ratelimit.Store.
// All replicas pointing at the same Redis share one counter per key.
type RateLimitRedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRateLimitRedisStore creates a new Redis-backed rate limit store.
func NewRateLimitRedisStore(client *redis.Client) *RateLimitRedisStore {
	return &RateLimitRedisStore{
		client: client,
		now:    time.Now,
	}
}

func (r *RateLimitRedisStore) Hit(ctx context.Context, key string, limit int64, window time.Duration) (ratelimit.Record, bool, error) {
	res, err := hitScript.Run(ctx, r.client, []string{key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return ratelimit.Record{}, false, fmt.Errorf("rate limit hit %q: %w", key, err)
	}

	if len(res) != 3 {
		return ratelimit.Record{}, false, fmt.Errorf("rate limit hit %q: unexpected reply %v", key, res)
	}

	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}

	return ratelimit.Record{
		Count:   res[0],
		ResetAt: r.now().Add(ttl),
	}, res[2] == 1, nil
}

var _ ratelimit.Store = (*RateLimitRedisStore)(nil)
