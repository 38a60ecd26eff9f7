package invalidation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TopicCacheInvalidated carries Events to every storefront replica.
const TopicCacheInvalidated = "catalog.cache_invalidated"

// ErrEmptyEvent is returned when an event names neither keys nor prefixes.
var ErrEmptyEvent = errors.New("invalidation event names no keys or prefixes")

// Event asks every replica to evict cache entries.
type Event struct {
	ID       string    `json:"id"`
	Keys     []string  `json:"keys,omitempty"`
	Prefixes []string  `json:"prefixes,omitempty"`
	IssuedAt time.Time `json:"issuedAt"`
	Source   string    `json:"source"`
}

// NewEvent builds an event with a fresh ID.
func NewEvent(source string, keys, prefixes []string) (*Event, error) {
	if len(keys) == 0 && len(prefixes) == 0 {
		return nil, ErrEmptyEvent
	}

	return &Event{
		ID:       uuid.NewString(),
		Keys:     keys,
		Prefixes: prefixes,
		IssuedAt: time.Now().UTC(),
		Source:   source,
	}, nil
}
