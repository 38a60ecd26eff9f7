package invalidation

import (
	"context"
	"fmt"

	"github.com/jaevor/go-nanoid"
	"github.com/serroba/storefront-edge-go/internal/datacache"
	"github.com/serroba/storefront-edge-go/internal/messaging"
	"go.uber.org/zap"
)

const consumerGroupPrefix = "storefront-"

// EvictionObserver is told how many entries each event removed.
type EvictionObserver interface {
	CacheEvicted(n int)
}

// HandlerOption configures the handler built by NewHandler.
type HandlerOption func(*handler)

// WithEvictionObserver reports evictions to o.
func WithEvictionObserver(o EvictionObserver) HandlerOption {
	return func(h *handler) {
		h.observer = o
	}
}

type handler struct {
	store    *datacache.Store
	logger   *zap.Logger
	observer EvictionObserver
}

// NewHandler returns a message handler that evicts the event's keys and prefixes
// from the local cache. Evicting an absent key is not an error.
func NewHandler(store *datacache.Store, logger *zap.Logger, opts ...HandlerOption) messaging.Handler[Event] {
	h := &handler{store: store, logger: logger}
	for _, opt := range opts {
		opt(h)
	}

	return h.handle
}

func (h *handler) handle(_ context.Context, event *Event) error {
	evicted := 0

	for _, key := range event.Keys {
		if _, ok := h.store.Get(key); ok {
			evicted++
		}

		h.store.Delete(key)
	}

	for _, prefix := range event.Prefixes {
		evicted += h.store.DeletePrefix(prefix)
	}

	if h.observer != nil {
		h.observer.CacheEvicted(evicted)
	}

	h.logger.Info("cache invalidated",
		zap.String("event_id", event.ID),
		zap.String("source", event.Source),
		zap.Strings("keys", event.Keys),
		zap.Strings("prefixes", event.Prefixes),
		zap.Int("evicted", evicted),
	)

	return nil
}

// ConsumerGroupName returns a group name unique to this process, so each
// replica receives every invalidation instead of sharing them.
func ConsumerGroupName() (string, error) {
	generate, err := nanoid.Standard(12)
	if err != nil {
		return "", fmt.Errorf("consumer group id: %w", err)
	}

	return consumerGroupPrefix + generate(), nil
}
