package invalidation

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/storefront-edge-go/internal/messaging"
)

// Publisher announces cache invalidations.
type Publisher struct {
	publish messaging.Publish[Event]
	source  string
}

// NewPublisher creates a publisher stamping events with source.
func NewPublisher(publisher message.Publisher, source string) *Publisher {
	return &Publisher{
		publish: messaging.NewPublishFunc[Event](publisher, TopicCacheInvalidated),
		source:  source,
	}
}

// Invalidate publishes an event evicting keys and every key under prefixes.
func (p *Publisher) Invalidate(ctx context.Context, keys, prefixes []string) (*Event, error) {
	event, err := NewEvent(p.source, keys, prefixes)
	if err != nil {
		return nil, err
	}

	if err := p.publish(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}
