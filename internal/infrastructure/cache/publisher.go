package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pharmaledger/internal/infrastructure/storage/postgres"
)

// EventChannelPrefix prefixes the pub/sub channel of every event type.
const EventChannelPrefix = "pharmaledger.events."

// EventPublisher relays outbox messages to Redis pub/sub channels named
// after the event type, e.g. "pharmaledger.events.LowStockDetected".
type EventPublisher struct {
	client redis.Cmdable
}

var _ postgres.OutboxHandler = (*EventPublisher)(nil)

// NewEventPublisher creates a publisher over client.
func NewEventPublisher(client redis.Cmdable) *EventPublisher {
	return &EventPublisher{client: client}
}

// Handle publishes the message payload.
func (p *EventPublisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	channel := EventChannelPrefix + msg.EventType
	if err := p.client.Publish(ctx, channel, msg.Payload).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", msg.ID, channel, err)
	}
	return nil
}
