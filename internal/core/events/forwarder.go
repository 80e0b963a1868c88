package events

import (
	"context"
	"log/slog"
	"time"
)

// Publisher is the broker side of a forwarder.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Envelope is the message body sent to the broker.
type Envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// ForwardTo relays every event on the bus to exchange, using the event type
// as routing key. Broker errors are logged and do not fail the publisher.
func ForwardTo(bus *EventBus, publisher Publisher, exchange string, logger *slog.Logger) {
	bus.SubscribeAll(func(ctx context.Context, event Event) error {
		envelope := Envelope{
			ID:         event.EventID(),
			Type:       event.EventType(),
			OccurredAt: event.OccurredAt(),
			Data:       event.Payload(),
		}
		if err := publisher.Publish(ctx, exchange, event.EventType(), envelope); err != nil {
			logger.Warn("failed to forward event to broker",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"exchange", exchange,
				"error", err)
		}
		return nil
	})
}
