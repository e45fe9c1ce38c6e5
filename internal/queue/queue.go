package queue

import "context"

const (
	// StatusQueueName receives provider callback events: delivery receipts
	// and inbound replies.
	StatusQueueName = "delivery.status"
	// StatusDLQName receives events that could not be parsed or validated.
	StatusDLQName = "dlq.delivery.status"
)

// Publisher publishes callback events to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, event StatusEvent) error
	Close() error
}

// EventHandler handles a consumed callback event.
type EventHandler func(ctx context.Context, event StatusEvent) error

// Consumer consumes callback events from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler EventHandler) error
	Close() error
}
