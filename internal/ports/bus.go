package ports

import "context"

// Message is one delivery from the bus. Key carries the machine identifier
// so adapters with keyed partitions can preserve per-machine ordering.
type Message struct {
	Topic   string
	Key     string
	Payload []byte
}

// Handler processes one message to completion before the next delivery for
// the same subscription. Returning an error leaves the message unacked on
// adapters that support redelivery.
type Handler func(ctx context.Context, msg Message) error

// Subscription is a handle for a registered handler.
type Subscription interface {
	Unsubscribe() error
}

// Bus wraps publish/subscribe with at-least-once delivery. Adapters must
// reconnect transparently with bounded exponential backoff and resume
// subscriptions; messages in flight during an outage may be dropped.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	PublishRetained(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topicPattern string, h Handler) (Subscription, error)
	Close(ctx context.Context) error
}
