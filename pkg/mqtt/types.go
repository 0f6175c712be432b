package mqtt

import (
	"context"
)

// MessageHandler is the callback for processing received MQTT messages.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// SubscribeOptions controls a single subscription.
type SubscribeOptions struct {
	// QoS is the requested quality-of-service level.
	QoS int

	// NoLocal asks the broker (MQTT v5) not to echo messages published
	// by this same client back to this subscription.
	NoLocal bool
}

// Client is a generic MQTT client. It abstracts the underlying paho
// implementation and survives broker outages: the connection manager
// reconnects indefinitely with bounded exponential backoff, and all
// registered subscriptions are re-established on every reconnect.
type Client interface {
	// Start initiates the connection to the broker. It is non-blocking
	// and returns immediately. Use AwaitConnection to wait.
	Start(ctx context.Context) error

	// Disconnect cleanly closes the connection.
	Disconnect(ctx context.Context)

	// Publish sends a message to the given topic. It fails rather than
	// queues when the broker is unreachable for the life of ctx.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers a handler for a topic filter and returns a
	// handle used to release it. Multiple handlers may be registered on
	// the same filter; the broker-side subscription is shared and only
	// removed when the last handler cancels.
	Subscribe(ctx context.Context, topic string, opts SubscribeOptions, handler MessageHandler) (*Subscription, error)

	// AwaitConnection blocks until the client is connected to the broker.
	AwaitConnection(ctx context.Context) error
}
