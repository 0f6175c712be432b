package core

import "context"

// Subscription is a held cross-process subscription. Cancel must be called
// on every exit path of the owning connection's lifetime.
type Subscription interface {
	Cancel(ctx context.Context) error
}

// Broker is the cross-process publish/subscribe channel. All publishes are
// best-effort: when the backend is unreachable, messages are dropped, not
// queued, and the failure never propagates into the ingest path. The
// implementation reconnects indefinitely on its own.
type Broker interface {
	// PublishReport publishes a serialized Report on the shared telemetry channel.
	PublishReport(ctx context.Context, payload []byte) error

	// PublishCommand publishes a serialized CommandIntent on the agent's channel.
	PublishCommand(ctx context.Context, agentID string, payload []byte) error

	// SubscribeReports registers deliver for every Report that arrives on
	// the shared channel from other gateway instances.
	SubscribeReports(ctx context.Context, deliver func(payload []byte)) (Subscription, error)
}

// Broadcaster is the same-process fan-out path: delivery of one payload to
// every currently-registered observer connection.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Archiver stores raw report payloads for offline analysis. Best-effort,
// never on the critical path.
type Archiver interface {
	Archive(ctx context.Context, agentID string, ts float64, raw []byte) error
}
