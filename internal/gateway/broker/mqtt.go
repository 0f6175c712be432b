package broker

import (
	"context"
	"fmt"
	"os"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core"
	"github.com/fleetgate-io/fleetgate/pkg/log"
	"github.com/fleetgate-io/fleetgate/pkg/mqtt"
	"github.com/fleetgate-io/fleetgate/pkg/mqtt/topic"
	"github.com/fleetgate-io/fleetgate/pkg/options"
)

// MQTTBroker is the cross-process pub/sub adapter. The underlying client
// reconnects indefinitely with bounded exponential backoff; publishes made
// while the backend is unreachable fail within the caller's context and
// are dropped, never queued.
type MQTTBroker struct {
	client mqtt.Client
	topics *topic.Builder
	qos    int
}

var _ core.Broker = (*MQTTBroker)(nil)

// New creates the broker adapter and starts its connection manager.
// Start is non-blocking: the gateway comes up even when the backend is
// down, and delivery resumes once the backend recovers.
func New(ctx context.Context, opts *options.MqttOptions) (*MQTTBroker, error) {
	cfg := opts.ToClientConfig()

	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("fgate-%s", hostname)
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mqtt client: %w", err)
	}

	if err := client.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start mqtt client: %w", err)
	}

	return &MQTTBroker{
		client: client,
		topics: topic.NewBuilder(opts.TopicRoot),
		qos:    opts.QoS,
	}, nil
}

// Disconnect cleanly closes the broker connection.
func (b *MQTTBroker) Disconnect(ctx context.Context) {
	b.client.Disconnect(ctx)
}

// PublishReport publishes a serialized Report on the shared telemetry channel.
func (b *MQTTBroker) PublishReport(ctx context.Context, payload []byte) error {
	return b.client.Publish(ctx, b.topics.Telemetry(), b.qos, false, payload)
}

// PublishCommand publishes a serialized CommandIntent on the agent's channel.
func (b *MQTTBroker) PublishCommand(ctx context.Context, agentID string, payload []byte) error {
	return b.client.Publish(ctx, b.topics.Command(agentID), b.qos, false, payload)
}

// SubscribeReports registers deliver for reports arriving on the shared
// telemetry channel. The subscription uses NoLocal so reports published by
// this same instance are not echoed back: local observers already receive
// them through the in-process fan-out, and the subscription only carries
// reports ingested by other gateway instances.
func (b *MQTTBroker) SubscribeReports(ctx context.Context, deliver func(payload []byte)) (core.Subscription, error) {
	sub, err := b.client.Subscribe(ctx, b.topics.Telemetry(), mqtt.SubscribeOptions{
		QoS:     b.qos,
		NoLocal: true,
	}, func(_ context.Context, _ string, payload []byte) {
		deliver(payload)
	})
	if err != nil {
		log.Error(err, "telemetry subscription failed")
		return nil, err
	}
	return sub, nil
}
