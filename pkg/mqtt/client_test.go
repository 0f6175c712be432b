package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"fleet/v1/telemetry", "fleet/v1/telemetry", true},
		{"fleet/v1/telemetry", "fleet/v1/cmd/v1", false},
		{"fleet/v1/cmd/+", "fleet/v1/cmd/v1", true},
		{"fleet/v1/cmd/+", "fleet/v1/cmd/v1/extra", false},
		{"fleet/v1/#", "fleet/v1/cmd/v1/extra", true},
		{"fleet/+/telemetry", "fleet/v1/telemetry", true},
		{"fleet/+/telemetry", "fleet/v1/cmd", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, topicsMatch(tt.filter, tt.topic), "filter=%s topic=%s", tt.filter, tt.topic)
	}
}

func TestExponentialBackoffBounds(t *testing.T) {
	backoff := exponentialBackoff(time.Second, 30*time.Second)

	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, 30*time.Second, backoff(6))

	// Large attempt counts stay at the ceiling instead of overflowing.
	assert.Equal(t, 30*time.Second, backoff(100))

	// Attempt numbers below 1 behave like the first attempt.
	assert.Equal(t, time.Second, backoff(0))
}

func TestSubscriptionRegistry(t *testing.T) {
	c := &pahoClient{
		cfg:  &ClientConfig{BrokerURL: "tcp://localhost:1883"},
		subs: make(map[uint64]*subscriptionEntry),
	}

	handler := func(ctx context.Context, topic string, payload []byte) {}

	a := c.register("fleet/v1/telemetry", SubscribeOptions{QoS: 1, NoLocal: true}, handler)
	b := c.register("fleet/v1/telemetry", SubscribeOptions{QoS: 1, NoLocal: true}, handler)
	other := c.register("fleet/v1/cmd/+", SubscribeOptions{QoS: 1}, handler)

	// Two handlers on the same filter collapse into one broker-side subscription.
	filters := c.snapshotFilters()
	require.Len(t, filters, 2)

	// Removing one of two handlers keeps the filter registered.
	require.NoError(t, c.unsubscribe(context.Background(), a.id))
	require.Len(t, c.snapshotFilters(), 2)

	// Removing the last handler drops the filter.
	require.NoError(t, c.unsubscribe(context.Background(), b.id))
	require.Len(t, c.snapshotFilters(), 1)

	// Cancel is idempotent.
	require.NoError(t, c.unsubscribe(context.Background(), b.id))

	require.NoError(t, c.unsubscribe(context.Background(), other.id))
	require.Empty(t, c.snapshotFilters())
}
