package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/fleetgate-io/fleetgate/pkg/log"
)

type subscriptionEntry struct {
	id      uint64
	topic   string
	opts    SubscribeOptions
	handler MessageHandler
}

type pahoClient struct {
	cfg *ClientConfig
	cm  *autopaho.ConnectionManager

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscriptionEntry
}

// Subscription is a handle for a registered handler. Cancel releases the
// handler and removes the broker-side subscription when it is the last
// handler on its topic filter.
type Subscription struct {
	client *pahoClient
	id     uint64
}

// Cancel releases the subscription. Safe to call on a client whose broker
// is currently unreachable; the handler is removed locally either way.
func (s *Subscription) Cancel(ctx context.Context) error {
	return s.client.unsubscribe(ctx, s.id)
}

// NewClient creates a new MQTT client implementing the Client interface.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt config is required")
	}

	setDefaultConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{
		cfg:  cfg,
		subs: make(map[uint64]*subscriptionEntry),
	}, nil
}

func (c *pahoClient) Start(ctx context.Context) error {
	brokerURL, _ := url.Parse(c.cfg.BrokerURL) // Already validated

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              exponentialBackoff(c.cfg.BackoffBase, c.cfg.BackoffMax),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg: &tls.Config{
			InsecureSkipVerify: c.cfg.InsecureSkipVerify,
		},
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.onClientError,
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				c.router,
			},
		},
		OnConnectionUp: c.onConnectionUp,
		OnConnectError: c.onConnectError,
	}

	log.Info("starting mqtt client", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return err
	}
	c.cm = cm
	return nil
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	if c.cm != nil {
		_ = c.cm.Disconnect(ctx)
		log.Info("mqtt client disconnected")
	}
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if c.cm == nil {
		return fmt.Errorf("client not started")
	}

	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})

	return err
}

func (c *pahoClient) Subscribe(ctx context.Context, topic string, opts SubscribeOptions, handler MessageHandler) (*Subscription, error) {
	if c.cm == nil {
		return nil, fmt.Errorf("client not started")
	}

	entry := c.register(topic, opts, handler)

	// Send the SUBSCRIBE packet now if possible. A failure here is not
	// fatal: the handler stays registered and onConnectionUp repeats the
	// subscription once the broker is reachable again.
	if _, err := c.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{subscribePacket(topic, opts)},
	}); err != nil {
		log.Warn("subscribe packet deferred until reconnect", "topic", topic, "reason", err.Error())
	} else {
		log.Info("subscribed to topic", "topic", topic)
	}

	return &Subscription{client: c, id: entry.id}, nil
}

func (c *pahoClient) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return fmt.Errorf("client not started")
	}
	return c.cm.AwaitConnection(ctx)
}

// register adds a handler entry under the lock and returns it.
func (c *pahoClient) register(topic string, opts SubscribeOptions, handler MessageHandler) *subscriptionEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	entry := &subscriptionEntry{
		id:      c.nextID,
		topic:   topic,
		opts:    opts,
		handler: handler,
	}
	c.subs[entry.id] = entry
	return entry
}

func (c *pahoClient) unsubscribe(ctx context.Context, id uint64) error {
	c.mu.Lock()
	entry, ok := c.subs[id]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	delete(c.subs, id)

	last := true
	for _, other := range c.subs {
		if other.topic == entry.topic {
			last = false
			break
		}
	}
	c.mu.Unlock()

	if !last || c.cm == nil {
		return nil
	}

	_, err := c.cm.Unsubscribe(ctx, &paho.Unsubscribe{
		Topics: []string{entry.topic},
	})
	return err
}

// snapshotFilters returns the distinct topic filters currently registered.
func (c *pahoClient) snapshotFilters() []paho.SubscribeOptions {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(c.subs))
	filters := make([]paho.SubscribeOptions, 0, len(c.subs))
	for _, entry := range c.subs {
		if seen[entry.topic] {
			continue
		}
		seen[entry.topic] = true
		filters = append(filters, subscribePacket(entry.topic, entry.opts))
	}
	return filters
}

// --- Internal Callbacks ---

// onConnectionUp is called when the connection is established or re-established.
func (c *pahoClient) onConnectionUp(cm *autopaho.ConnectionManager, ack *paho.Connack) {
	log.Info("mqtt connection established")

	for _, filter := range c.snapshotFilters() {
		log.Info("re-subscribing", "topic", filter.Topic)
		if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{
			Subscriptions: []paho.SubscribeOptions{filter},
		}); err != nil {
			log.Error(err, "failed to re-subscribe", "topic", filter.Topic)
		}
	}
}

func (c *pahoClient) onConnectError(err error) {
	log.Error(err, "mqtt connection failed, retrying")
}

func (c *pahoClient) onClientError(err error) {
	log.Error(err, "mqtt client internal error")
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	if d.Properties != nil {
		log.Warn("mqtt server requested disconnect", "reason", d.Properties.ReasonString)
	} else {
		log.Warn("mqtt server requested disconnect", "reasonCode", int(d.ReasonCode))
	}
}

// router dispatches incoming messages to every matching handler. Handlers
// run on their own goroutines so a slow consumer cannot block the reader
// loop. The O(N) scan over handlers is fine at the expected subscription
// counts (one per observer connection plus the command channels).
func (c *pahoClient) router(p paho.PublishReceived) (bool, error) {
	c.mu.Lock()
	matched := make([]*subscriptionEntry, 0, 4)
	for _, entry := range c.subs {
		if topicsMatch(entry.topic, p.Packet.Topic) {
			matched = append(matched, entry)
		}
	}
	c.mu.Unlock()

	if len(matched) == 0 {
		log.Debug("received message on unhandled topic", "topic", p.Packet.Topic)
		return true, nil
	}

	for _, entry := range matched {
		go func(h MessageHandler) {
			h(context.Background(), p.Packet.Topic, p.Packet.Payload)
		}(entry.handler)
	}

	return true, nil
}

func subscribePacket(topic string, opts SubscribeOptions) paho.SubscribeOptions {
	return paho.SubscribeOptions{
		Topic:   topic,
		QoS:     byte(opts.QoS),
		NoLocal: opts.NoLocal,
	}
}

// exponentialBackoff doubles the delay on every failed attempt, from base
// up to max, and never gives up.
func exponentialBackoff(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}

// topicsMatch checks if a topic matches a filter (supports wildcards + and #).
func topicsMatch(filter, topic string) bool {
	if filter == topic {
		return true
	}

	if !strings.Contains(filter, "+") && !strings.Contains(filter, "#") {
		return false
	}

	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}
