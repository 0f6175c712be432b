package ws

import (
	"sync"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core"
	"github.com/fleetgate-io/fleetgate/internal/gateway/metrics"
	"github.com/fleetgate-io/fleetgate/pkg/log"
)

// Hub is the same-process fan-out registry. Broadcast delivers one payload
// to every registered observer without blocking: an observer whose send
// buffer is full is disconnected instead of stalling the others.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

var _ core.Broadcaster = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[*Conn]struct{}),
	}
}

// Register adds an observer connection to the fan-out set.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

// Unregister removes an observer connection. Safe to call for a connection
// that was never registered or is already gone.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// Count returns the number of currently registered observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast enqueues payload on every registered observer. Slow consumers
// are closed so one stalled connection cannot delay delivery to the rest.
// A connection that failed the send is also removed from the registry
// directly, so a conn whose close hooks already ran cannot linger.
func (h *Hub) Broadcast(payload []byte) {
	for _, c := range h.snapshot() {
		if !c.trySend(payload) {
			metrics.FanoutDropped.Inc()
			log.Info("dropping slow observer connection", "remote", c.RemoteAddr())
			h.Unregister(c)
			c.Close()
		}
	}
}

// CloseAll closes every registered observer connection. Called on server
// shutdown; each close runs the connection's hooks, which deregister it.
func (h *Hub) CloseAll() {
	for _, c := range h.snapshot() {
		c.Close()
	}
}

func (h *Hub) snapshot() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	return conns
}
