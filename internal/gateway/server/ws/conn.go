package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/looplab/fsm"

	"github.com/fleetgate-io/fleetgate/pkg/log"
)

const (
	stateConnecting = "connecting"
	stateOpen       = "open"
	stateClosed     = "closed"

	eventEstablish = "establish"
	eventClose     = "close"
)

// Conn is one observer connection. Outbound delivery goes through a bounded
// send buffer drained by writePump; the lifecycle state machine guarantees
// teardown runs exactly once no matter how many paths request the close.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	writeTimeout time.Duration
	pingInterval time.Duration

	lifecycle *fsm.FSM
	onClosed  []func()
}

func newConn(ws *websocket.Conn, sendBuffer int, writeTimeout, pingInterval time.Duration) *Conn {
	c := &Conn{
		ws:           ws,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
	}

	c.lifecycle = fsm.NewFSM(
		stateConnecting,
		fsm.Events{
			{Name: eventEstablish, Src: []string{stateConnecting}, Dst: stateOpen},
			{Name: eventClose, Src: []string{stateConnecting, stateOpen}, Dst: stateClosed},
		},
		fsm.Callbacks{
			"enter_" + stateClosed: func(_ context.Context, _ *fsm.Event) {
				c.teardown()
			},
		},
	)

	return c
}

// addCloseHook registers fn to run once when the connection closes. Must be
// called before establish.
func (c *Conn) addCloseHook(fn func()) {
	c.onClosed = append(c.onClosed, fn)
}

// establish transitions the connection to open and starts the write pump.
func (c *Conn) establish() {
	if err := c.lifecycle.Event(context.Background(), eventEstablish); err != nil {
		return
	}
	go c.writePump()
}

// Close requests teardown. Idempotent: the state machine rejects the
// transition once the connection is already closed.
func (c *Conn) Close() {
	_ = c.lifecycle.Event(context.Background(), eventClose)
}

func (c *Conn) teardown() {
	close(c.done)
	if c.ws != nil {
		_ = c.ws.Close()
	}
	for _, fn := range c.onClosed {
		fn()
	}
}

// RemoteAddr reports the peer address for logging.
func (c *Conn) RemoteAddr() string {
	if c.ws == nil {
		return ""
	}
	return c.ws.RemoteAddr().String()
}

// trySend enqueues payload without blocking. It reports false when the
// buffer is full or the connection is closed.
func (c *Conn) trySend(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// writePump drains the send buffer onto the wire and keeps the connection
// alive with periodic pings. Any write failure closes the connection.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				log.Debug("observer write failed, closing", "remote", c.RemoteAddr(), "err", err)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) write(messageType int, payload []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, payload)
}

// readPump consumes inbound frames until the peer goes away. Observers are
// not expected to send data; reading is still required to process control
// frames and detect disconnects.
func (c *Conn) readPump() {
	defer c.Close()
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
