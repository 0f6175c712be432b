package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core"
	"github.com/fleetgate-io/fleetgate/internal/gateway/core/service"
	"github.com/fleetgate-io/fleetgate/internal/gateway/metrics"
	"github.com/fleetgate-io/fleetgate/pkg/log"
	"github.com/fleetgate-io/fleetgate/pkg/options"
)

// Server hosts the two long-lived WebSocket surfaces: /ingest for agent
// report streams and /observe for dashboard fan-out.
type Server struct {
	opts   *options.StreamOptions
	svc    *service.Service
	broker core.Broker
	hub    *Hub

	server   *http.Server
	upgrader websocket.Upgrader
	logger   log.Logger

	mu     sync.Mutex
	addr   string
	ingest map[*websocket.Conn]struct{}
}

// NewServer creates the stream server. The hub must be the same instance
// handed to the service as its local broadcaster.
func NewServer(opts *options.StreamOptions, svc *service.Service, broker core.Broker, hub *Hub) *Server {
	s := &Server{
		opts:   opts,
		svc:    svc,
		broker: broker,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log.WithName("stream"),
		ingest: make(map[*websocket.Conn]struct{}),
	}

	router := mux.NewRouter()
	router.HandleFunc("/ingest", s.handleIngest)
	router.HandleFunc("/observe", s.handleObserve)

	s.server = &http.Server{
		Handler: router,
	}

	return s
}

// Addr returns the bound listen address, empty until Start has bound it.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start runs the server until ctx is canceled, then shuts down gracefully.
// HTTP shutdown does not touch hijacked WebSocket connections, so after it
// returns every live ingest and observe connection is closed explicitly.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info("stream server starting", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.server.Shutdown(shutdownCtx)
		s.closeConnections()
		return err
	}
}

// closeConnections tears down every live connection: observers through the
// hub (running their close hooks) and ingest streams directly.
func (s *Server) closeConnections() {
	s.hub.CloseAll()

	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.ingest))
	for ws := range s.ingest {
		conns = append(conns, ws)
	}
	s.mu.Unlock()

	for _, ws := range conns {
		_ = ws.Close()
	}
}

func (s *Server) trackIngest(ws *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingest[ws] = struct{}{}
}

func (s *Server) untrackIngest(ws *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ingest, ws)
}

// handleIngest accepts an agent's report stream. Each text frame is one
// report document; malformed frames are dropped without closing the
// connection or answering the agent.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(err, "ingest upgrade failed", "remote", r.RemoteAddr)
		return
	}

	s.trackIngest(ws)
	metrics.IngestConnections.Inc()
	s.logger.Info("ingest connection opened", "remote", ws.RemoteAddr().String())

	defer func() {
		s.untrackIngest(ws)
		metrics.IngestConnections.Dec()
		_ = ws.Close()
		s.logger.Info("ingest connection closed", "remote", ws.RemoteAddr().String())
	}()

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if err := s.svc.IngestReport(r.Context(), payload); err != nil {
			s.logger.Debug("report dropped", "remote", ws.RemoteAddr().String(), "err", err)
		}
	}
}

// handleObserve accepts an observer and streams every report ingested by
// this instance plus every report arriving from peer instances over the
// pub/sub channel. Delivery starts from connect time; no history replay.
func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(err, "observe upgrade failed", "remote", r.RemoteAddr)
		return
	}

	conn := newConn(ws, s.opts.SendBuffer, s.opts.WriteTimeout, s.opts.PingInterval)

	sub, err := s.broker.SubscribeReports(r.Context(), func(payload []byte) {
		if !conn.trySend(payload) {
			metrics.FanoutDropped.Inc()
			conn.Close()
		}
	})
	if err != nil {
		s.logger.Error(err, "observer subscription failed", "remote", ws.RemoteAddr().String())
		_ = ws.Close()
		return
	}

	// The close hook must be in place before the conn becomes reachable
	// through the hub: a Close racing in from a concurrent broadcast would
	// otherwise tear down with no hook, leaking the registration and the
	// subscription.
	metrics.ObserverConnections.Inc()
	conn.addCloseHook(func() {
		s.hub.Unregister(conn)
		metrics.ObserverConnections.Dec()

		cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sub.Cancel(cancelCtx); err != nil {
			s.logger.Debug("subscription cancel failed", "err", err)
		}

		s.logger.Info("observer disconnected", "remote", conn.RemoteAddr())
	})

	s.hub.Register(conn)
	s.logger.Info("observer connected", "remote", conn.RemoteAddr())

	conn.establish()
	conn.readPump()
}
