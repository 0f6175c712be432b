package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core/service"
	"github.com/fleetgate-io/fleetgate/pkg/log"
	"github.com/fleetgate-io/fleetgate/pkg/options"
)

// Server hosts the request/response surfaces: the latest-state query
// facade, the command facade, health probes and metrics.
type Server struct {
	opts   *options.HttpOptions
	svc    *service.Service
	db     *sql.DB
	server *http.Server
	logger log.Logger
}

// NewServer creates the API server. db is only used by the readiness probe
// and may be nil in tests.
func NewServer(opts *options.HttpOptions, svc *service.Service, db *sql.DB) *Server {
	s := &Server{
		opts:   opts,
		svc:    svc,
		db:     db,
		logger: log.WithName("api"),
	}

	s.server = &http.Server{
		Addr:        opts.Addr,
		Handler:     s.Routes(),
		ReadTimeout: opts.ReadTimeout,
	}

	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/api/v1/agents/{agentId}/state", s.handleLatestState).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/agents/{agentId}/commands", s.handleDispatchCommand).Methods(http.MethodPost)

	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}

// Start runs the server until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("api server starting", "addr", s.opts.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// handleLatestState answers the latest-state query for one agent. An agent
// that has never reported yields 200 with an empty object, since absence
// of state is a normal answer, not an error.
func (s *Server) handleLatestState(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["agentId"]

	record, err := s.svc.LatestState(r.Context(), agentID)
	if err != nil {
		s.logger.Error(err, "latest state query failed", "agentId", agentID)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	if record == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type dispatchRequest struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// handleDispatchCommand records and publishes one command intent. The 202
// answer means durably accepted, not delivered.
func (s *Server) handleDispatchCommand(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["agentId"]

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	intent, err := s.svc.DispatchCommand(r.Context(), agentID, req.Command, req.Params)
	if errors.Is(err, service.ErrInvalidCommand) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error(err, "command dispatch failed", "agentId", agentID)
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}

	writeJSON(w, http.StatusAccepted, intent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready once the durable store answers. The pub/sub
// backend is deliberately excluded: the gateway serves ingest and queries
// through broker outages.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error(err, "response encoding failed")
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
