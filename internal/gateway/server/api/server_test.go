package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core"
	"github.com/fleetgate-io/fleetgate/internal/gateway/core/model"
	"github.com/fleetgate-io/fleetgate/internal/gateway/core/service"
	"github.com/fleetgate-io/fleetgate/pkg/options"
)

type memStore struct {
	mu      sync.Mutex
	states  map[string]*model.LatestStateRecord
	intents []*model.CommandIntent
}

func newMemStore() *memStore {
	return &memStore{states: map[string]*model.LatestStateRecord{}}
}

func (m *memStore) Reports() core.ReportLog            { return &memReportLog{} }
func (m *memStore) States() core.LatestStateRepository { return &memStateRepo{parent: m} }
func (m *memStore) Commands() core.CommandRepository   { return &memCommandLog{parent: m} }

type memReportLog struct{}

func (l *memReportLog) Append(context.Context, *model.Report, time.Time) error { return nil }

type memStateRepo struct{ parent *memStore }

func (r *memStateRepo) Upsert(_ context.Context, report *model.Report, receivedAt time.Time) error {
	r.parent.mu.Lock()
	defer r.parent.mu.Unlock()
	r.parent.states[report.AgentID] = &model.LatestStateRecord{
		AgentID:    report.AgentID,
		Report:     report,
		ReceivedAt: receivedAt,
	}
	return nil
}

func (r *memStateRepo) Get(_ context.Context, agentID string) (*model.LatestStateRecord, error) {
	r.parent.mu.Lock()
	defer r.parent.mu.Unlock()
	record, ok := r.parent.states[agentID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return record, nil
}

type memCommandLog struct{ parent *memStore }

func (l *memCommandLog) Append(_ context.Context, intent *model.CommandIntent) error {
	l.parent.mu.Lock()
	defer l.parent.mu.Unlock()
	l.parent.intents = append(l.parent.intents, intent)
	return nil
}

type noopBroker struct{}

func (noopBroker) PublishReport(context.Context, []byte) error          { return nil }
func (noopBroker) PublishCommand(context.Context, string, []byte) error { return nil }
func (noopBroker) SubscribeReports(context.Context, func([]byte)) (core.Subscription, error) {
	return nil, nil
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast([]byte) {}

func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := service.New(store, noopBroker{}, noopBroadcaster{}, nil)
	return NewServer(options.NewHttpOptions(), svc, nil), store
}

func TestLatestStateKnownAgent(t *testing.T) {
	srv, store := newTestServer(t)

	report := &model.Report{
		AgentID: "veh-42", TS: 1699999999000,
		SpeedKph: 63.2, SoC: 81.5, BatteryTempC: 31.0, MotorTempC: 55.4,
		Lat: 52.52, Lng: 13.405,
		Faults: []string{"P0A80"},
	}
	require.NoError(t, store.States().Upsert(context.Background(), report, time.Now().UTC()))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents/veh-42/state", nil)
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got model.LatestStateRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "veh-42", got.AgentID)
	require.NotNil(t, got.Report)
	assert.Equal(t, 63.2, got.Report.SpeedKph)
	assert.Equal(t, []string{"P0A80"}, got.Report.Faults)
}

func TestLatestStateUnknownAgent(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents/ghost/state", nil)
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestDispatchCommand(t *testing.T) {
	srv, store := newTestServer(t)

	body := bytes.NewBufferString(`{"command":"set_speed_limit","params":{"kph":80}}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/agents/veh-42/commands", body)
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var got model.CommandIntent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "veh-42", got.AgentID)
	assert.Equal(t, "set_speed_limit", got.Command)
	assert.Equal(t, model.CommandStatusSent, got.Status)
	assert.False(t, got.IssuedAt.IsZero())

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.intents, 1)
	assert.Equal(t, got.ID, store.intents[0].ID)
}

func TestDispatchCommandMissingCommand(t *testing.T) {
	srv, store := newTestServer(t)

	body := bytes.NewBufferString(`{"params":{"kph":80}}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/agents/veh-42/commands", body)
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.intents)
}

func TestDispatchCommandMalformedBody(t *testing.T) {
	srv, store := newTestServer(t)

	body := bytes.NewBufferString(`{"command":`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/agents/veh-42/commands", body)
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.intents)
}

func TestHealthProbes(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Routes().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fgate_reports_ingested_total")
}
