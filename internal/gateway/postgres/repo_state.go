package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core"
	"github.com/fleetgate-io/fleetgate/internal/gateway/core/model"
)

type stateRepository struct {
	db *sql.DB
}

// Upsert replaces the latest-state record for the report's agent. The
// primary key on agent_id guarantees at most one record per agent; the
// whole record is replaced, never merged. Concurrent upserts for the same
// agent resolve last-write-wins on the store's own write ordering.
func (r *stateRepository) Upsert(ctx context.Context, report *model.Report, receivedAt time.Time) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO agent_states (agent_id, report, received_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (agent_id) DO UPDATE
		 SET report = EXCLUDED.report, received_at = EXCLUDED.received_at`,
		report.AgentID, payload, receivedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert latest state: %w", err)
	}
	return nil
}

// Get returns the current latest-state record for one agent.
func (r *stateRepository) Get(ctx context.Context, agentID string) (*model.LatestStateRecord, error) {
	var (
		payload    []byte
		receivedAt time.Time
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT report, received_at FROM agent_states WHERE agent_id = $1`,
		agentID,
	).Scan(&payload, &receivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest state: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode latest state: %w", err)
	}

	return &model.LatestStateRecord{
		AgentID:    agentID,
		Report:     &report,
		ReceivedAt: receivedAt,
	}, nil
}
