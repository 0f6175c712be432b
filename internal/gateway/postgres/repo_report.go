package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core/model"
)

type reportLog struct {
	db *sql.DB
}

// Append inserts one report into the append-only history. ON CONFLICT DO
// NOTHING makes replays of the same (agent_id, ts) sample idempotent.
func (r *reportLog) Append(ctx context.Context, report *model.Report, receivedAt time.Time) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reports (agent_id, ts, report, received_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (agent_id, ts) DO NOTHING`,
		report.AgentID, report.TS, payload, receivedAt,
	)
	if err != nil {
		return fmt.Errorf("append report: %w", err)
	}
	return nil
}
