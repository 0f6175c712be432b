package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core/model"
)

type commandRepository struct {
	db *sql.DB
}

// Append records one command intent. The row is never updated afterwards;
// delivery and ack tracking belong to downstream services.
func (r *commandRepository) Append(ctx context.Context, intent *model.CommandIntent) error {
	var params []byte
	if intent.Params != nil {
		var err error
		if params, err = json.Marshal(intent.Params); err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO commands (id, agent_id, command, params, issued_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		intent.ID, intent.AgentID, intent.Command, params, intent.IssuedAt, string(intent.Status),
	)
	if err != nil {
		return fmt.Errorf("append command intent: %w", err)
	}
	return nil
}
