package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core/model"
	"github.com/fleetgate-io/fleetgate/internal/gateway/metrics"
	"github.com/fleetgate-io/fleetgate/pkg/log"
)

// ErrInvalidCommand marks a dispatch request rejected before any side
// effect. This is the only user-visible error in the gateway core.
var ErrInvalidCommand = errors.New("invalid command request")

// DispatchCommand records a command intent durably and publishes it on the
// agent's channel. The call succeeds once the durable append completes;
// the publish is opportunistic and its failure is only logged. The durable
// record is the source of truth.
func (s *Service) DispatchCommand(ctx context.Context, agentID, command string, params map[string]any) (*model.CommandIntent, error) {
	if agentID == "" {
		return nil, fmt.Errorf("%w: agentId is required", ErrInvalidCommand)
	}
	if command == "" {
		return nil, fmt.Errorf("%w: command is required", ErrInvalidCommand)
	}

	intent := &model.CommandIntent{
		ID:       uuid.NewString(),
		AgentID:  agentID,
		Command:  command,
		Params:   params,
		IssuedAt: time.Now().UTC(),
		Status:   model.CommandStatusSent,
	}

	if err := s.commands.Append(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to record command intent: %w", err)
	}

	s.publishCommandAsync(intent)

	metrics.CommandsDispatched.Inc()
	return intent, nil
}

func (s *Service) publishCommandAsync(intent *model.CommandIntent) {
	payload, err := json.Marshal(intent)
	if err != nil {
		log.Error(err, "command intent marshal failed", "id", intent.ID)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.asyncTimeout)
		defer cancel()

		if err := s.broker.PublishCommand(ctx, intent.AgentID, payload); err != nil {
			metrics.PublishFailures.Inc()
			log.Warn("command publish dropped", "agentId", intent.AgentID, "id", intent.ID, "reason", err.Error())
		}
	}()
}
