package service

import (
	"context"
	"errors"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core"
	"github.com/fleetgate-io/fleetgate/internal/gateway/core/model"
)

// LatestState returns the latest-state projection for one agent. An agent
// that has never reported yields (nil, nil), not an error.
func (s *Service) LatestState(ctx context.Context, agentID string) (*model.LatestStateRecord, error) {
	record, err := s.states.Get(ctx, agentID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}
