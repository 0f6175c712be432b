package core

import (
	"context"
	"errors"
	"time"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core/model"
)

// ErrNotFound is returned by repositories when no record exists for a key.
var ErrNotFound = errors.New("not found")

// ReportLog is the append-only raw report history. Appends are issued
// fire-and-forget by the pipeline: a failed append is logged and counted
// but never blocks or fails ingestion.
type ReportLog interface {
	// Append records one report. Idempotent per (agentId, ts).
	Append(ctx context.Context, report *model.Report, receivedAt time.Time) error
}

// LatestStateRepository maintains the per-agent latest-state projection.
// Per-agent uniqueness is enforced by the store itself; the gateway only
// issues whole-record replacement writes.
type LatestStateRepository interface {
	// Upsert replaces the record for report.AgentID. Last write wins on
	// the store's own write ordering.
	Upsert(ctx context.Context, report *model.Report, receivedAt time.Time) error

	// Get returns the current record for one agent, or ErrNotFound.
	Get(ctx context.Context, agentID string) (*model.LatestStateRecord, error)
}

// CommandRepository is the durable command intent log.
type CommandRepository interface {
	// Append records one intent. The intent is never updated afterwards.
	Append(ctx context.Context, intent *model.CommandIntent) error
}

// Repository aggregates the durable store's collections.
type Repository interface {
	Reports() ReportLog
	States() LatestStateRepository
	Commands() CommandRepository
}
