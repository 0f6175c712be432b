package service

import (
	"time"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core"
)

const defaultAsyncTimeout = 10 * time.Second

// Service implements the gateway's core use cases: the ingest pipeline,
// command dispatch and latest-state queries. It orchestrates calls between
// the domain model and the adapters injected here.
type Service struct {
	reports  core.ReportLog
	states   core.LatestStateRepository
	commands core.CommandRepository

	broker   core.Broker
	local    core.Broadcaster
	archiver core.Archiver // optional, may be nil

	// asyncTimeout bounds the detached best-effort writes (raw log,
	// archive, publish) so a dead backend cannot pile up goroutines.
	asyncTimeout time.Duration
}

// New creates the core service. Dependency injection happens here; the
// archiver is optional and may be nil.
func New(repo core.Repository, broker core.Broker, local core.Broadcaster, archiver core.Archiver) *Service {
	return &Service{
		reports:      repo.Reports(),
		states:       repo.States(),
		commands:     repo.Commands(),
		broker:       broker,
		local:        local,
		archiver:     archiver,
		asyncTimeout: defaultAsyncTimeout,
	}
}
