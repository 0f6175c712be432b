package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core"
	"github.com/fleetgate-io/fleetgate/internal/gateway/core/model"
	"github.com/fleetgate-io/fleetgate/internal/gateway/metrics"
	"github.com/fleetgate-io/fleetgate/pkg/log"
)

// IngestReport runs one raw ingest frame through the pipeline:
// validate, record, project, fan out, publish.
//
// The raw log append and the cross-process publish are best-effort and
// detached; the latest-state upsert is awaited before fan-out so that a
// query issued after a fan-out never observes older state than the report
// just delivered. A failed upsert is surfaced to the operator but does
// not withhold the report from observers.
//
// The returned error is only ever a validation rejection; the caller on
// the ingest connection drops it silently.
func (s *Service) IngestReport(ctx context.Context, raw []byte) error {
	report, err := core.ParseReport(raw)
	if err != nil {
		metrics.ReportsRejected.Inc()
		return err
	}

	receivedAt := time.Now().UTC()

	// The fan-out payload is the validated Report re-serialized to JSON,
	// delivered verbatim on both paths.
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrMalformedReport, err)
	}

	s.recordAsync(report, raw, receivedAt)

	if err := s.states.Upsert(ctx, report, receivedAt); err != nil {
		metrics.ProjectionFailures.Inc()
		log.Error(err, "latest-state upsert failed, fanning out anyway", "agentId", report.AgentID)
	}

	s.local.Broadcast(payload)
	s.publishReportAsync(payload, report.AgentID)

	metrics.ReportsIngested.Inc()
	return nil
}

// recordAsync appends the report to the raw log and, when configured,
// archives the original payload. Fire-and-forget relative to the pipeline:
// losing an occasional sample under store pressure is preferable to
// backpressuring live ingestion.
func (s *Service) recordAsync(report *model.Report, raw []byte, receivedAt time.Time) {
	rawCopy := make([]byte, len(raw))
	copy(rawCopy, raw)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.asyncTimeout)
		defer cancel()

		if err := s.reports.Append(ctx, report, receivedAt); err != nil {
			metrics.RawLogFailures.Inc()
			log.Error(err, "raw log append failed", "agentId", report.AgentID, "ts", report.TS)
		}

		if s.archiver != nil {
			if err := s.archiver.Archive(ctx, report.AgentID, report.TS, rawCopy); err != nil {
				log.Warn("raw payload archive failed", "agentId", report.AgentID, "reason", err.Error())
			}
		}
	}()
}

func (s *Service) publishReportAsync(payload []byte, agentID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.asyncTimeout)
		defer cancel()

		if err := s.broker.PublishReport(ctx, payload); err != nil {
			metrics.PublishFailures.Inc()
			log.Warn("telemetry publish dropped", "agentId", agentID, "reason", err.Error())
		}
	}()
}
