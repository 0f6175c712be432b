package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsIngested counts reports accepted by the validator and pushed
	// through the pipeline.
	ReportsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgate_reports_ingested_total",
		Help: "Total number of valid reports ingested.",
	})

	// ReportsRejected counts malformed ingest payloads dropped silently.
	ReportsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgate_reports_rejected_total",
		Help: "Total number of malformed ingest payloads dropped.",
	})

	// RawLogFailures counts best-effort raw log appends that failed.
	RawLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgate_raw_log_failures_total",
		Help: "Total number of failed raw report log appends.",
	})

	// ProjectionFailures counts latest-state upserts that failed on the
	// critical path. The report is still fanned out.
	ProjectionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgate_projection_failures_total",
		Help: "Total number of failed latest-state projection upserts.",
	})

	// PublishFailures counts cross-process publishes dropped because the
	// pub/sub backend was unreachable.
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgate_publish_failures_total",
		Help: "Total number of dropped pub/sub publishes.",
	})

	// FanoutDropped counts observer connections dropped for falling behind
	// the broadcast stream.
	FanoutDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgate_fanout_dropped_total",
		Help: "Total number of observer connections dropped as slow consumers.",
	})

	// CommandsDispatched counts durably recorded command intents.
	CommandsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fgate_commands_dispatched_total",
		Help: "Total number of command intents dispatched.",
	})

	// ObserverConnections tracks currently connected observers.
	ObserverConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fgate_observer_connections",
		Help: "Number of currently connected observer connections.",
	})

	// IngestConnections tracks currently connected ingest agents.
	IngestConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fgate_ingest_connections",
		Help: "Number of currently connected ingest connections.",
	})
)
