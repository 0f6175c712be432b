package model

import "time"

// Report is one telemetry sample from one agent at one instant. A Report
// is immutable once validated; the pipeline only copies and forwards it.
type Report struct {
	// AgentID is the opaque identifier of the reporting agent.
	AgentID string `json:"agentId"`

	// TS is the agent-reported sample instant (epoch milliseconds).
	// Out-of-order arrival across reports is possible and accepted.
	TS float64 `json:"ts"`

	SpeedKph     float64 `json:"speedKph"`
	SoC          float64 `json:"soc"`
	BatteryTempC float64 `json:"batteryTempC"`
	MotorTempC   float64 `json:"motorTempC"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`

	// Faults is an ordered list of fault codes; semantics are opaque to
	// the gateway. Never nil after validation.
	Faults []string `json:"faults"`

	// Metadata is an open mapping the gateway transports but never inspects.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// LatestStateRecord is the latest-state projection entry for one agent:
// the most recently accepted Report plus the server-side receive time.
// At most one record exists per AgentID; every write replaces the prior
// record wholesale.
type LatestStateRecord struct {
	AgentID    string    `json:"agentId"`
	Report     *Report   `json:"report"`
	ReceivedAt time.Time `json:"receivedAt"`
}
