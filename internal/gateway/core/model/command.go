package model

import "time"

// CommandStatus is the lifecycle phase of a command intent.
type CommandStatus string

const (
	// CommandStatusSent is the initial and, for this gateway, final
	// status: the intent is recorded and published. Delivery and ack
	// tracking belong to downstream services.
	CommandStatusSent CommandStatus = "sent"
)

// CommandIntent is one recorded control directive addressed to an agent.
// It is appended once to the durable log and never mutated afterwards.
type CommandIntent struct {
	// ID is the unique trace ID of the intent.
	ID string `json:"id"`

	// AgentID is the target agent.
	AgentID string `json:"agentId"`

	// Command is the directive identifier; semantics are opaque here.
	Command string `json:"command"`

	// Params carries command-specific arguments, never inspected.
	Params map[string]any `json:"params,omitempty"`

	// IssuedAt is when the dispatch request was accepted.
	IssuedAt time.Time `json:"issuedAt"`

	Status CommandStatus `json:"status"`
}
