package topic

import "fmt"

// Constants defining the standard topic segments. These act as the wire
// contract between gateway instances; changing them breaks compatibility
// with running gateways and any external subscribers.
const (
	// SuffixTelemetry is the shared channel carrying every validated Report.
	// Structure: {root}/telemetry
	SuffixTelemetry = "telemetry"

	// SuffixCommand is the per-agent channel carrying CommandIntents.
	// Structure: {root}/cmd/{agentId}
	SuffixCommand = "cmd"
)

// Builder constructs MQTT topic strings under a fixed root namespace.
type Builder struct {
	root string
}

// NewBuilder creates a Builder with the given root namespace (e.g. "fleet/v1").
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// Telemetry returns the shared report channel.
func (b *Builder) Telemetry() string {
	return fmt.Sprintf("%s/%s", b.root, SuffixTelemetry)
}

// Command returns the command channel for one agent.
func (b *Builder) Command(agentID string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, SuffixCommand, agentID)
}
