package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder("fleet/v1")

	assert.Equal(t, "fleet/v1/telemetry", b.Telemetry())
	assert.Equal(t, "fleet/v1/cmd/vehicle-042", b.Command("vehicle-042"))
}
