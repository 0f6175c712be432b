package gateway

import (
	"github.com/fleetgate-io/fleetgate/pkg/options"
)

// Config is the complete, validated runtime configuration of the gateway.
type Config struct {
	HTTP     *options.HttpOptions
	Stream   *options.StreamOptions
	MQTT     *options.MqttOptions
	Postgres *options.PostgresOptions
	S3       *options.S3Options
}
