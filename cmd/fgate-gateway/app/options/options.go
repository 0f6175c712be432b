package options

import (
	"github.com/spf13/pflag"

	"github.com/fleetgate-io/fleetgate/internal/gateway"
	"github.com/fleetgate-io/fleetgate/pkg/log"
	"github.com/fleetgate-io/fleetgate/pkg/options"
)

var _ options.IOptions = (*GatewayOptions)(nil)

// GatewayOptions aggregates every configurable group of the gateway process.
type GatewayOptions struct {
	Http     *options.HttpOptions     `json:"http" mapstructure:"http"`
	Stream   *options.StreamOptions   `json:"stream" mapstructure:"stream"`
	Mqtt     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	Postgres *options.PostgresOptions `json:"postgres" mapstructure:"postgres"`
	S3       *options.S3Options       `json:"s3" mapstructure:"s3"`
	Log      *log.Options             `json:"log" mapstructure:"log"`
}

// NewGatewayOptions creates a GatewayOptions object with default parameters.
func NewGatewayOptions() *GatewayOptions {
	return &GatewayOptions{
		Http:     options.NewHttpOptions(),
		Stream:   options.NewStreamOptions(),
		Mqtt:     options.NewMqttOptions(),
		Postgres: options.NewPostgresOptions(),
		S3:       options.NewS3Options(),
		Log:      log.NewOptions(),
	}
}

// Validate checks every option group and accumulates the errors.
func (o *GatewayOptions) Validate() []error {
	var errs []error

	errs = append(errs, o.Http.Validate()...)
	errs = append(errs, o.Stream.Validate()...)
	errs = append(errs, o.Mqtt.Validate()...)
	errs = append(errs, o.Postgres.Validate()...)
	errs = append(errs, o.S3.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	return errs
}

// AddFlags adds all gateway flags to the specified FlagSet.
func (o *GatewayOptions) AddFlags(fs *pflag.FlagSet) {
	o.Http.AddFlags(fs)
	o.Stream.AddFlags(fs)
	o.Mqtt.AddFlags(fs)
	o.Postgres.AddFlags(fs)
	o.S3.AddFlags(fs)
	o.Log.AddFlags(fs)
}

// Config assembles the runtime configuration from the validated options.
func (o *GatewayOptions) Config() *gateway.Config {
	return &gateway.Config{
		HTTP:     o.Http,
		Stream:   o.Stream,
		MQTT:     o.Mqtt,
		Postgres: o.Postgres,
		S3:       o.S3,
	}
}
