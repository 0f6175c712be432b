package app

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fleetgate-io/fleetgate/cmd/fgate-gateway/app/options"
	"github.com/fleetgate-io/fleetgate/internal/gateway"
	"github.com/fleetgate-io/fleetgate/pkg/log"
)

const commandDesc = `The FleetGate gateway terminates agent telemetry streams, persists
every report to the durable store, maintains the per-agent latest-state
projection, fans reports out to connected observers and dispatches
commands back to agents.

Configuration is resolved from flags, a config file (--config) and
FGATE_* environment variables, in that order of precedence.`

var configFile string

// NewGatewayCommand builds the root command of the gateway process.
func NewGatewayCommand(ctx context.Context) *cobra.Command {
	opts := options.NewGatewayOptions()

	cmd := &cobra.Command{
		Use:          "fgate-gateway",
		Short:        "Launch the FleetGate telemetry gateway",
		Long:         commandDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd, opts)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			log.Init(opts.Log)

			if errs := opts.Validate(); len(errs) > 0 {
				return errors.Join(errs...)
			}

			server, err := gateway.NewGatewayServer(ctx, opts.Config())
			if err != nil {
				log.Error(err, "failed to create gateway server")
				return err
			}

			return server.Run(ctx)
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the gateway configuration file.")
	opts.AddFlags(cmd.Flags())

	return cmd
}

// loadConfig merges the config file and FGATE_* environment variables into
// the options. Flags set explicitly on the command line win.
func loadConfig(cmd *cobra.Command, opts *options.GatewayOptions) error {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	v.SetEnvPrefix("FGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	return v.Unmarshal(opts)
}
