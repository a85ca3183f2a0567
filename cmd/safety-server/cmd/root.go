package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/safeguardian/internal/config"
	"github.com/oshokin/safeguardian/internal/service/server"
	"github.com/oshokin/safeguardian/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// storePath overrides the contact store path.
	storePath string
	// metricsAddress overrides the /metrics listen address.
	metricsAddress string

	// rootCmd represents the base command for running the gRPC server.
	rootCmd = &cobra.Command{
		Use:   "safety-server [listen-address]",
		Short: "Run the personal safety alert engine behind a gRPC API.",
		Long: `Starts the safety server: the SOS countdown, the emergency contact directory,
periodic location check-ins and danger detection, all exposed over gRPC.

Only the port from server_addr config is used for listening (e.g., :8080).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:8080).
Contacts are persisted to a JSON file, a SQLite database or Redis.
When mqtt.broker is set, alerts and notifications are published to the broker
and detection events are consumed from it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:     configPath,
				ListenAddress:  listenAddress,
				MetricsAddress: metricsAddress,
				StorePath:      storePath,
			})
		},
	}
)

// Execute runs the safety-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&storePath, "store-path", "s", "", "override the contact store path")
	rootCmd.Flags().StringVarP(&metricsAddress, "metrics-addr", "m", "", "override the metrics listen address")
}
