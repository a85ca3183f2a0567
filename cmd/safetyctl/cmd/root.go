package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/safeguardian/internal/config"
	client "github.com/oshokin/safeguardian/internal/service/client"
	"github.com/oshokin/safeguardian/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the configured server address.
	serverAddress string

	// rootCmd is the safetyctl entry point; the work happens in subcommands.
	rootCmd = &cobra.Command{
		Use:   "safetyctl",
		Short: "Control a safety server.",
		Long: `Sends commands to a running safety server: trigger or cancel SOS, manage
emergency contacts, toggle check-ins, siren and notifications, inspect the
alert log and follow live events.

Server address is loaded from the configuration file unless --server is given.`,
		SilenceUsage: true,
	}
)

// Execute runs the safetyctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run opens a session for the duration of one command.
func run(fn func(ctx context.Context, s *client.Session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		session, err := client.Open(ctx, &client.Options{
			ConfigPath:    cfgPath,
			ServerAddress: serverAddress,
			Out:           cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}

		defer func() {
			_ = session.Close()
		}()

		return fn(ctx, session, args)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "override the server address")

	rootCmd.AddCommand(
		newSOSCommand(),
		newContactsCommand(),
		newSwitchCommand("siren", "Enable or disable the siren during SOS.", (*client.Session).SetSiren),
		newSwitchCommand("checkin", "Enable or disable periodic location check-ins.", (*client.Session).ToggleCheckin),
		newSwitchCommand("notifications", "Enable or disable user-facing notifications.",
			(*client.Session).SetNotifications),
		newMessagesCommand(),
		newTestAlertCommand(),
		newLocationCommand(),
		newDangerCommand(),
		newWatchCommand(),
	)
}
