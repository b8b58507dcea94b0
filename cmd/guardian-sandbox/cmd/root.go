package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/guardian/internal/config"
	"github.com/oshokin/guardian/internal/service/server"
	"github.com/oshokin/guardian/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// seedFile with users and facilities; the built-in seed is used when empty.
	seedFile string

	// rootCmd represents the base command for running the sandbox backend.
	rootCmd = &cobra.Command{
		Use:   "guardian-sandbox [listen-address]",
		Short: "Run an in-memory alert backend for local development.",
		Long: `Starts an HTTP server that implements the alert API in memory.

Seeded users authenticate with fixed bearer tokens (patient-token and
responder-token by default). A new alert is assigned to the first registered
responder. Nothing is persisted across restarts.

The port is taken from backend_url in the configuration file unless a listen
address is given as argument (e.g. :8080, 127.0.0.1:9090).`,
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
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				SeedFile:      seedFile,
			})
		},
	}
)

// Execute runs the guardian-sandbox CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&seedFile, "seed", "s", "", "path to a YAML seed with users and facilities")
}
