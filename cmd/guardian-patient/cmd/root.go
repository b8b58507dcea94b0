package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/guardian/internal/config"
	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/trusted"
	"github.com/oshokin/guardian/internal/service/client"
	"github.com/oshokin/guardian/internal/version"
)

var (
	// options shared by every subcommand.
	options client.Options

	// alertType of the panic subcommand.
	alertType string
	// searchQuery filters facilities by name, address or type.
	searchQuery string

	// trustedPreset and the fields below fill a new trusted location.
	trustedPreset  string
	trustedName    string
	trustedAddress string
	trustedLat     float64
	trustedLng     float64
	trustedRadius  float64
	trustedNotes   string

	// rootCmd represents the base command of the patient client.
	rootCmd = &cobra.Command{
		Use:   "guardian-patient",
		Short: "Raise emergency alerts and follow them.",
		Long: `Patient client of the guardian alert backend.

The bearer token is read from GUARDIAN_TOKEN or from a .env file next to the
configuration file. Your position comes from the location fix file or the
static coordinates in the configuration.`,
		SilenceUsage: true,
	}

	panicCmd = &cobra.Command{
		Use:   "panic",
		Short: "Send an emergency alert with your current position.",
		Long: `Acquires a fresh position and sends one alert. The request is never retried:
if the connection fails you are told the alert may have been sent, and you
should check "alerts" before sending another one.`,
		Args: cobra.NoArgs,
		RunE: withPatient(func(ctx context.Context, p *client.Patient, _ []string) error {
			return p.Panic(ctx, alert.Type(alertType))
		}),
	}

	alertsCmd = &cobra.Command{
		Use:   "alerts",
		Short: "Show your incident log.",
		Args:  cobra.NoArgs,
		RunE: withPatient(func(ctx context.Context, p *client.Patient, _ []string) error {
			return p.Alerts(ctx)
		}),
	}

	deleteCmd = &cobra.Command{
		Use:   "delete <alert-id>",
		Short: "Delete one of your alerts.",
		Args:  cobra.ExactArgs(1),
		RunE: withPatient(func(ctx context.Context, p *client.Patient, args []string) error {
			return p.Delete(ctx, args[0])
		}),
	}

	facilitiesCmd = &cobra.Command{
		Use:   "facilities",
		Short: "List medical facilities near you, nearest first.",
		Args:  cobra.NoArgs,
		RunE: withPatient(func(ctx context.Context, p *client.Patient, _ []string) error {
			return p.Facilities(ctx, searchQuery)
		}),
	}

	trustedCmd = &cobra.Command{
		Use:   "trusted-locations",
		Short: "List your trusted locations.",
		Args:  cobra.NoArgs,
		RunE: withPatient(func(ctx context.Context, p *client.Patient, _ []string) error {
			return p.TrustedLocations(ctx)
		}),
	}

	trustedAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Add a trusted location (presets: home, work, custom).",
		Args:  cobra.NoArgs,
	}
)

// Execute runs the guardian-patient CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withPatient wires a runtime before running fn.
func withPatient(fn func(ctx context.Context, p *client.Patient, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		options.In = cmd.InOrStdin()
		options.Out = cmd.OutOrStdout()

		p, err := client.OpenPatient(ctx, &options)
		if err != nil {
			return err
		}

		return fn(ctx, p, args)
	}
}

// trustedDraft builds a draft from the preset and the flags that were set.
func trustedDraft() *trusted.Draft {
	d := trusted.NewDraft(trusted.Preset(trustedPreset))

	if trustedName != "" {
		d.Name = trustedName
	}

	d.Address = trustedAddress
	d.Notes = trustedNotes

	if trustedRadius > 0 {
		d.Radius = trustedRadius
	}

	if trustedAddCmd.Flags().Changed("lat") && trustedAddCmd.Flags().Changed("lng") {
		lat, lng := trustedLat, trustedLng
		d.Latitude = &lat
		d.Longitude = &lng
	}

	return d
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&options.BackendURL, "backend-url", "", "override backend_url from the configuration file")
	flags.BoolVarP(&options.AssumeYes, "yes", "y", false, "do not ask for confirmation")

	panicCmd.Flags().StringVarP(&alertType, "type", "t", "", "alert type: manual, panic, fall or medical")
	facilitiesCmd.Flags().StringVarP(&searchQuery, "search", "q", "", "filter by name, address or type")

	// Assigned here rather than in the literal: trustedDraft reads trustedAddCmd's flags.
	trustedAddCmd.RunE = withPatient(func(ctx context.Context, p *client.Patient, _ []string) error {
		return p.AddTrustedLocation(ctx, trustedDraft())
	})

	addFlags := trustedAddCmd.Flags()
	addFlags.StringVar(&trustedPreset, "preset", string(trusted.PresetCustom), "home, work or custom")
	addFlags.StringVar(&trustedName, "name", "", "name of the place; presets fill it")
	addFlags.StringVar(&trustedAddress, "address", "", "street address")
	addFlags.Float64Var(&trustedLat, "lat", 0, "latitude")
	addFlags.Float64Var(&trustedLng, "lng", 0, "longitude")
	addFlags.Float64Var(&trustedRadius, "radius", 0, "geofence radius in meters")
	addFlags.StringVar(&trustedNotes, "notes", "", "free-form notes")

	trustedCmd.AddCommand(trustedAddCmd)
	rootCmd.AddCommand(panicCmd, alertsCmd, deleteCmd, facilitiesCmd, trustedCmd)
}
