package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/guardian/internal/config"
	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/responder"
	"github.com/oshokin/guardian/internal/service/client"
	"github.com/oshokin/guardian/internal/service/watch"
	"github.com/oshokin/guardian/internal/version"
)

var (
	// options shared by every subcommand.
	options client.Options

	// watchOptions of the watch subcommand.
	watchOptions watch.Options

	// profile fields edited by "register set".
	hospital        string
	vehicle         string
	license         string
	experienceYears int
	maxDistance     float64
	bio             string
	latitude        float64
	longitude       float64

	// rootCmd represents the base command of the responder client.
	rootCmd = &cobra.Command{
		Use:   "guardian-responder",
		Short: "Follow and act on the alerts assigned to you.",
		Long: `Responder client of the guardian alert backend.

The bearer token is read from GUARDIAN_TOKEN or from a .env file next to the
configuration file. Registration details and the weekly availability grid
are kept in a local draft until you submit them with "register".`,
		SilenceUsage: true,
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Keep the assigned alerts dashboard up to date.",
		Long: `Refreshes assigned alerts on start and every poll interval and prints the
dashboard whenever it changes. Optionally serves gRPC health (SERVING after a
successful refresh) and Prometheus metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			watchOptions.ConfigPath = options.ConfigPath
			watchOptions.BackendURL = options.BackendURL
			watchOptions.Out = cmd.OutOrStdout()

			return watch.Run(ctx, &watchOptions)
		},
	}

	alertsCmd = &cobra.Command{
		Use:   "alerts",
		Short: "Show the alerts assigned to you.",
		Args:  cobra.NoArgs,
		RunE: withResponder(func(ctx context.Context, r *client.Responder, _ []string) error {
			return r.Alerts(ctx)
		}),
	}

	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Show your responder profile.",
		Args:  cobra.NoArgs,
		RunE: withResponder(func(ctx context.Context, r *client.Responder, _ []string) error {
			return r.Profile(ctx)
		}),
	}

	registerCmd = &cobra.Command{
		Use:   "register",
		Short: "Submit the registration draft.",
		Args:  cobra.NoArgs,
		RunE: withResponder(func(ctx context.Context, r *client.Responder, _ []string) error {
			return r.Register(ctx)
		}),
	}

	registerShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the registration draft.",
		Args:  cobra.NoArgs,
		RunE: withResponder(func(ctx context.Context, r *client.Responder, _ []string) error {
			return r.ShowDraft(ctx)
		}),
	}

	registerSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Change fields of the registration draft.",
		Args:  cobra.NoArgs,
	}

	registerResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Discard the registration draft.",
		Args:  cobra.NoArgs,
		RunE: withResponder(func(ctx context.Context, r *client.Responder, _ []string) error {
			return r.ResetDraft(ctx)
		}),
	}

	certAddCmd = &cobra.Command{
		Use:   "add-cert <name>",
		Short: "Add a certification to the draft.",
		Args:  cobra.ExactArgs(1),
		RunE: withResponder(func(ctx context.Context, r *client.Responder, args []string) error {
			return r.EditDraft(ctx, func(reg *responder.Registration) error {
				reg.AddCertification(args[0])

				return nil
			})
		}),
	}

	certRemoveCmd = &cobra.Command{
		Use:   "remove-cert <index>",
		Short: "Remove a certification from the draft by its position, starting at 0.",
		Args:  cobra.ExactArgs(1),
		RunE: withResponder(func(ctx context.Context, r *client.Responder, args []string) error {
			i, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("certification index %q: %w", args[0], err)
			}

			return r.EditDraft(ctx, func(reg *responder.Registration) error {
				reg.RemoveCertification(i)

				return nil
			})
		}),
	}

	availabilityCmd = &cobra.Command{
		Use:   "availability",
		Short: "Show the weekly availability grid of the draft.",
		Args:  cobra.NoArgs,
		RunE: withResponder(func(ctx context.Context, r *client.Responder, _ []string) error {
			return r.ShowAvailability(ctx)
		}),
	}

	toggleCmd = &cobra.Command{
		Use:   "toggle <day> <hour>",
		Short: "Flip one hour of the grid.",
		Args:  cobra.ExactArgs(2),
		RunE: withResponder(func(ctx context.Context, r *client.Responder, args []string) error {
			day, err := responder.ParseWeekday(args[0])
			if err != nil {
				return err
			}

			hour, err := client.ParseHour(args[1])
			if err != nil {
				return err
			}

			if err := r.EditDraft(ctx, func(reg *responder.Registration) error {
				return reg.Availability.ToggleHour(day, hour)
			}); err != nil {
				return err
			}

			return r.ShowAvailability(ctx)
		}),
	}

	setDayCmd = &cobra.Command{
		Use:   "set-day <day> <on|off>",
		Short: "Mark a whole day available or unavailable.",
		Args:  cobra.ExactArgs(2),
		RunE: withResponder(func(ctx context.Context, r *client.Responder, args []string) error {
			day, err := responder.ParseWeekday(args[0])
			if err != nil {
				return err
			}

			on, err := parseSwitch(args[1])
			if err != nil {
				return err
			}

			if err := r.EditDraft(ctx, func(reg *responder.Registration) error {
				return reg.Availability.SetDay(day, on)
			}); err != nil {
				return err
			}

			return r.ShowAvailability(ctx)
		}),
	}
)

// Execute runs the guardian-responder CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withResponder wires a runtime before running fn.
func withResponder(
	fn func(ctx context.Context, r *client.Responder, args []string) error,
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		options.In = cmd.InOrStdin()
		options.Out = cmd.OutOrStdout()

		r, err := client.OpenResponder(ctx, &options)
		if err != nil {
			return err
		}

		return fn(ctx, r, args)
	}
}

// actionCommand builds acknowledge, resolve and cancel.
func actionCommand(action alert.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <alert-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withResponder(func(ctx context.Context, r *client.Responder, args []string) error {
			return r.Act(ctx, args[0], action)
		}),
	}
}

// applyProfileFlags copies the flags that were set into the draft.
func applyProfileFlags(reg *responder.Registration) error {
	flags := registerSetCmd.Flags()

	if flags.Changed("hospital") {
		reg.Hospital = hospital
	}

	if flags.Changed("vehicle") {
		reg.VehicleType = responder.VehicleType(vehicle)
	}

	if flags.Changed("license") {
		reg.LicenseNumber = license
	}

	if flags.Changed("experience") {
		reg.ExperienceYears = experienceYears
	}

	if flags.Changed("max-distance") {
		reg.MaxDistanceKm = maxDistance
	}

	if flags.Changed("bio") {
		reg.Bio = bio
	}

	if flags.Changed("lat") && flags.Changed("lng") {
		reg.CurrentLocation = &responder.Position{Latitude: latitude, Longitude: longitude}
	}

	return nil
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on", "yes", "true":
		return true, nil
	case "off", "no", "false":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&options.BackendURL, "backend-url", "", "override backend_url from the configuration file")
	flags.BoolVarP(&options.AssumeYes, "yes", "y", false, "do not ask for confirmation")

	watchFlags := watchCmd.Flags()
	watchFlags.DurationVarP(&watchOptions.PollInterval, "interval", "i", 0,
		fmt.Sprintf("poll interval (default poll_interval from settings, %s if unset)", config.DefaultPollInterval))
	watchFlags.StringVar(&watchOptions.HealthAddress, "health-addr", "", "gRPC health listen address, e.g. :9090")
	watchFlags.StringVar(&watchOptions.MetricsAddress, "metrics-addr", "", "Prometheus metrics listen address, e.g. :9100")

	// Assigned here rather than in the literal: applyProfileFlags reads registerSetCmd's flags.
	registerSetCmd.RunE = withResponder(func(ctx context.Context, r *client.Responder, _ []string) error {
		return r.EditDraft(ctx, applyProfileFlags)
	})

	setFlags := registerSetCmd.Flags()
	setFlags.StringVar(&hospital, "hospital", "", "hospital or organisation")
	setFlags.StringVar(&vehicle, "vehicle", string(responder.DefaultVehicle), "car, motorcycle, bicycle or foot")
	setFlags.StringVar(&license, "license", "", "license number")
	setFlags.IntVar(&experienceYears, "experience", 0, "years of experience, 0 to 50")
	setFlags.Float64Var(&maxDistance, "max-distance", responder.DefaultMaxDistanceKm, "maximum travel distance in km, 1 to 100")
	setFlags.StringVar(&bio, "bio", "", "short bio")
	setFlags.Float64Var(&latitude, "lat", 0, "current latitude")
	setFlags.Float64Var(&longitude, "lng", 0, "current longitude")

	registerCmd.AddCommand(registerShowCmd, registerSetCmd, registerResetCmd, certAddCmd, certRemoveCmd)
	availabilityCmd.AddCommand(toggleCmd, setDayCmd)

	rootCmd.AddCommand(
		watchCmd,
		alertsCmd,
		profileCmd,
		actionCommand(alert.ActionAcknowledge, "Acknowledge an alert: you are on your way."),
		actionCommand(alert.ActionResolve, "Mark an acknowledged alert as completed."),
		actionCommand(alert.ActionCancel, "Cancel an active alert."),
		registerCmd,
		availabilityCmd,
	)
}
