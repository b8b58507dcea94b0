package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/responder"
	"github.com/oshokin/guardian/internal/location"
	"github.com/oshokin/guardian/internal/logger"
	"github.com/oshokin/guardian/internal/repository/draft"
	"github.com/oshokin/guardian/internal/service/common"
	"github.com/oshokin/guardian/internal/service/dashboard"
)

// Responder runs responder commands.
type Responder struct {
	rt      *common.Runtime
	drafts  draft.Repository
	console Console
}

// OpenResponder loads settings and returns responder commands. The
// registration draft lives in the draft_file from settings.
func OpenResponder(ctx context.Context, opts *Options) (*Responder, error) {
	rt, err := setup(ctx, opts, alert.RoleResponder)
	if err != nil {
		return nil, err
	}

	return NewResponder(rt, draft.NewFileRepository(rt.Config.DraftFile), NewConsole(opts)), nil
}

// NewResponder binds commands to a runtime and a draft store.
func NewResponder(rt *common.Runtime, drafts draft.Repository, console Console) *Responder {
	return &Responder{rt: rt, drafts: drafts, console: console}
}

// Alerts refreshes the assigned list and prints the dashboard.
func (r *Responder) Alerts(ctx context.Context) error {
	if _, err := r.rt.Store.Refresh(ctx, r.rt.Key); err != nil {
		return r.console.notify(ctx, err)
	}

	return r.render(ctx)
}

// Act applies a status change. Cancelling asks for confirmation first.
func (r *Responder) Act(ctx context.Context, id string, action alert.Action) error {
	ctx = logger.WithName(ctx, string(action))

	if action.IsDestructive() {
		prompt := fmt.Sprintf("%s alert %s? This cannot be undone.", titleCase(string(action)), id)
		if err := dashboard.Require(r.console.Confirm, prompt); err != nil {
			return r.console.notify(ctx, err)
		}
	}

	updated, err := r.rt.Executor().Transition(ctx, r.rt.Session, id, action)
	if err != nil {
		notifyErr := r.console.notify(ctx, err)
		if renderErr := r.render(ctx); renderErr != nil {
			logger.DebugKV(ctx, "Alert list not shown", "error", renderErr)
		}

		return notifyErr
	}

	fmt.Fprintf(r.console.Out, "Alert %s is now %s.\n", updated.ID, updated.Status.Label())

	return r.render(ctx)
}

// Profile prints the responder profile.
func (r *Responder) Profile(ctx context.Context) error {
	profile, err := r.rt.API.ResponderProfile(ctx, r.rt.Session)
	if err != nil {
		return r.console.notify(ctx, err)
	}

	fmt.Fprintf(r.console.Out, "%s | %s | status: %s | vehicle: %s | experience: %d years\n",
		profile.FullName, profile.Email, profile.Status, profile.VehicleType, profile.ExperienceYears)

	return nil
}

// Draft loads the saved registration draft or a new one.
func (r *Responder) Draft(ctx context.Context) (*responder.Registration, error) {
	reg, err := r.drafts.Load(ctx)
	if errors.Is(err, draft.ErrNotFound) {
		return responder.NewRegistration(), nil
	}

	return reg, err
}

// EditDraft applies edit to the saved draft and stores the result.
func (r *Responder) EditDraft(ctx context.Context, edit func(*responder.Registration) error) error {
	reg, err := r.Draft(ctx)
	if err != nil {
		return r.console.notify(ctx, err)
	}

	if err := edit(reg); err != nil {
		return r.console.notify(ctx, err)
	}

	if err := r.drafts.Save(ctx, reg); err != nil {
		return r.console.notify(ctx, err)
	}

	return nil
}

// ResetDraft discards the saved draft.
func (r *Responder) ResetDraft(ctx context.Context) error {
	if err := r.drafts.Delete(ctx); err != nil {
		return r.console.notify(ctx, err)
	}

	fmt.Fprintln(r.console.Out, "Draft discarded.")

	return nil
}

// ShowDraft prints the draft as YAML.
func (r *Responder) ShowDraft(ctx context.Context) error {
	reg, err := r.Draft(ctx)
	if err != nil {
		return r.console.notify(ctx, err)
	}

	enc := yaml.NewEncoder(r.console.Out)
	defer enc.Close()

	return enc.Encode(reg)
}

// ShowAvailability prints the draft grid, one row per day.
func (r *Responder) ShowAvailability(ctx context.Context) error {
	reg, err := r.Draft(ctx)
	if err != nil {
		return r.console.notify(ctx, err)
	}

	var b strings.Builder

	b.WriteString("           0         1         2\n")
	b.WriteString("           012345678901234567890123\n")

	for _, day := range responder.Weekdays {
		hours, _ := reg.Availability.Hours(day)

		fmt.Fprintf(&b, "%-10s ", day)

		for _, on := range hours {
			if on {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}

		b.WriteByte('\n')
	}

	_, err = fmt.Fprint(r.console.Out, b.String())

	return err
}

// Register submits the draft. A draft without a position takes the current
// one from the location provider.
func (r *Responder) Register(ctx context.Context) error {
	reg, err := r.Draft(ctx)
	if err != nil {
		return r.console.notify(ctx, err)
	}

	if reg.CurrentLocation == nil {
		loc, err := r.rt.Location.Acquire(ctx)
		if err != nil {
			return r.console.notify(ctx, fmt.Errorf("%w: %w", location.ErrLocationRequired, err))
		}

		reg.CurrentLocation = &responder.Position{Latitude: loc.Latitude, Longitude: loc.Longitude}
	}

	if err := reg.Validate(); err != nil {
		return r.console.notify(ctx, err)
	}

	profile, err := r.rt.API.RegisterResponder(ctx, r.rt.Session, reg)
	if err != nil {
		return r.console.notify(ctx, err)
	}

	if err := r.drafts.Save(ctx, reg); err != nil {
		logger.WarnKV(ctx, "Draft not saved", "error", err)
	}

	if profile == nil {
		profile, err = r.rt.API.ResponderProfile(ctx, r.rt.Session)
		if err != nil {
			logger.DebugKV(ctx, "Profile unavailable after registration", "error", err)

			fmt.Fprintln(r.console.Out, "Registration submitted.")

			return nil
		}
	}

	fmt.Fprintf(r.console.Out, "Registered as %s, status: %s.\n", profile.FullName, profile.Status)

	return nil
}

func (r *Responder) render(ctx context.Context) error {
	snap, _ := r.rt.Store.Snapshot(r.rt.Key)

	profile, err := r.rt.API.ResponderProfile(ctx, r.rt.Session)
	if err != nil {
		logger.DebugKV(ctx, "Profile unavailable", "error", err)

		profile = nil
	}

	return dashboard.ResponderView(profile, snap).Render(r.console.Out)
}

// ParseHour parses an hour of the availability grid.
func ParseHour(s string) (int, error) {
	hour, err := strconv.Atoi(s)
	if err != nil || hour < 0 || hour >= responder.HoursPerDay {
		return 0, fmt.Errorf("%q: %w", s, responder.ErrHourOutOfRange)
	}

	return hour, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
