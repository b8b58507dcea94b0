package client

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/facility"
	"github.com/oshokin/guardian/internal/domain/trusted"
	"github.com/oshokin/guardian/internal/logger"
	"github.com/oshokin/guardian/internal/service/alerting"
	"github.com/oshokin/guardian/internal/service/common"
	"github.com/oshokin/guardian/internal/service/dashboard"
)

// Patient runs patient commands.
type Patient struct {
	rt      *common.Runtime
	console Console
}

// OpenPatient loads settings and returns patient commands.
func OpenPatient(ctx context.Context, opts *Options) (*Patient, error) {
	rt, err := setup(ctx, opts, alert.RolePatient)
	if err != nil {
		return nil, err
	}

	return NewPatient(rt, NewConsole(opts)), nil
}

// NewPatient binds commands to a runtime.
func NewPatient(rt *common.Runtime, console Console) *Patient {
	return &Patient{rt: rt, console: console}
}

// Panic asks for confirmation, acquires a fresh position and raises an
// alert. The submission is sent at most once.
func (p *Patient) Panic(ctx context.Context, typ alert.Type) error {
	ctx = logger.WithName(ctx, "panic")

	if err := dashboard.Require(p.console.Confirm, "Send an emergency alert now?"); err != nil {
		return p.console.notify(ctx, err)
	}

	id, err := p.rt.Submitter().SubmitFromProvider(ctx, p.rt.Session, typ, p.rt.Location)
	if err != nil {
		fmt.Fprintln(p.console.Out, dashboard.NotifySubmission(err, alerting.IsAmbiguous(err)))

		return err
	}

	fmt.Fprintf(p.console.Out, "Alert %s sent. Help is on the way.\n", id)

	return p.render()
}

// Alerts refreshes and prints the incident log.
func (p *Patient) Alerts(ctx context.Context) error {
	if _, err := p.rt.Store.Refresh(ctx, p.rt.Key); err != nil {
		return p.console.notify(ctx, err)
	}

	return p.render()
}

// Delete removes an alert after confirmation.
func (p *Patient) Delete(ctx context.Context, id string) error {
	prompt := fmt.Sprintf("Delete alert %s? This cannot be undone.", id)
	if err := dashboard.Require(p.console.Confirm, prompt); err != nil {
		return p.console.notify(ctx, err)
	}

	if err := p.rt.Executor().Delete(ctx, p.rt.Session, id); err != nil {
		if renderErr := p.render(); renderErr != nil {
			logger.DebugKV(ctx, "Alert list not shown", "error", renderErr)
		}

		return p.console.notify(ctx, err)
	}

	fmt.Fprintf(p.console.Out, "Alert %s deleted.\n", id)

	return p.render()
}

// Facilities lists nearby facilities, optionally filtered by query.
func (p *Patient) Facilities(ctx context.Context, query string) error {
	svc := p.rt.Discovery()

	var (
		list []facility.Facility
		err  error
	)

	if query == "" {
		list, err = svc.Discover(ctx, p.rt.Session)
	} else {
		list, err = svc.Search(ctx, p.rt.Session, query)
	}

	if err != nil {
		return p.console.notify(ctx, err)
	}

	if len(list) == 0 {
		fmt.Fprintln(p.console.Out, "No facilities found.")

		return nil
	}

	tw := tabwriter.NewWriter(p.console.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tDISTANCE\tRESPONDERS\tEMERGENCY\tADDRESS")

	for _, f := range list {
		emergency := "no"
		if f.EmergencyServices {
			emergency = "yes"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			f.Name, f.Type, f.FormattedDistance, f.AvailableResponders, emergency, f.Address)
	}

	return tw.Flush()
}

// TrustedLocations prints the user's trusted places.
func (p *Patient) TrustedLocations(ctx context.Context) error {
	snap, err := p.rt.Trusted.Refresh(ctx)
	if err != nil {
		return p.console.notify(ctx, err)
	}

	return renderTrusted(p.console, snap.Items)
}

// AddTrustedLocation validates and stores a trusted place, then prints the
// refreshed list.
func (p *Patient) AddTrustedLocation(ctx context.Context, draft *trusted.Draft) error {
	created, err := p.rt.AddTrustedLocation(ctx, draft)
	if err != nil {
		return p.console.notify(ctx, err)
	}

	fmt.Fprintf(p.console.Out, "Trusted location %q added.\n", created.Name)

	snap, ok := p.rt.Trusted.Snapshot()
	if !ok {
		return nil
	}

	return renderTrusted(p.console, snap.Items)
}

func (p *Patient) render() error {
	snap, _ := p.rt.Store.Snapshot(p.rt.Key)

	return dashboard.PatientView(snap).Render(p.console.Out)
}

func renderTrusted(console Console, list []trusted.Location) error {
	if len(list) == 0 {
		fmt.Fprintln(console.Out, "No trusted locations.")

		return nil
	}

	tw := tabwriter.NewWriter(console.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tRADIUS\tHOME")

	for _, l := range list {
		home := ""
		if l.IsHome {
			home = "yes"
		}

		fmt.Fprintf(tw, "%s\t%s\t%.0f m\t%s\n", l.Name, l.Address, l.Radius, home)
	}

	return tw.Flush()
}
