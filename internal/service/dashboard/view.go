package dashboard

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/responder"
	"github.com/oshokin/guardian/internal/store"
)

const (
	timeLayout  = "2006-01-02 15:04"
	clockLayout = "15:04"
	placeholder = "-"
)

// Row is one alert as displayed.
type Row struct {
	ID          string
	Type        alert.Type
	Status      alert.Status
	StatusLabel string
	CreatedAt   time.Time
	Address     string
	Latitude    float64
	Longitude   float64
	// Patient is set in responder views.
	Patient *alert.Patient
	// Responder, Distance, Duration and ETA come from the backend assignment.
	Responder string
	Distance  string
	Duration  string
	ETA       string
	// Actions are the affordances offered for the row's status.
	Actions []alert.Action
}

// View is a rendered-ready dashboard.
type View struct {
	Role      alert.Role
	Title     string
	Profile   *responder.Profile
	Rows      []Row
	Version   uint64
	FetchedAt time.Time
}

// PatientView builds the patient's incident log.
func PatientView(snap store.AlertSnapshot) View {
	return buildView(alert.RolePatient, "Incident log", nil, snap)
}

// ResponderView builds the responder dashboard. profile may be nil.
func ResponderView(profile *responder.Profile, snap store.AlertSnapshot) View {
	return buildView(alert.RoleResponder, "Assigned alerts", profile, snap)
}

func buildView(role alert.Role, title string, profile *responder.Profile, snap store.AlertSnapshot) View {
	view := View{
		Role:      role,
		Title:     title,
		Profile:   profile,
		Rows:      make([]Row, 0, len(snap.Items)),
		Version:   snap.Version,
		FetchedAt: snap.FetchedAt,
	}

	for _, a := range snap.Items {
		view.Rows = append(view.Rows, newRow(role, a))
	}

	return view
}

func newRow(role alert.Role, a *alert.Alert) Row {
	row := Row{
		ID:          a.ID,
		Type:        a.Type,
		Status:      a.Status,
		StatusLabel: a.Status.Label(),
		CreatedAt:   a.CreatedAt,
		Latitude:    a.Origin.Latitude,
		Longitude:   a.Origin.Longitude,
		Patient:     a.Patient,
		Actions:     alert.Actions(role, a.Status),
	}

	if a.Origin.Address != nil {
		row.Address = a.Origin.Address.Formatted
	}

	if r := a.AssignedResponder; r != nil {
		row.Responder = r.Name
		row.Distance = r.Route.DistanceText
		row.Duration = r.Route.DurationText

		if !r.Route.EstimatedArrival.IsZero() {
			row.ETA = r.Route.EstimatedArrival.Format(clockLayout)
		}
	}

	return row
}

// SameContent reports whether both views show the same data, ignoring when
// it was fetched.
func (v View) SameContent(other View) bool {
	return v.Role == other.Role &&
		reflect.DeepEqual(v.Profile, other.Profile) &&
		reflect.DeepEqual(v.Rows, other.Rows)
}

// Render writes the view as text.
func (v View) Render(w io.Writer) error {
	var b strings.Builder

	b.WriteString(v.Title)

	if !v.FetchedAt.IsZero() {
		fmt.Fprintf(&b, " (updated %s)", v.FetchedAt.Format(time.TimeOnly))
	}

	b.WriteString("\n")

	if p := v.Profile; p != nil {
		fmt.Fprintf(&b, "%s | status: %s | vehicle: %s | experience: %d years\n",
			orDash(p.FullName), orDash(p.Status), orDash(string(p.VehicleType)), p.ExperienceYears)
	}

	if len(v.Rows) == 0 {
		b.WriteString("No alerts.\n")

		_, err := io.WriteString(w, b.String())

		return err
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	if v.Role == alert.RoleResponder {
		return v.renderCards(w)
	}

	return v.renderTable(w)
}

// renderTable prints the patient log, one line per alert.
func (v View) renderTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tSTATUS\tTYPE\tCREATED\tLOCATION\tRESPONDER\tETA")

	for _, r := range v.Rows {
		eta := r.Duration
		if r.ETA != "" {
			eta = strings.TrimSpace(r.Duration + " (" + r.ETA + ")")
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.StatusLabel,
			r.Type,
			formatTime(r.CreatedAt),
			orDash(r.location()),
			orDash(r.Responder),
			orDash(eta))
	}

	return tw.Flush()
}

// renderCards prints one block per alert with patient and route details.
func (v View) renderCards(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%d alert(s)\n", len(v.Rows))

	for _, r := range v.Rows {
		fmt.Fprintf(&b, "\n%s  %s  %s  %s\n", r.ID, strings.ToUpper(string(r.Type)), r.StatusLabel, formatTime(r.CreatedAt))

		if p := r.Patient; p != nil {
			fmt.Fprintf(&b, "  Patient: %s (%s)\n", orDash(p.FullName), orDash(p.Phone))

			if p.BloodType != "" {
				fmt.Fprintf(&b, "  Blood type: %s\n", p.BloodType)
			}

			if len(p.Conditions) > 0 {
				fmt.Fprintf(&b, "  Conditions: %s\n", strings.Join(p.Conditions, ", "))
			}

			if len(p.Allergies) > 0 {
				fmt.Fprintf(&b, "  Allergies: %s\n", strings.Join(p.Allergies, ", "))
			}
		}

		fmt.Fprintf(&b, "  Location: %s\n", orDash(r.location()))

		if r.Distance != "" || r.Duration != "" || r.ETA != "" {
			fmt.Fprintf(&b, "  Route: %s, %s, ETA %s\n", orDash(r.Distance), orDash(r.Duration), orDash(r.ETA))
		}

		if len(r.Actions) > 0 {
			names := make([]string, len(r.Actions))
			for i, a := range r.Actions {
				names[i] = string(a)
			}

			fmt.Fprintf(&b, "  Actions: %s\n", strings.Join(names, ", "))
		}
	}

	_, err := io.WriteString(w, b.String())

	return err
}

func (r *Row) location() string {
	if r.Address != "" {
		return r.Address
	}

	if r.Latitude == 0 && r.Longitude == 0 {
		return ""
	}

	return fmt.Sprintf("%.5f, %.5f", r.Latitude, r.Longitude)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return placeholder
	}

	return t.Format(timeLayout)
}

func orDash(s string) string {
	if s == "" {
		return placeholder
	}

	return s
}
