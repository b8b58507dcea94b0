package alert

import "time"

// Status is the lifecycle position of an alert.
type Status string

// Alert statuses.
const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusCancelled    Status = "cancelled"
)

// Statuses lists every known status in lifecycle order.
//
//nolint:gochecknoglobals // Read-only table.
var Statuses = []Status{StatusActive, StatusAcknowledged, StatusResolved, StatusCancelled}

// IsKnown reports whether the status is one of the four lifecycle states.
func (s Status) IsKnown() bool {
	switch s {
	case StatusActive, StatusAcknowledged, StatusResolved, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition may leave the status.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// Label returns the user-facing name of the status.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusAcknowledged:
		return "Acknowledged"
	case StatusResolved:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Type is the kind of emergency. The set is open: unknown values reported by
// the backend are kept verbatim.
type Type string

// Known alert types.
const (
	TypeManual  Type = "manual"
	TypePanic   Type = "panic"
	TypeFall    Type = "fall"
	TypeMedical Type = "medical"
)

// Address is the reverse-geocoded address attached to an alert origin.
type Address struct {
	Formatted  string
	Street     string
	City       string
	State      string
	Country    string
	PostalCode string
}

// Location is a single position fix.
type Location struct {
	// Latitude in decimal degrees.
	Latitude float64
	// Longitude in decimal degrees.
	Longitude float64
	// Accuracy is the fix radius in meters.
	Accuracy float64
	// Address is set by the backend after reverse geocoding, if available.
	Address *Address
	// StaticMapURL points to a rendered map of the origin, if available.
	StaticMapURL string
}

// Patient describes the person who raised the alert as seen by a responder.
type Patient struct {
	FullName   string
	Phone      string
	BloodType  string
	Conditions []string
	Allergies  []string
}

// RouteInfo is backend-computed travel data. The client only displays it.
type RouteInfo struct {
	DistanceText     string
	DurationText     string
	EstimatedArrival time.Time
}

// Assignment links an alert to the responder the backend picked for it.
type Assignment struct {
	ResponderID string
	Name        string
	Phone       string
	Route       RouteInfo
}

// Alert is the last known state of an emergency alert.
type Alert struct {
	// ID is assigned by the backend and never changes.
	ID string
	// Type is fixed at creation.
	Type Type
	// Status is the current lifecycle state.
	Status Status
	// Origin is where the alert was raised.
	Origin Location
	// CreatedAt is the backend creation time.
	CreatedAt time.Time
	// Patient is present in responder views.
	Patient *Patient
	// AssignedResponder is set by the backend out of band and may change between polls.
	AssignedResponder *Assignment
}

// Clone returns a deep copy of the alert.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}

	cloned := *a

	if a.Origin.Address != nil {
		address := *a.Origin.Address
		cloned.Origin.Address = &address
	}

	if a.Patient != nil {
		patient := *a.Patient
		patient.Conditions = append([]string(nil), a.Patient.Conditions...)
		patient.Allergies = append([]string(nil), a.Patient.Allergies...)
		cloned.Patient = &patient
	}

	if a.AssignedResponder != nil {
		assignment := *a.AssignedResponder
		cloned.AssignedResponder = &assignment
	}

	return &cloned
}

// CloneAll deep-copies a slice of alerts.
func CloneAll(alerts []*Alert) []*Alert {
	if alerts == nil {
		return nil
	}

	result := make([]*Alert, len(alerts))
	for i, a := range alerts {
		result[i] = a.Clone()
	}

	return result
}
