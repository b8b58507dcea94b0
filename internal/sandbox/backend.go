package sandbox

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/facility"
	"github.com/oshokin/guardian/internal/domain/responder"
	"github.com/oshokin/guardian/internal/domain/trusted"
)

// DefaultReplayTTL is how long an idempotency key replays its alert.
const DefaultReplayTTL = 10 * time.Minute

const (
	replayCleanupPeriod  = time.Minute
	idempotencyKeyPrefix = "idem:"

	profileAvailable   = "available"
	profileUnavailable = "unavailable"
)

// Backend is the in-memory state of the sandbox.
type Backend struct {
	mu sync.Mutex

	users      map[string]*User
	facilities []facility.Facility

	alerts    map[string]*alert.Alert
	order     []string
	owners    map[string]string
	assignees map[string]string

	responders    []string
	registrations map[string]*responder.Registration
	trusted       map[string][]trusted.Location

	replays *gocache.Cache
	now     func() time.Time
	newID   func() string
}

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithBackendClock replaces the time source of created alerts.
func WithBackendClock(now func() time.Time) BackendOption {
	return func(b *Backend) {
		b.now = now
	}
}

// WithIDGenerator replaces the id source of created records.
func WithIDGenerator(newID func() string) BackendOption {
	return func(b *Backend) {
		b.newID = newID
	}
}

// NewBackend returns a backend holding the seed.
func NewBackend(seed *Seed, opts ...BackendOption) *Backend {
	if seed == nil {
		seed = DefaultSeed()
	}

	b := &Backend{
		users:         make(map[string]*User, len(seed.Users)),
		facilities:    slices.Clone(seed.Facilities),
		alerts:        make(map[string]*alert.Alert),
		owners:        make(map[string]string),
		assignees:     make(map[string]string),
		registrations: make(map[string]*responder.Registration),
		trusted:       make(map[string][]trusted.Location),
		replays:       gocache.New(DefaultReplayTTL, replayCleanupPeriod),
		now:           time.Now,
		newID:         uuid.NewString,
	}

	for i := range seed.Users {
		u := seed.Users[i]
		b.users[u.Token] = &u
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Authenticate resolves a bearer token.
func (b *Backend) Authenticate(token string) (*User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[token]
	if !ok || token == "" {
		return nil, fmt.Errorf("invalid or expired token: %w", alert.ErrUnauthenticated)
	}

	return u, nil
}

// CreateAlert stores a new active alert for the patient. A repeated
// idempotency key returns the alert created first and replay=true.
func (b *Backend) CreateAlert(
	patient *User,
	typ alert.Type,
	origin alert.Location,
	idempotencyKey string,
) (created *alert.Alert, replay bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	replayKey := ""
	if idempotencyKey != "" {
		replayKey = idempotencyKeyPrefix + patient.ID + ":" + idempotencyKey

		if id, found := b.replays.Get(replayKey); found {
			if existing, ok := b.alerts[id.(string)]; ok {
				return patientCopy(existing), true, nil
			}
		}
	}

	if typ == "" {
		typ = alert.TypeManual
	}

	a := &alert.Alert{
		ID:        b.newID(),
		Type:      typ,
		Status:    alert.StatusActive,
		Origin:    origin,
		CreatedAt: b.now().UTC(),
		Patient: &alert.Patient{
			FullName:   patient.FullName,
			Phone:      patient.Phone,
			BloodType:  patient.BloodType,
			Conditions: slices.Clone(patient.Conditions),
			Allergies:  slices.Clone(patient.Allergies),
		},
	}

	if len(b.responders) > 0 {
		r := b.userByID(b.responders[0])
		a.AssignedResponder = &alert.Assignment{
			ResponderID: r.ID,
			Name:        r.FullName,
			Phone:       r.Phone,
		}
		b.assignees[a.ID] = r.ID
	}

	b.alerts[a.ID] = a
	b.owners[a.ID] = patient.ID
	b.order = append(b.order, a.ID)

	if replayKey != "" {
		b.replays.Set(replayKey, a.ID, gocache.DefaultExpiration)
	}

	return patientCopy(a), false, nil
}

// UserAlerts lists the patient's alerts, newest first.
func (b *Backend) UserAlerts(patient *User) []*alert.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.collect(func(id string) bool { return b.owners[id] == patient.ID }, patientCopy)
}

// AssignedAlerts lists the alerts assigned to the responder, newest first.
func (b *Backend) AssignedAlerts(r *User) []*alert.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.collect(func(id string) bool { return b.assignees[id] == r.ID }, (*alert.Alert).Clone)
}

// Apply performs a status-changing action for the assigned responder.
func (b *Backend) Apply(r *User, id string, action alert.Action) (*alert.Alert, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	a, ok := b.alerts[id]
	if !ok || b.assignees[id] != r.ID {
		return nil, fmt.Errorf("alert %s: %w", id, alert.ErrNotFound)
	}

	next, err := alert.Next(r.Role, a.Status, action)
	if err != nil {
		return nil, err
	}

	a.Status = next

	return a.Clone(), nil
}

// Delete removes one of the patient's alerts.
func (b *Backend) Delete(patient *User, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.alerts[id]; !ok || b.owners[id] != patient.ID {
		return fmt.Errorf("alert %s: %w", id, alert.ErrNotFound)
	}

	delete(b.alerts, id)
	delete(b.owners, id)
	delete(b.assignees, id)

	b.order = slices.DeleteFunc(b.order, func(v string) bool { return v == id })

	return nil
}

// Facilities returns the seeded facilities in seed order.
func (b *Backend) Facilities() []facility.Facility {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.facilities)
}

// Register stores or replaces the responder's registration. The first
// registration puts the responder in the assignment queue.
func (b *Backend) Register(r *User, reg *responder.Registration) (*responder.Profile, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.registrations[r.ID]; !ok {
		b.responders = append(b.responders, r.ID)
	}

	b.registrations[r.ID] = reg

	return b.profile(r, reg), nil
}

// Profile returns the responder profile.
func (b *Backend) Profile(r *User) (*responder.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	reg, ok := b.registrations[r.ID]
	if !ok {
		return nil, fmt.Errorf("responder %s is not registered: %w", r.ID, alert.ErrNotFound)
	}

	return b.profile(r, reg), nil
}

// TrustedLocations lists the user's trusted places in insertion order.
func (b *Backend) TrustedLocations(u *User) []trusted.Location {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.trusted[u.ID])
}

// AddTrustedLocation validates and stores a trusted place.
func (b *Backend) AddTrustedLocation(u *User, draft *trusted.Draft) (trusted.Location, error) {
	if err := draft.Validate(); err != nil {
		return trusted.Location{}, err
	}

	loc := trusted.Location{
		ID:      b.newID(),
		Name:    strings.TrimSpace(draft.Name),
		Address: strings.TrimSpace(draft.Address),
		Radius:  draft.Radius,
		IsHome:  draft.IsHome,
		Notes:   draft.Notes,
	}

	if draft.Latitude != nil && draft.Longitude != nil {
		loc.Latitude = *draft.Latitude
		loc.Longitude = *draft.Longitude
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.trusted[u.ID] = append(b.trusted[u.ID], loc)

	return loc, nil
}

func (b *Backend) collect(keep func(id string) bool, view func(*alert.Alert) *alert.Alert) []*alert.Alert {
	result := make([]*alert.Alert, 0, len(b.order))

	for i := len(b.order) - 1; i >= 0; i-- {
		id := b.order[i]
		if keep(id) {
			result = append(result, view(b.alerts[id]))
		}
	}

	return result
}

// patientCopy hides the patient's own record, as the real API does.
func patientCopy(a *alert.Alert) *alert.Alert {
	c := a.Clone()
	c.Patient = nil

	return c
}

func (b *Backend) userByID(id string) *User {
	for _, u := range b.users {
		if u.ID == id {
			return u
		}
	}

	return &User{ID: id}
}

func (b *Backend) profile(r *User, reg *responder.Registration) *responder.Profile {
	status := profileUnavailable

	for _, day := range responder.Weekdays {
		hours, _ := reg.Availability.Hours(day)
		if slices.Contains(hours, true) {
			status = profileAvailable

			break
		}
	}

	return &responder.Profile{
		ID:              r.ID,
		FullName:        r.FullName,
		Email:           r.Email,
		Phone:           r.Phone,
		Status:          status,
		VehicleType:     reg.VehicleType,
		ExperienceYears: reg.ExperienceYears,
		Hospital:        reg.Hospital,
	}
}
