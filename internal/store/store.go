package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/guardian/internal/domain/alert"
)

// Key names a cached alert query.
type Key string

// Alert queries.
const (
	// KeyUserAlerts is the patient's own alert list.
	KeyUserAlerts Key = "user-alerts"
	// KeyAssignedAlerts is the responder's assigned alert list.
	KeyAssignedAlerts Key = "assigned-alerts"
)

// KeyForRole returns the alert list a role works with.
func KeyForRole(role alert.Role) Key {
	if role == alert.RoleResponder {
		return KeyAssignedAlerts
	}

	return KeyUserAlerts
}

// Fetcher loads an alert list from the backend.
type Fetcher func(ctx context.Context) ([]*alert.Alert, error)

// AlertSnapshot is a snapshot of an alert query.
type AlertSnapshot = Snapshot[*alert.Alert]

// errUnknownQuery is returned for keys that were never registered.
var errUnknownQuery = errors.New("unknown query")

// Store owns the cached alert lists of one actor. Callers only ever see
// clones; the cache changes only by applying a whole fetched list.
type Store struct {
	mu      sync.RWMutex
	queries map[Key]*Query[*alert.Alert]
	opts    []Option
}

// New returns an empty store.
func New(opts ...Option) *Store {
	return &Store{
		queries: make(map[Key]*Query[*alert.Alert]),
		opts:    opts,
	}
}

// Register binds key to fetch. Registering a key twice replaces the query
// and drops its snapshot.
func (s *Store) Register(key Key, fetch Fetcher) {
	q := NewQuery[*alert.Alert](string(key), fetch, (*alert.Alert).Clone, alertID, s.opts...)

	s.mu.Lock()
	s.queries[key] = q
	s.mu.Unlock()
}

// Refresh fetches key, sharing a fetch already in flight.
func (s *Store) Refresh(ctx context.Context, key Key) (AlertSnapshot, error) {
	q, err := s.query(key)
	if err != nil {
		return AlertSnapshot{}, err
	}

	return q.Refresh(ctx)
}

// Invalidate refetches key after a mutation.
func (s *Store) Invalidate(ctx context.Context, key Key) (AlertSnapshot, error) {
	q, err := s.query(key)
	if err != nil {
		return AlertSnapshot{}, err
	}

	return q.Invalidate(ctx)
}

// Snapshot returns the cached list and whether it was ever loaded.
func (s *Store) Snapshot(key Key) (AlertSnapshot, bool) {
	q, err := s.query(key)
	if err != nil {
		return AlertSnapshot{}, false
	}

	return q.Snapshot()
}

// Get returns a clone of the cached alert.
func (s *Store) Get(key Key, id string) (*alert.Alert, bool) {
	q, err := s.query(key)
	if err != nil {
		return nil, false
	}

	return q.Get(id)
}

// Status returns the cached status of the alert.
func (s *Store) Status(key Key, id string) (alert.Status, bool) {
	a, ok := s.Get(key, id)
	if !ok {
		return "", false
	}

	return a.Status, true
}

func (s *Store) query(key Key) (*Query[*alert.Alert], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.queries[key]
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, errUnknownQuery)
	}

	return q, nil
}

func alertID(a *alert.Alert) string {
	return a.ID
}
