package alerting

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/location"
	"github.com/oshokin/guardian/internal/session"
	"github.com/oshokin/guardian/internal/store"
)

// fakeAPI is an in-memory backend enforcing the same action table.
type fakeAPI struct {
	mu          sync.Mutex
	alerts      map[string]*alert.Alert
	order       []string
	keys        []string
	creates     int
	transitions int
	fetches     int
	createErr   error
}

func newFakeAPI(alerts ...*alert.Alert) *fakeAPI {
	f := &fakeAPI{alerts: make(map[string]*alert.Alert)}
	for _, a := range alerts {
		f.alerts[a.ID] = a
		f.order = append(f.order, a.ID)
	}

	return f
}

func (f *fakeAPI) CreatePanic(
	_ context.Context,
	_ *session.Session,
	typ alert.Type,
	loc alert.Location,
	key string,
) (*alert.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates++
	f.keys = append(f.keys, key)

	if f.createErr != nil {
		return nil, f.createErr
	}

	a := &alert.Alert{
		ID:     fmt.Sprintf("A%d", len(f.order)+1),
		Type:   typ,
		Status: alert.StatusActive,
		Origin: loc,
	}
	f.alerts[a.ID] = a
	f.order = append(f.order, a.ID)

	return a.Clone(), nil
}

func (f *fakeAPI) Transition(
	_ context.Context,
	sess *session.Session,
	id string,
	action alert.Action,
) (*alert.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.transitions++

	a, ok := f.alerts[id]
	if !ok {
		return nil, alert.ErrNotFound
	}

	next, err := alert.Next(sess.Role, a.Status, action)
	if err != nil {
		return nil, err
	}

	a.Status = next

	return a.Clone(), nil
}

func (f *fakeAPI) DeleteAlert(_ context.Context, _ *session.Session, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.alerts[id]; !ok {
		return alert.ErrNotFound
	}

	delete(f.alerts, id)

	return nil
}

func (f *fakeAPI) list(context.Context) ([]*alert.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++

	var result []*alert.Alert

	for _, id := range f.order {
		if a, ok := f.alerts[id]; ok {
			result = append(result, a.Clone())
		}
	}

	return result, nil
}

// setStatus changes the backend state behind the client's back.
func (f *fakeAPI) setStatus(id string, status alert.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.alerts[id].Status = status
}

func newCache(api *fakeAPI) *store.Store {
	s := store.New()
	s.Register(store.KeyUserAlerts, api.list)
	s.Register(store.KeyAssignedAlerts, api.list)

	return s
}

func mustSession(t *testing.T, role alert.Role) *session.Session {
	t.Helper()

	sess, err := session.New("token", role, "")
	require.NoError(t, err)

	return sess
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	cache := newCache(api)
	sub := NewSubmitter(api, cache)
	sess := mustSession(t, alert.RolePatient)

	loc := alert.Location{Latitude: 51.509, Longitude: -0.118, Accuracy: 15}

	id, err := sub.Submit(t.Context(), sess, "", loc)
	require.NoError(t, err)

	snap, ok := cache.Snapshot(store.KeyUserAlerts)
	require.True(t, ok)
	require.Len(t, snap.Items, 1)
	require.Equal(t, id, snap.Items[0].ID)
	require.Equal(t, alert.StatusActive, snap.Items[0].Status)
	require.Equal(t, alert.TypeManual, snap.Items[0].Type)

	// A deliberate resubmission is a distinct request.
	_, err = sub.Submit(t.Context(), sess, alert.TypeManual, loc)
	require.NoError(t, err)
	require.Len(t, api.keys, 2)
	require.NotEqual(t, api.keys[0], api.keys[1])
}

func TestSubmitDoesNotRetry(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.createErr = fmt.Errorf("create panic alert: %w: connection reset", alert.ErrNetwork)

	sub := NewSubmitter(api, newCache(api))

	_, err := sub.Submit(t.Context(), mustSession(t, alert.RolePatient), alert.TypeManual,
		alert.Location{Latitude: 1, Longitude: 2})
	require.ErrorIs(t, err, alert.ErrNetwork)
	require.True(t, IsAmbiguous(err))
	require.Equal(t, 1, api.creates)
	require.Zero(t, api.fetches)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	sub := NewSubmitter(api, newCache(api))

	_, err := sub.Submit(t.Context(), mustSession(t, alert.RolePatient), alert.TypeManual,
		alert.Location{Latitude: 91, Longitude: 0})
	require.ErrorIs(t, err, alert.ErrValidation)
	require.False(t, IsAmbiguous(err))

	_, err = sub.Submit(t.Context(), mustSession(t, alert.RoleResponder), alert.TypeManual,
		alert.Location{Latitude: 1, Longitude: 1})
	require.ErrorIs(t, err, alert.ErrUnauthorized)

	require.Zero(t, api.creates)
}

func TestSubmitFromProviderNeedsLocation(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	sub := NewSubmitter(api, newCache(api))

	failing := location.ProviderFunc(func(context.Context) (alert.Location, error) {
		return alert.Location{}, location.ErrTimeout
	})

	_, err := sub.SubmitFromProvider(t.Context(), mustSession(t, alert.RolePatient), alert.TypeManual, failing)
	require.ErrorIs(t, err, location.ErrLocationRequired)
	require.ErrorIs(t, err, location.ErrTimeout)
	require.Zero(t, api.creates)

	id, err := sub.SubmitFromProvider(t.Context(), mustSession(t, alert.RolePatient), alert.TypeManual,
		location.StaticProvider{Latitude: 51.509, Longitude: -0.118, Accuracy: 15})
	require.NoError(t, err)
	require.NotEmpty(t, id)
}

func TestAcknowledgeThenCancel(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(&alert.Alert{ID: "A1", Type: alert.TypeManual, Status: alert.StatusActive})
	cache := newCache(api)
	exec := NewExecutor(api, cache)
	sess := mustSession(t, alert.RoleResponder)

	_, err := cache.Refresh(t.Context(), store.KeyAssignedAlerts)
	require.NoError(t, err)

	updated, err := exec.Transition(t.Context(), sess, "A1", alert.ActionAcknowledge)
	require.NoError(t, err)
	require.Equal(t, alert.StatusAcknowledged, updated.Status)

	// The cache was refreshed before Transition returned.
	status, ok := cache.Status(store.KeyAssignedAlerts, "A1")
	require.True(t, ok)
	require.Equal(t, alert.StatusAcknowledged, status)

	_, err = exec.Transition(t.Context(), sess, "A1", alert.ActionCancel)
	require.ErrorIs(t, err, alert.ErrInvalidTransition)
	require.Equal(t, 1, api.transitions)

	status, _ = cache.Status(store.KeyAssignedAlerts, "A1")
	require.Equal(t, alert.StatusAcknowledged, status)
}

func TestBackendRefusalRefreshesStaleView(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(&alert.Alert{ID: "A1", Type: alert.TypeManual, Status: alert.StatusActive})
	cache := newCache(api)
	exec := NewExecutor(api, cache)

	_, err := cache.Refresh(t.Context(), store.KeyAssignedAlerts)
	require.NoError(t, err)

	// Another actor cancelled the alert; the local view still says active.
	api.setStatus("A1", alert.StatusCancelled)

	_, err = exec.Transition(t.Context(), mustSession(t, alert.RoleResponder), "A1", alert.ActionAcknowledge)
	require.ErrorIs(t, err, alert.ErrInvalidTransition)

	status, ok := cache.Status(store.KeyAssignedAlerts, "A1")
	require.True(t, ok)
	require.Equal(t, alert.StatusCancelled, status)
}

func TestPatientCannotTransition(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(&alert.Alert{ID: "A1", Status: alert.StatusActive})
	exec := NewExecutor(api, newCache(api))

	_, err := exec.Transition(t.Context(), mustSession(t, alert.RolePatient), "A1", alert.ActionAcknowledge)
	require.ErrorIs(t, err, alert.ErrUnauthorized)
	require.Zero(t, api.transitions)

	_, err = exec.Transition(t.Context(), mustSession(t, alert.RoleResponder), "A1", alert.ActionDelete)
	require.ErrorIs(t, err, alert.ErrInvalidTransition)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(
		&alert.Alert{ID: "A1", Status: alert.StatusResolved},
		&alert.Alert{ID: "A2", Status: alert.StatusActive},
	)
	cache := newCache(api)
	exec := NewExecutor(api, cache)

	require.ErrorIs(t, exec.Delete(t.Context(), mustSession(t, alert.RoleResponder), "A1"), alert.ErrUnauthorized)

	require.NoError(t, exec.Delete(t.Context(), mustSession(t, alert.RolePatient), "A1"))

	snap, ok := cache.Snapshot(store.KeyUserAlerts)
	require.True(t, ok)
	require.Len(t, snap.Items, 1)
	require.Equal(t, "A2", snap.Items[0].ID)

	require.ErrorIs(t, exec.Delete(t.Context(), mustSession(t, alert.RolePatient), "A1"), alert.ErrNotFound)
}
