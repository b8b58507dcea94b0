package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/facility"
	"github.com/oshokin/guardian/internal/location"
	"github.com/oshokin/guardian/internal/session"
)

type fakeAPI struct {
	calls int
	got   alert.Location
	list  []facility.Facility
	err   error
}

func (f *fakeAPI) AvailableResponders(
	_ context.Context,
	_ *session.Session,
	loc alert.Location,
) ([]facility.Facility, error) {
	f.calls++
	f.got = loc

	return f.list, f.err
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{list: []facility.Facility{
		{ID: "f1", Name: "Guy's Hospital", Type: "hospital"},
		{ID: "f2", Name: "Riverside Clinic", Type: "clinic"},
		{ID: "f3", Name: "St Thomas' Hospital", Type: "hospital"},
	}}

	svc := New(api, location.StaticProvider{Latitude: 51.509, Longitude: -0.118})

	list, err := svc.Discover(t.Context(), nil)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.InDelta(t, 51.509, api.got.Latitude, 1e-9)

	found, err := svc.Search(t.Context(), nil, "HOSPITAL")
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, []string{"f1", "f3"}, []string{found[0].ID, found[1].ID})
}

func TestDiscoverRequiresLocation(t *testing.T) {
	t.Parallel()

	api := new(fakeAPI)
	denied := location.ProviderFunc(func(context.Context) (alert.Location, error) {
		return alert.Location{}, location.ErrPermissionDenied
	})

	_, err := New(api, denied).Discover(t.Context(), nil)
	require.ErrorIs(t, err, location.ErrLocationRequired)
	require.ErrorIs(t, err, location.ErrPermissionDenied)
	require.Zero(t, api.calls)
}

func TestDiscoverPassesBackendErrors(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{err: alert.ErrNetwork}

	_, err := New(api, location.StaticProvider{}).Discover(t.Context(), nil)
	require.ErrorIs(t, err, alert.ErrNetwork)
}
