//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/guardian/internal/config"
	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/trusted"
	"github.com/oshokin/guardian/internal/location"
	"github.com/oshokin/guardian/internal/sandbox"
	"github.com/oshokin/guardian/internal/store"
)

func newSandbox(t *testing.T) *httptest.Server {
	t.Helper()

	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(sandbox.NewServer(sandbox.NewBackend(nil)).Handler())
	t.Cleanup(srv.Close)

	return srv
}

func testConfig(t *testing.T, backendURL, token string) *config.Config {
	t.Helper()

	cfg := &config.Config{BackendURL: backendURL, Token: token}
	require.NoError(t, config.Validate(cfg))

	return cfg
}

func TestNewLocationProvider(t *testing.T) {
	t.Parallel()

	lat, lng := 51.509, -0.118

	static := NewLocationProvider(config.Location{
		Latitude:       &lat,
		Longitude:      &lng,
		Accuracy:       15,
		AcquireTimeout: time.Second,
	})

	got, err := static.Acquire(t.Context())
	require.NoError(t, err)
	require.Equal(t, alert.Location{Latitude: lat, Longitude: lng, Accuracy: 15}, got)

	path := filepath.Join(t.TempDir(), "fix.yaml")
	require.NoError(t, location.WriteFix(path, location.Fix{
		Latitude:  48.85,
		Longitude: 2.35,
		Accuracy:  5,
		Timestamp: time.Now(),
	}))

	fromFile := NewLocationProvider(config.Location{
		FixFile:        path,
		MaxAge:         time.Hour,
		AcquireTimeout: time.Second,
		Latitude:       &lat,
		Longitude:      &lng,
	})

	got, err = fromFile.Acquire(t.Context())
	require.NoError(t, err)
	require.InDelta(t, 48.85, got.Latitude, 1e-9)

	_, err = NewLocationProvider(config.Location{AcquireTimeout: time.Second}).Acquire(t.Context())
	require.ErrorIs(t, err, location.ErrLocationUnavailable)
}

func TestNew_RequiresToken(t *testing.T) {
	t.Parallel()

	_, err := New(t.Context(), testConfig(t, "http://127.0.0.1:8080", ""), alert.RolePatient)
	require.ErrorIs(t, err, errNoToken)

	rt, err := New(t.Context(), testConfig(t, "http://127.0.0.1:8080", ""), alert.RoleResponder,
		WithToken("responder-token"))
	require.NoError(t, err)
	require.Equal(t, store.KeyAssignedAlerts, rt.Key)
	require.Equal(t, alert.RoleResponder, rt.Session.Role)
}

func TestRuntime_Patient(t *testing.T) {
	t.Parallel()

	srv := newSandbox(t)
	reg := prometheus.NewPedanticRegistry()

	rt, err := New(t.Context(), testConfig(t, "http://unused.invalid", "patient-token"), alert.RolePatient,
		WithBackendURL(srv.URL), WithRegisterer(reg))
	require.NoError(t, err)
	require.Equal(t, store.KeyUserAlerts, rt.Key)

	id, err := rt.Submitter().Submit(t.Context(), rt.Session, "",
		alert.Location{Latitude: 51.509, Longitude: -0.118, Accuracy: 15})
	require.NoError(t, err)

	snap, ok := rt.Store.Snapshot(rt.Key)
	require.True(t, ok)
	require.Len(t, snap.Items, 1)
	require.Equal(t, id, snap.Items[0].ID)

	draft := trusted.NewDraft(trusted.PresetWork)
	draft.Address = "1 Canada Square"

	created, err := rt.AddTrustedLocation(t.Context(), draft)
	require.NoError(t, err)

	places, ok := rt.Trusted.Snapshot()
	require.True(t, ok)
	require.Len(t, places.Items, 1)
	require.Equal(t, created.ID, places.Items[0].ID)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
