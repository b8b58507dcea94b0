package watch

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/guardian/internal/api/grpc/health"
	"github.com/oshokin/guardian/internal/config"
	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/responder"
	"github.com/oshokin/guardian/internal/sandbox"
	"github.com/oshokin/guardian/internal/session"
	"github.com/oshokin/guardian/internal/store"
)

type fakeProfiles struct {
	profile *responder.Profile
	err     error
	calls   int
}

func (f *fakeProfiles) ResponderProfile(context.Context, *session.Session) (*responder.Profile, error) {
	f.calls++

	return f.profile, f.err
}

// lockedBuffer is written by the poll goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func testSnapshot(version uint64, status alert.Status) store.AlertSnapshot {
	return store.AlertSnapshot{
		Query:   string(store.KeyAssignedAlerts),
		Version: version,
		Items: []*alert.Alert{{
			ID:        "A1",
			Type:      alert.TypeManual,
			Status:    status,
			CreatedAt: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		}},
	}
}

func TestWatcher_RendersOnlyChanges(t *testing.T) {
	t.Parallel()

	sess, err := session.New("responder-token", alert.RoleResponder, "R1")
	require.NoError(t, err)

	var out bytes.Buffer

	profiles := &fakeProfiles{profile: &responder.Profile{FullName: "Grace Hopper", Status: "available"}}
	w := newWatcher(profiles, sess, health.NewReporter(HealthService), &out)

	w.handle(t.Context(), testSnapshot(1, alert.StatusActive), nil)
	first := out.Len()
	require.Positive(t, first)
	require.Contains(t, out.String(), "Grace Hopper")

	// Same rows under a newer version render nothing.
	w.handle(t.Context(), testSnapshot(2, alert.StatusActive), nil)
	require.Equal(t, first, out.Len())

	w.handle(t.Context(), testSnapshot(3, alert.StatusAcknowledged), nil)
	require.Greater(t, out.Len(), first)
	require.Equal(t, 3, profiles.calls)
}

func TestWatcher_ReportsFailure(t *testing.T) {
	t.Parallel()

	sess, err := session.New("responder-token", alert.RoleResponder, "")
	require.NoError(t, err)

	var out bytes.Buffer

	profiles := &fakeProfiles{err: alert.ErrNotFound}
	w := newWatcher(profiles, sess, health.NewReporter(HealthService), &out)

	w.handle(t.Context(), store.AlertSnapshot{}, errors.Join(alert.ErrNetwork, errors.New("dial tcp")))
	require.NotEmpty(t, out.String())
	require.Zero(t, profiles.calls)

	// A missing profile still renders the list.
	w.handle(t.Context(), testSnapshot(1, alert.StatusActive), nil)
	require.Contains(t, out.String(), "Assigned alerts")
}

func TestRun_AgainstSandbox(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)

	b := sandbox.NewBackend(nil)
	srv := httptest.NewServer(sandbox.NewServer(b).Handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, &config.Config{BackendURL: srv.URL}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultEnvFilename),
		[]byte(config.TokenEnv+"=responder-token\n"), 0o600))

	ctx, cancel := context.WithCancel(t.Context())
	out := new(lockedBuffer)
	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, &Options{ConfigPath: path, PollInterval: time.Hour, Out: out})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Assigned alerts")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
