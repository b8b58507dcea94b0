package integration

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/guardian/internal/config"
	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/responder"
	"github.com/oshokin/guardian/internal/sandbox"
	"github.com/oshokin/guardian/internal/service/common"
	"github.com/oshokin/guardian/internal/service/server"
)

// startSandbox runs the sandbox process on a free port and returns its URL.
func startSandbox(t *testing.T) string {
	t.Helper()

	gin.SetMode(gin.TestMode)

	// Reserve a free port for the sandbox.
	l, err := (&net.ListenConfig{}).Listen(t.Context(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ListenAddress: addr})
	}()

	url := "http://" + addr

	// Wait until the sandbox answers.
	require.Eventually(t, func() bool {
		resp, err := http.Get(url + "/alert/user-alerts") //nolint:noctx // Readiness probe.
		if err != nil {
			return false
		}

		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusUnauthorized
	}, 5*time.Second, 20*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	return url
}

// writeSettings stores settings and a .env with the token in a fresh directory.
func writeSettings(t *testing.T, backendURL, token string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultConfigFilename)

	lat, lng := 51.509, -0.118
	require.NoError(t, config.Save(path, &config.Config{
		BackendURL: backendURL,
		Timeout:    3 * time.Second,
		Location:   config.Location{Latitude: &lat, Longitude: &lng, Accuracy: 15},
		DraftFile:  filepath.Join(dir, config.DefaultDraftFilename),
	}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultEnvFilename),
		[]byte(config.TokenEnv+"="+token+"\n"), 0o600))

	return path
}

func patientRuntime(t *testing.T, backendURL string) *common.Runtime {
	t.Helper()

	rt, err := common.Setup(t.Context(), writeSettings(t, backendURL, "patient-token"), alert.RolePatient)
	require.NoError(t, err)

	return rt
}

func responderRuntime(t *testing.T, backendURL string) *common.Runtime {
	t.Helper()

	rt, err := common.Setup(t.Context(), writeSettings(t, backendURL, "responder-token"), alert.RoleResponder)
	require.NoError(t, err)

	return rt
}

// registerResponder signs the seeded responder up so new alerts get assigned.
func registerResponder(t *testing.T, rt *common.Runtime) {
	t.Helper()

	reg := responder.NewRegistration()
	reg.LicenseNumber = "LIC-001"
	reg.CurrentLocation = &responder.Position{Latitude: 51.5, Longitude: -0.12}
	require.NoError(t, reg.Availability.SetDay(responder.Monday, true))

	profile, err := rt.API.RegisterResponder(t.Context(), rt.Session, reg)
	require.NoError(t, err)
	require.True(t, profile.IsAvailable())
}

// gatedBackend counts alert list reads and can hold them until released.
type gatedBackend struct {
	next  http.Handler
	reads atomic.Int32

	mu   sync.Mutex
	gate chan struct{}
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{next: sandbox.NewServer(sandbox.NewBackend(nil)).Handler()}
}

func (g *gatedBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/user-alerts") {
		g.reads.Add(1)

		g.mu.Lock()
		gate := g.gate
		g.mu.Unlock()

		if gate != nil {
			<-gate
		}
	}

	g.next.ServeHTTP(w, r)
}

// hold makes list reads block until the returned release is called.
func (g *gatedBackend) hold() (release func()) {
	gate := make(chan struct{})

	g.mu.Lock()
	g.gate = gate
	g.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.gate = nil
			g.mu.Unlock()

			close(gate)
		})
	}
}
