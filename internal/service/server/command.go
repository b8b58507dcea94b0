package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/guardian/internal/config"
	"github.com/oshokin/guardian/internal/logger"
	"github.com/oshokin/guardian/internal/sandbox"
)

// Options controls the sandbox process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the address derived from backend_url.
	ListenAddress string
	// SeedFile is an optional YAML seed; the built-in seed is used when empty.
	SeedFile string
}

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// ErrNoListenPort indicates that backend_url carries no port to listen on.
var ErrNoListenPort = errors.New("backend URL has no port")

// Run serves the sandbox backend until the context is canceled.
// The listen port is taken from backend_url unless overridden.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "guardian-sandbox")

	backendURL := ""

	if opts.ListenAddress == "" {
		settings, err := config.Load(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}

		backendURL = settings.BackendURL
	}

	listenAddress, err := resolveListenAddress(backendURL, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	seed := sandbox.DefaultSeed()

	if opts.SeedFile != "" {
		if seed, err = sandbox.LoadSeed(opts.SeedFile); err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
	}

	if logger.Level() > zapcore.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	return serve(ctx, lis, sandbox.NewServer(sandbox.NewBackend(seed)).Handler(), len(seed.Users))
}

// serve blocks until the context is canceled and the server has shut down.
func serve(ctx context.Context, lis net.Listener, handler http.Handler, users int) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.InfoKV(ctx, "Sandbox backend listening", "listen_address", lis.Addr().String(), "users", users)

	// Closed after Shutdown returns so Run does not exit with requests in flight.
	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()
		logger.Info(ctx, "Shutting down sandbox backend")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorKV(ctx, "Shutdown failed", "error", err)
		}
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "Sandbox backend stopped")

	return nil
}

// resolveListenAddress returns override when set, otherwise ":<port>" of the
// backend URL so the sandbox binds on all interfaces.
func resolveListenAddress(backendURL, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	u, err := url.Parse(backendURL)
	if err != nil {
		return "", fmt.Errorf("invalid backend URL %q: %w", backendURL, err)
	}

	port := u.Port()
	if port == "" {
		return "", fmt.Errorf("%q: %w", backendURL, ErrNoListenPort)
	}

	return ":" + port, nil
}
