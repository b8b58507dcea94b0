//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/guardian/internal/backend"
	"github.com/oshokin/guardian/internal/config"
	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/trusted"
	"github.com/oshokin/guardian/internal/location"
	"github.com/oshokin/guardian/internal/logger"
	"github.com/oshokin/guardian/internal/metrics"
	"github.com/oshokin/guardian/internal/service/alerting"
	"github.com/oshokin/guardian/internal/service/discovery"
	"github.com/oshokin/guardian/internal/session"
	"github.com/oshokin/guardian/internal/store"
)

// TrustedLocationsQuery names the cached trusted-location list.
const TrustedLocationsQuery = "trusted-locations"

// Runtime is everything a command needs to talk to the backend as one actor.
type Runtime struct {
	Config   *config.Config
	Session  *session.Session
	API      *backend.Client
	Store    *store.Store
	Trusted  *store.Query[trusted.Location]
	Location location.Provider
	Metrics  *metrics.Metrics

	// Key is the alert list of the session's role.
	Key store.Key
}

// Option configures Setup.
type Option func(*setupOptions)

type setupOptions struct {
	backendURL string
	token      string
	registerer prometheus.Registerer
	api        []backend.Option
}

// WithBackendURL overrides backend_url from settings.
func WithBackendURL(u string) Option {
	return func(o *setupOptions) {
		o.backendURL = u
	}
}

// WithToken overrides the token from the environment.
func WithToken(token string) Option {
	return func(o *setupOptions) {
		o.token = token
	}
}

// WithRegisterer registers metrics with reg instead of discarding them.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *setupOptions) {
		o.registerer = reg
	}
}

// WithClientOptions passes options to the backend client.
func WithClientOptions(opts ...backend.Option) Option {
	return func(o *setupOptions) {
		o.api = append(o.api, opts...)
	}
}

// errNoToken is returned when neither the environment nor an option carries a token.
var errNoToken = errors.New("no token: set " + config.TokenEnv + " or add it to " + config.DefaultEnvFilename)

// Setup loads settings from configPath and wires a runtime for role.
func Setup(ctx context.Context, configPath string, role alert.Role, opts ...Option) (*Runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return New(ctx, cfg, role, opts...)
}

// New wires a runtime from loaded settings.
func New(ctx context.Context, cfg *config.Config, role alert.Role, opts ...Option) (*Runtime, error) {
	o := setupOptions{
		backendURL: cfg.BackendURL,
		token:      cfg.Token,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if cfg.LogLevel != "" {
		if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
			logger.SetLevel(level)
		}
	}

	if o.token == "" {
		return nil, errNoToken
	}

	sess, err := session.New(o.token, role, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	api, err := backend.New(o.backendURL, append([]backend.Option{backend.WithCallTimeout(cfg.Timeout)}, o.api...)...)
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	m := metrics.New(o.registerer)
	key := store.KeyForRole(role)

	s := store.New(store.WithObserver(m))
	s.Register(key, func(ctx context.Context) ([]*alert.Alert, error) {
		if key == store.KeyAssignedAlerts {
			return api.AssignedAlerts(ctx, sess)
		}

		return api.UserAlerts(ctx, sess)
	})

	trustedQuery := store.NewQuery(TrustedLocationsQuery,
		func(ctx context.Context) ([]trusted.Location, error) { return api.TrustedLocations(ctx, sess) },
		nil,
		func(l trusted.Location) string { return l.ID },
		store.WithObserver(m))

	logger.DebugKV(ctx, "Runtime ready", "backend_url", o.backendURL, "role", role, "query", key)

	return &Runtime{
		Config:   cfg,
		Session:  sess,
		API:      api,
		Store:    s,
		Trusted:  trustedQuery,
		Location: NewLocationProvider(cfg.Location),
		Metrics:  m,
		Key:      key,
	}, nil
}

// Submitter returns a panic submitter bound to the runtime.
func (r *Runtime) Submitter() *alerting.Submitter {
	return alerting.NewSubmitter(r.API, r.Store, alerting.WithRecorder(r.Metrics))
}

// Executor returns a transition executor bound to the runtime.
func (r *Runtime) Executor() *alerting.Executor {
	return alerting.NewExecutor(r.API, r.Store, alerting.WithRecorder(r.Metrics))
}

// Discovery returns a facility discovery service bound to the runtime.
func (r *Runtime) Discovery() *discovery.Service {
	return discovery.New(r.API, r.Location)
}

// AddTrustedLocation creates a trusted place and refreshes the cached list.
func (r *Runtime) AddTrustedLocation(ctx context.Context, draft *trusted.Draft) (*trusted.Location, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	created, err := r.API.AddTrustedLocation(ctx, r.Session, draft)
	if err != nil {
		return nil, err
	}

	if _, err := r.Trusted.Invalidate(ctx); err != nil {
		logger.WarnKV(ctx, "Trusted locations refresh failed", "error", err)
	}

	return created, nil
}
