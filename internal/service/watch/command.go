package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/guardian/internal/api/grpc/health"
	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/responder"
	"github.com/oshokin/guardian/internal/logger"
	"github.com/oshokin/guardian/internal/metrics"
	"github.com/oshokin/guardian/internal/service/common"
	"github.com/oshokin/guardian/internal/service/dashboard"
	"github.com/oshokin/guardian/internal/session"
	"github.com/oshokin/guardian/internal/store"
)

// Options controls the watch process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// BackendURL overrides backend_url from settings.
	BackendURL string
	// PollInterval overrides poll_interval from settings.
	PollInterval time.Duration
	// HealthAddress overrides health_addr; empty disables the endpoint.
	HealthAddress string
	// MetricsAddress overrides metrics_addr; empty disables the endpoint.
	MetricsAddress string
	// Out receives rendered dashboards; stdout when nil.
	Out io.Writer
}

// HealthService is the name the watch daemon reports under.
const HealthService = "guardian.watch"

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// ProfileAPI fetches the responder profile shown in the dashboard header.
type ProfileAPI interface {
	ResponderProfile(ctx context.Context, sess *session.Session) (*responder.Profile, error)
}

// Run polls the assigned alerts until the context is canceled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "guardian-watch")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var setup []common.Option

	setup = append(setup, common.WithRegisterer(registry))
	if opts.BackendURL != "" {
		setup = append(setup, common.WithBackendURL(opts.BackendURL))
	}

	rt, err := common.Setup(ctx, opts.ConfigPath, alert.RoleResponder, setup...)
	if err != nil {
		return err
	}

	interval := rt.Config.PollInterval
	if opts.PollInterval > 0 {
		interval = opts.PollInterval
	}

	healthAddress := firstNonEmpty(opts.HealthAddress, rt.Config.HealthAddress)
	metricsAddress := firstNonEmpty(opts.MetricsAddress, rt.Config.MetricsAddress)

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	reporter := health.NewReporter(HealthService)
	w := newWatcher(rt.API, rt.Session, reporter, out)

	logger.InfoKV(ctx, "Watching assigned alerts",
		"backend_url", rt.Config.BackendURL,
		"interval", interval.String(),
		"health_addr", healthAddress,
		"metrics_addr", metricsAddress)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rt.Store.Poll(ctx, rt.Key, interval, w.handle)
	})

	if healthAddress != "" {
		g.Go(func() error {
			return reporter.ListenAndServe(ctx, healthAddress)
		})
	}

	if metricsAddress != "" {
		g.Go(func() error {
			return serveMetrics(ctx, metricsAddress, metrics.Handler(registry))
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Watch stopped")

	return nil
}

// watcher renders the dashboard when its content changes.
type watcher struct {
	api      ProfileAPI
	sess     *session.Session
	reporter *health.Reporter
	out      io.Writer

	mu       sync.Mutex
	last     dashboard.View
	rendered bool
}

func newWatcher(api ProfileAPI, sess *session.Session, reporter *health.Reporter, out io.Writer) *watcher {
	return &watcher{
		api:      api,
		sess:     sess,
		reporter: reporter,
		out:      out,
	}
}

// handle is the store poll callback.
func (w *watcher) handle(ctx context.Context, snap store.AlertSnapshot, err error) {
	w.reporter.Report(err)

	if err != nil {
		logger.WarnKV(ctx, "Refresh failed", "error", err)
		fmt.Fprintln(w.out, dashboard.Notify(err))

		return
	}

	profile, err := w.api.ResponderProfile(ctx, w.sess)
	if err != nil {
		// Unregistered responders still see their assigned list.
		logger.DebugKV(ctx, "Profile unavailable", "error", err)

		profile = nil
	}

	view := dashboard.ResponderView(profile, snap)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.rendered && w.last.SameContent(view) {
		return
	}

	if err := view.Render(w.out); err != nil {
		logger.ErrorKV(ctx, "Render failed", "error", err)

		return
	}

	w.last = view
	w.rendered = true
}

// serveMetrics blocks until ctx is canceled and the server has shut down.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.InfoKV(ctx, "Metrics endpoint listening", "listen_address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	<-done

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
