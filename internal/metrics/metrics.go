package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/guardian/internal/domain/alert"
)

const namespace = "guardian"

// Result label values.
const (
	ResultOK                = "ok"
	ResultInvalidTransition = "invalid_transition"
	ResultUnauthorized      = "unauthorized"
	ResultUnauthenticated   = "unauthenticated"
	ResultNotFound          = "not_found"
	ResultValidation        = "validation"
	ResultNetwork           = "network"
	ResultServer            = "server"
	ResultRejected          = "rejected"
	ResultOther             = "other"
)

// Metrics holds the collectors.
type Metrics struct {
	refreshes       *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	coalesced       *prometheus.CounterVec
	discarded       *prometheus.CounterVec
	snapshotSize    *prometheus.GaugeVec
	transitions     *prometheus.CounterVec
	submissions     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "refreshes_total",
			Help:      "Backend fetches of a cached query by result.",
		}, []string{"query", "result"}),
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of backend fetches of a cached query.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		coalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "coalesced_total",
			Help:      "Refresh requests that joined a fetch already in flight.",
		}, []string{"query"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "discarded_total",
			Help:      "Fetch results dropped because a newer fetch was already applied.",
		}, []string{"query"}),
		snapshotSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "alerts",
			Help:      "Number of alerts in the current snapshot of a query.",
		}, []string{"query"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Requested alert actions by result.",
		}, []string{"action", "result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Panic alert submissions by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.refreshes,
			m.refreshDuration,
			m.coalesced,
			m.discarded,
			m.snapshotSize,
			m.transitions,
			m.submissions,
		)
	}

	return m
}

// ObserveRefresh records one completed fetch.
func (m *Metrics) ObserveRefresh(query string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.refreshes.WithLabelValues(query, Result(err)).Inc()
	m.refreshDuration.WithLabelValues(query).Observe(elapsed.Seconds())
}

// ObserveCoalesced records a refresh that shared an in-flight fetch.
func (m *Metrics) ObserveCoalesced(query string) {
	if m == nil {
		return
	}

	m.coalesced.WithLabelValues(query).Inc()
}

// ObserveDiscarded records a fetch result that arrived out of order.
func (m *Metrics) ObserveDiscarded(query string) {
	if m == nil {
		return
	}

	m.discarded.WithLabelValues(query).Inc()
}

// ObserveSnapshot records the size of an applied snapshot.
func (m *Metrics) ObserveSnapshot(query string, size int) {
	if m == nil {
		return
	}

	m.snapshotSize.WithLabelValues(query).Set(float64(size))
}

// ObserveTransition records the outcome of a requested action.
func (m *Metrics) ObserveTransition(action alert.Action, err error) {
	if m == nil {
		return
	}

	m.transitions.WithLabelValues(string(action), Result(err)).Inc()
}

// ObserveSubmission records the outcome of a panic submission.
func (m *Metrics) ObserveSubmission(err error) {
	if m == nil {
		return
	}

	m.submissions.WithLabelValues(Result(err)).Inc()
}

// Result maps an error to a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, alert.ErrInvalidTransition):
		return ResultInvalidTransition
	case errors.Is(err, alert.ErrUnauthorized):
		return ResultUnauthorized
	case errors.Is(err, alert.ErrUnauthenticated):
		return ResultUnauthenticated
	case errors.Is(err, alert.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, alert.ErrValidation):
		return ResultValidation
	case errors.Is(err, alert.ErrNetwork):
		return ResultNetwork
	case errors.Is(err, alert.ErrServer):
		return ResultServer
	case errors.Is(err, alert.ErrRejected):
		return ResultRejected
	default:
		return ResultOther
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
