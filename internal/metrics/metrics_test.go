package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/guardian/internal/domain/alert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics

	require.NotPanics(t, func() {
		m.ObserveRefresh("user-alerts", nil, time.Second)
		m.ObserveCoalesced("user-alerts")
		m.ObserveDiscarded("user-alerts")
		m.ObserveSnapshot("user-alerts", 3)
		m.ObserveTransition(alert.ActionAcknowledge, nil)
		m.ObserveSubmission(errors.New("boom"))
	})
}

func TestCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRefresh("assigned-alerts", nil, 10*time.Millisecond)
	m.ObserveRefresh("assigned-alerts", fmt.Errorf("list: %w", alert.ErrNetwork), time.Millisecond)
	m.ObserveCoalesced("assigned-alerts")
	m.ObserveCoalesced("assigned-alerts")
	m.ObserveTransition(alert.ActionCancel, fmt.Errorf("cancel: %w", alert.ErrInvalidTransition))

	require.InDelta(t, 1, testutil.ToFloat64(m.refreshes.WithLabelValues("assigned-alerts", ResultOK)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.refreshes.WithLabelValues("assigned-alerts", ResultNetwork)), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.coalesced.WithLabelValues("assigned-alerts")), 0)
	require.InDelta(t, 1,
		testutil.ToFloat64(m.transitions.WithLabelValues("cancel", ResultInvalidTransition)), 0)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "guardian_store_coalesced_total")
}

func TestResult(t *testing.T) {
	t.Parallel()

	require.Equal(t, ResultOK, Result(nil))
	require.Equal(t, ResultNotFound, Result(fmt.Errorf("x: %w", alert.ErrNotFound)))
	require.Equal(t, ResultRejected, Result(fmt.Errorf("x: %w", alert.ErrRejected)))
	require.Equal(t, ResultOther, Result(errors.New("boom")))
}
