package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/guardian/internal/domain/alert"
)

// fakeBackend answers fetches from a script. Each call blocks until the test
// releases it with a list, so completion order is under test control.
type fakeBackend struct {
	calls   atomic.Int32
	mu      sync.Mutex
	pending []chan fetchResult
}

type fetchResult struct {
	alerts []*alert.Alert
	err    error
}

func (f *fakeBackend) fetch(ctx context.Context) ([]*alert.Alert, error) {
	f.calls.Add(1)

	ch := make(chan fetchResult, 1)

	f.mu.Lock()
	f.pending = append(f.pending, ch)
	f.mu.Unlock()

	select {
	case res := <-ch:
		return res.alerts, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release answers the i-th fetch.
func (f *fakeBackend) release(i int, alerts ...*alert.Alert) {
	f.answer(i, fetchResult{alerts: alerts})
}

// fail makes the i-th fetch return err.
func (f *fakeBackend) fail(i int, err error) {
	f.answer(i, fetchResult{err: err})
}

func (f *fakeBackend) answer(i int, res fetchResult) {
	f.mu.Lock()
	ch := f.pending[i]
	f.mu.Unlock()

	ch <- res
}

func activeAlert(id string, status alert.Status) *alert.Alert {
	return &alert.Alert{ID: id, Type: alert.TypeManual, Status: status}
}

func TestRefreshCoalesces(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		backend := new(fakeBackend)
		s := New()
		s.Register(KeyAssignedAlerts, backend.fetch)

		results := make(chan AlertSnapshot, 2)

		for range 2 {
			go func() {
				snap, err := s.Refresh(t.Context(), KeyAssignedAlerts)
				if err == nil {
					results <- snap
				}
			}()
		}

		synctest.Wait()
		require.EqualValues(t, 1, backend.calls.Load())

		backend.release(0, activeAlert("A1", alert.StatusActive))

		first, second := <-results, <-results
		require.Equal(t, first.Version, second.Version)
		require.Len(t, first.Items, 1)
		require.Equal(t, first.Items, second.Items)

		// Callers get independent copies.
		first.Items[0].Status = alert.StatusCancelled

		status, ok := s.Status(KeyAssignedAlerts, "A1")
		require.True(t, ok)
		require.Equal(t, alert.StatusActive, status)
	})
}

func TestInvalidateDoesNotJoinEarlierFetch(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		backend := new(fakeBackend)
		s := New()
		s.Register(KeyAssignedAlerts, backend.fetch)

		// A poll starts before the mutation and will answer with the old status.
		stale := make(chan AlertSnapshot, 1)

		go func() {
			snap, _ := s.Refresh(t.Context(), KeyAssignedAlerts)
			stale <- snap
		}()

		synctest.Wait()

		fresh := make(chan AlertSnapshot, 1)

		go func() {
			snap, _ := s.Invalidate(t.Context(), KeyAssignedAlerts)
			fresh <- snap
		}()

		synctest.Wait()
		require.EqualValues(t, 2, backend.calls.Load())

		// The post-mutation fetch completes first.
		backend.release(1, activeAlert("A1", alert.StatusAcknowledged))

		snap := <-fresh
		require.Equal(t, alert.StatusAcknowledged, snap.Items[0].Status)

		// The earlier fetch completes late and must not roll the view back.
		backend.release(0, activeAlert("A1", alert.StatusActive))

		late := <-stale
		require.Equal(t, alert.StatusAcknowledged, late.Items[0].Status)

		status, ok := s.Status(KeyAssignedAlerts, "A1")
		require.True(t, ok)
		require.Equal(t, alert.StatusAcknowledged, status)
	})
}

func TestInvalidateFailureStillDiscardsEarlierFetch(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		backend := new(fakeBackend)
		s := New()
		s.Register(KeyAssignedAlerts, backend.fetch)

		go func() { _, _ = s.Refresh(t.Context(), KeyAssignedAlerts) }()

		synctest.Wait()
		backend.release(0, activeAlert("A1", alert.StatusActive))
		synctest.Wait()

		// A poll starts before the mutation and will answer with the old status.
		stale := make(chan AlertSnapshot, 1)

		go func() {
			snap, _ := s.Refresh(t.Context(), KeyAssignedAlerts)
			stale <- snap
		}()

		synctest.Wait()

		invalidated := make(chan error, 1)

		go func() {
			_, err := s.Invalidate(t.Context(), KeyAssignedAlerts)
			invalidated <- err
		}()

		synctest.Wait()
		require.EqualValues(t, 3, backend.calls.Load())

		// The post-mutation fetch fails.
		boom := errors.New("boom")
		backend.fail(2, boom)
		require.ErrorIs(t, <-invalidated, boom)

		// The earlier fetch completes late; it predates the mutation.
		backend.release(1, activeAlert("A1", alert.StatusAcknowledged), activeAlert("A2", alert.StatusActive))

		late := <-stale
		require.EqualValues(t, 1, late.Version)
		require.Len(t, late.Items, 1)

		// The next fetch after the mutation is applied.
		next := make(chan AlertSnapshot, 1)

		go func() {
			snap, _ := s.Refresh(t.Context(), KeyAssignedAlerts)
			next <- snap
		}()

		synctest.Wait()
		backend.release(3, activeAlert("A1", alert.StatusAcknowledged))

		snap := <-next
		require.EqualValues(t, 2, snap.Version)
		require.Equal(t, alert.StatusAcknowledged, snap.Items[0].Status)
	})
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	t.Parallel()

	fail := false
	boom := errors.New("boom")

	s := New()
	s.Register(KeyUserAlerts, func(context.Context) ([]*alert.Alert, error) {
		if fail {
			return nil, boom
		}

		return []*alert.Alert{activeAlert("A1", alert.StatusActive)}, nil
	})

	_, ok := s.Snapshot(KeyUserAlerts)
	require.False(t, ok)

	snap, err := s.Refresh(t.Context(), KeyUserAlerts)
	require.NoError(t, err)
	require.EqualValues(t, 1, snap.Version)

	fail = true

	_, err = s.Refresh(t.Context(), KeyUserAlerts)
	require.ErrorIs(t, err, boom)

	snap, ok = s.Snapshot(KeyUserAlerts)
	require.True(t, ok)
	require.EqualValues(t, 1, snap.Version)
	require.Len(t, snap.Items, 1)
}

func TestUnknownQuery(t *testing.T) {
	t.Parallel()

	s := New()

	_, err := s.Refresh(t.Context(), KeyUserAlerts)
	require.Error(t, err)

	_, ok := s.Get(KeyUserAlerts, "A1")
	require.False(t, ok)
}

func TestCallerCancellationDoesNotAbortSharedFetch(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		backend := new(fakeBackend)
		s := New()
		s.Register(KeyUserAlerts, backend.fetch)

		ctx, cancel := context.WithCancel(t.Context())

		done := make(chan error, 1)

		go func() {
			_, err := s.Refresh(ctx, KeyUserAlerts)
			done <- err
		}()

		synctest.Wait()
		cancel()
		require.ErrorIs(t, <-done, context.Canceled)

		// The fetch keeps running and its result is applied.
		backend.release(0, activeAlert("A1", alert.StatusActive))
		synctest.Wait()

		_, ok := s.Get(KeyUserAlerts, "A1")
		require.True(t, ok)
	})
}

func TestPoll(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var calls atomic.Int32

		s := New()
		s.Register(KeyAssignedAlerts, func(context.Context) ([]*alert.Alert, error) {
			calls.Add(1)

			return nil, nil
		})

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		var (
			versions []uint64
			errs     []error
		)

		done := make(chan error, 1)

		go func() {
			done <- s.Poll(ctx, KeyAssignedAlerts, 0, func(_ context.Context, snap AlertSnapshot, err error) {
				if err != nil {
					errs = append(errs, err)

					return
				}

				versions = append(versions, snap.Version)
			})
		}()

		// Immediate refresh on start.
		synctest.Wait()
		require.EqualValues(t, 1, calls.Load())

		time.Sleep(DefaultPollInterval - time.Second)
		synctest.Wait()
		require.EqualValues(t, 1, calls.Load())

		time.Sleep(time.Second)
		synctest.Wait()
		require.EqualValues(t, 2, calls.Load())

		time.Sleep(2 * DefaultPollInterval)
		synctest.Wait()
		require.EqualValues(t, 4, calls.Load())

		cancel()
		require.NoError(t, <-done)
		require.Empty(t, errs)
		require.Equal(t, []uint64{1, 2, 3, 4}, versions)
	})
}
