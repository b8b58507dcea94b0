package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oshokin/guardian/internal/logger"
)

// Observer receives cache events. *metrics.Metrics implements it.
type Observer interface {
	ObserveRefresh(query string, err error, elapsed time.Duration)
	ObserveCoalesced(query string)
	ObserveDiscarded(query string)
	ObserveSnapshot(query string, size int)
}

type nopObserver struct{}

func (nopObserver) ObserveRefresh(string, error, time.Duration) {}
func (nopObserver) ObserveCoalesced(string)                     {}
func (nopObserver) ObserveDiscarded(string)                     {}
func (nopObserver) ObserveSnapshot(string, int)                 {}

// Option configures queries.
type Option func(*settings)

type settings struct {
	observer Observer
	now      func() time.Time
}

// WithObserver reports cache events to o.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock replaces the time source of FetchedAt and fetch durations.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		observer: nopObserver{},
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// Snapshot is an immutable copy of a query result.
type Snapshot[T any] struct {
	// Query names the cached query.
	Query string
	// Items are in backend order.
	Items []T
	// Version increases with every applied fetch.
	Version uint64
	// FetchedAt is when the applied fetch completed.
	FetchedAt time.Time
}

// Query caches one list endpoint.
type Query[T any] struct {
	name  string
	fetch func(ctx context.Context) ([]T, error)
	clone func(T) T
	idOf  func(T) string

	settings settings
	group    singleflight.Group

	// mu guards the fields below.
	mu        sync.Mutex
	started   uint64
	applied   uint64
	floor     uint64
	version   uint64
	items     []T
	index     map[string]int
	fetchedAt time.Time
}

// NewQuery returns a query named name. clone deep-copies an item so callers
// never share memory with the cache; idOf may be nil when items are not
// addressed by id.
func NewQuery[T any](
	name string,
	fetch func(ctx context.Context) ([]T, error),
	clone func(T) T,
	idOf func(T) string,
	opts ...Option,
) *Query[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}

	return &Query[T]{
		name:     name,
		fetch:    fetch,
		clone:    clone,
		idOf:     idOf,
		settings: newSettings(opts),
	}
}

// Name returns the query name.
func (q *Query[T]) Name() string {
	return q.name
}

// Refresh fetches the query, sharing a fetch already in flight.
func (q *Query[T]) Refresh(ctx context.Context) (Snapshot[T], error) {
	return q.do(ctx)
}

// Invalidate fetches the query with a fetch that starts now. A fetch begun
// earlier is not joined, and its result is discarded whenever it completes,
// even if the new fetch fails.
func (q *Query[T]) Invalidate(ctx context.Context) (Snapshot[T], error) {
	q.mu.Lock()
	q.floor = q.started + 1
	q.mu.Unlock()

	q.group.Forget(q.name)

	return q.do(ctx)
}

// Snapshot returns the current snapshot and whether any fetch was applied.
func (q *Query[T]) Snapshot() (Snapshot[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.snapshotLocked(), q.applied > 0
}

// Get returns the cached item with the id.
func (q *Query[T]) Get(id string) (T, bool) {
	var zero T

	q.mu.Lock()
	defer q.mu.Unlock()

	i, ok := q.index[id]
	if !ok {
		return zero, false
	}

	return q.clone(q.items[i]), true
}

func (q *Query[T]) do(ctx context.Context) (Snapshot[T], error) {
	// The shared fetch outlives any single caller; each caller still stops
	// waiting when its own context ends.
	fetchCtx := context.WithoutCancel(ctx)

	ch := q.group.DoChan(q.name, func() (any, error) {
		return q.run(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return Snapshot[T]{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			q.settings.observer.ObserveCoalesced(q.name)
		}

		if res.Err != nil {
			return Snapshot[T]{}, res.Err
		}

		snap, _ := res.Val.(Snapshot[T])

		return q.copySnapshot(snap), nil
	}
}

// run performs one fetch and applies it if nothing newer was applied.
func (q *Query[T]) run(ctx context.Context) (Snapshot[T], error) {
	q.mu.Lock()
	q.started++
	seq := q.started
	q.mu.Unlock()

	began := q.settings.now()
	items, err := q.fetch(ctx)
	q.settings.observer.ObserveRefresh(q.name, err, q.settings.now().Sub(began))

	if err != nil {
		logger.DebugKV(ctx, "Query fetch failed", "query", q.name, "error", err)

		return Snapshot[T]{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if seq <= q.applied || seq < q.floor {
		q.settings.observer.ObserveDiscarded(q.name)
		logger.DebugKV(ctx, "Discarded out-of-order result",
			"query", q.name, "fetch", seq, "applied", q.applied, "floor", q.floor)

		return q.snapshotLocked(), nil
	}

	q.applied = seq
	q.version++
	q.fetchedAt = q.settings.now()
	q.items = make([]T, len(items))
	q.index = make(map[string]int, len(items))

	for i, item := range items {
		q.items[i] = q.clone(item)

		if q.idOf != nil {
			q.index[q.idOf(item)] = i
		}
	}

	q.settings.observer.ObserveSnapshot(q.name, len(q.items))

	return q.snapshotLocked(), nil
}

// snapshotLocked copies the current state. Callers hold the lock.
func (q *Query[T]) snapshotLocked() Snapshot[T] {
	return q.copySnapshot(Snapshot[T]{
		Query:     q.name,
		Items:     q.items,
		Version:   q.version,
		FetchedAt: q.fetchedAt,
	})
}

func (q *Query[T]) copySnapshot(snap Snapshot[T]) Snapshot[T] {
	items := make([]T, len(snap.Items))
	for i, item := range snap.Items {
		items[i] = q.clone(item)
	}

	snap.Items = items

	return snap
}
