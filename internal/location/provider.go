package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/guardian/internal/domain/alert"
)

var (
	// ErrLocationUnavailable means no usable fix could be obtained.
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrPermissionDenied means the position source refused access.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrTimeout means the acquisition did not finish in time.
	ErrTimeout = errors.New("location acquisition timed out")
	// ErrLocationRequired means an operation needed a fresh fix and did not get one.
	// It wraps the provider error.
	ErrLocationRequired = errors.New("a current location is required")
)

// Provider obtains the current position.
type Provider interface {
	Acquire(ctx context.Context) (alert.Location, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (alert.Location, error)

// Acquire calls f.
func (f ProviderFunc) Acquire(ctx context.Context) (alert.Location, error) {
	return f(ctx)
}

// StaticProvider always reports the same position.
type StaticProvider struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Acquire returns the configured position.
func (p StaticProvider) Acquire(ctx context.Context) (alert.Location, error) {
	if err := ctx.Err(); err != nil {
		return alert.Location{}, contextError(err)
	}

	return alert.Location{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  p.Accuracy,
	}, nil
}

type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

// WithTimeout bounds each acquisition by d. An expired deadline is reported
// as ErrTimeout even when the wrapped provider ignores its context.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}

	return &timeoutProvider{next: p, timeout: d}
}

type acquireResult struct {
	location alert.Location
	err      error
}

func (p *timeoutProvider) Acquire(ctx context.Context) (alert.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan acquireResult, 1)

	go func() {
		loc, err := p.next.Acquire(ctx)
		done <- acquireResult{location: loc, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() != nil && !isLocationError(res.err) {
			return alert.Location{}, contextError(ctx.Err())
		}

		return res.location, res.err
	case <-ctx.Done():
		return alert.Location{}, contextError(ctx.Err())
	}
}

// contextError maps a context failure to the location taxonomy.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	return err
}

func isLocationError(err error) bool {
	return errors.Is(err, ErrLocationUnavailable) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrTimeout)
}
