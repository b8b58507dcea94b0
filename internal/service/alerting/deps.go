package alerting

import (
	"context"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/session"
	"github.com/oshokin/guardian/internal/store"
)

// API is the part of the backend client the alerting services use.
type API interface {
	CreatePanic(
		ctx context.Context,
		sess *session.Session,
		typ alert.Type,
		loc alert.Location,
		idempotencyKey string,
	) (*alert.Alert, error)
	Transition(ctx context.Context, sess *session.Session, alertID string, action alert.Action) (*alert.Alert, error)
	DeleteAlert(ctx context.Context, sess *session.Session, alertID string) error
}

// Cache is the part of the alert store the alerting services use.
type Cache interface {
	Status(key store.Key, id string) (alert.Status, bool)
	Invalidate(ctx context.Context, key store.Key) (store.AlertSnapshot, error)
}

// Recorder receives outcomes for metrics. *metrics.Metrics implements it.
type Recorder interface {
	ObserveTransition(action alert.Action, err error)
	ObserveSubmission(err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTransition(alert.Action, error) {}
func (nopRecorder) ObserveSubmission(error)               {}

// Option configures Submitter and Executor.
type Option func(*options)

type options struct {
	recorder Recorder
	newKey   func() string
}

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithKeyGenerator replaces the idempotency key source.
func WithKeyGenerator(newKey func() string) Option {
	return func(o *options) {
		if newKey != nil {
			o.newKey = newKey
		}
	}
}
