package alerting

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/location"
	"github.com/oshokin/guardian/internal/logger"
	"github.com/oshokin/guardian/internal/session"
	"github.com/oshokin/guardian/internal/store"
	"github.com/oshokin/guardian/internal/validation"
)

// errEmptyAlertID is returned when the backend accepts an alert without an id.
var errEmptyAlertID = errors.New("backend returned an alert without id")

// panicRequest is validated before anything is sent.
type panicRequest struct {
	Type      alert.Type `validate:"required"`
	Latitude  float64    `validate:"latitude"`
	Longitude float64    `validate:"longitude"`
	Accuracy  float64    `validate:"gte=0"`
}

// Submitter raises alerts.
type Submitter struct {
	api   API
	cache Cache
	opts  options
}

// NewSubmitter returns a submitter that refreshes cache after every created alert.
func NewSubmitter(api API, cache Cache, opts ...Option) *Submitter {
	o := options{
		recorder: nopRecorder{},
		newKey:   uuid.NewString,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return &Submitter{
		api:   api,
		cache: cache,
		opts:  o,
	}
}

// Submit sends exactly one create request and returns the new alert id.
// It never retries: a failure with IsAmbiguous(err) may still have created
// the alert, and only the user decides whether to submit again.
func (s *Submitter) Submit(
	ctx context.Context,
	sess *session.Session,
	typ alert.Type,
	loc alert.Location,
) (string, error) {
	id, err := s.submit(ctx, sess, typ, loc)
	s.opts.recorder.ObserveSubmission(err)

	return id, err
}

// SubmitFromProvider acquires a fresh fix and submits it. A failed
// acquisition blocks the submission with location.ErrLocationRequired.
func (s *Submitter) SubmitFromProvider(
	ctx context.Context,
	sess *session.Session,
	typ alert.Type,
	provider location.Provider,
) (string, error) {
	loc, err := provider.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", location.ErrLocationRequired, err)
	}

	return s.Submit(ctx, sess, typ, loc)
}

func (s *Submitter) submit(
	ctx context.Context,
	sess *session.Session,
	typ alert.Type,
	loc alert.Location,
) (string, error) {
	if err := sess.Require(alert.RolePatient); err != nil {
		return "", err
	}

	if typ == "" {
		typ = alert.TypeManual
	}

	req := panicRequest{
		Type:      typ,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Accuracy:  loc.Accuracy,
	}
	if err := validation.Struct(&req); err != nil {
		return "", err
	}

	key := s.opts.newKey()
	ctx = logger.WithKV(ctx, "idempotency_key", key)

	created, err := s.api.CreatePanic(ctx, sess, typ, loc, key)
	if err != nil {
		if IsAmbiguous(err) {
			logger.WarnKV(ctx, "Alert submission outcome unknown", "error", err)
		}

		return "", err
	}

	if created == nil || created.ID == "" {
		return "", fmt.Errorf("%w: %w", alert.ErrServer, errEmptyAlertID)
	}

	logger.InfoKV(ctx, "Alert created", "alert_id", created.ID, "type", created.Type)

	if _, err := s.cache.Invalidate(ctx, store.KeyUserAlerts); err != nil {
		logger.WarnKV(ctx, "Refresh after submission failed", "error", err)
	}

	return created.ID, nil
}

// IsAmbiguous reports whether a failed submission may still have created
// the alert: the request may have reached the backend before the transport
// failed.
func IsAmbiguous(err error) bool {
	return errors.Is(err, alert.ErrNetwork)
}
