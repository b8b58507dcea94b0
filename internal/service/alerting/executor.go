package alerting

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/logger"
	"github.com/oshokin/guardian/internal/session"
	"github.com/oshokin/guardian/internal/store"
)

var (
	// errSessionRequired is returned when no session is given.
	errSessionRequired = errors.New("session must be provided")
	// errAlertIDRequired is returned when the alert id is empty.
	errAlertIDRequired = errors.New("alert id must be provided")
)

// Executor applies actions to alerts on behalf of a session.
type Executor struct {
	api   API
	cache Cache
	opts  options
}

// NewExecutor returns an executor that checks legality against cache and
// refreshes it after every action.
func NewExecutor(api API, cache Cache, opts ...Option) *Executor {
	o := options{recorder: nopRecorder{}}

	for _, opt := range opts {
		opt(&o)
	}

	return &Executor{
		api:   api,
		cache: cache,
		opts:  o,
	}
}

// Transition applies a status-changing action and returns the alert as the
// backend reports it. The affected list is refreshed before returning.
//
// A refusal, whether local or from the backend, means the cached view was
// stale, so the list is refreshed then as well and the error is returned.
func (e *Executor) Transition(
	ctx context.Context,
	sess *session.Session,
	alertID string,
	action alert.Action,
) (*alert.Alert, error) {
	updated, err := e.transition(ctx, sess, alertID, action)
	e.opts.recorder.ObserveTransition(action, err)

	return updated, err
}

// Delete removes one of the patient's alerts. It cannot be undone.
func (e *Executor) Delete(ctx context.Context, sess *session.Session, alertID string) error {
	err := e.delete(ctx, sess, alertID)
	e.opts.recorder.ObserveTransition(alert.ActionDelete, err)

	return err
}

func (e *Executor) transition(
	ctx context.Context,
	sess *session.Session,
	alertID string,
	action alert.Action,
) (*alert.Alert, error) {
	if sess == nil {
		return nil, errSessionRequired
	}

	if alertID == "" {
		return nil, errAlertIDRequired
	}

	if !action.IsTransition() {
		return nil, fmt.Errorf("%s is not a status change: %w", action, alert.ErrInvalidTransition)
	}

	key := store.KeyForRole(sess.Role)
	ctx = logger.WithKV(ctx, "alert_id", alertID, "action", action)

	if err := e.precheck(sess, key, alertID, action); err != nil {
		logger.DebugKV(ctx, "Action refused locally", "error", err)
		e.refreshStale(ctx, key)

		return nil, err
	}

	updated, err := e.api.Transition(ctx, sess, alertID, action)
	if err != nil {
		if alert.IsStaleView(err) {
			logger.DebugKV(ctx, "Action refused by backend", "error", err)
			e.refreshStale(ctx, key)
		}

		return nil, err
	}

	logger.InfoKV(ctx, "Alert updated", "status", updated.Status)

	if _, err := e.cache.Invalidate(ctx, key); err != nil {
		logger.WarnKV(ctx, "Refresh after action failed", "error", err)
	}

	return updated, nil
}

// precheck refuses actions the cached status already rules out. The backend
// remains the authority; an unknown alert is left for it to judge.
func (e *Executor) precheck(sess *session.Session, key store.Key, alertID string, action alert.Action) error {
	if !alert.Permits(sess.Role, action) {
		return fmt.Errorf("%s may not %s alerts: %w", sess.Role, action, alert.ErrUnauthorized)
	}

	status, ok := e.cache.Status(key, alertID)
	if !ok {
		return nil
	}

	_, err := alert.Next(sess.Role, status, action)

	return err
}

func (e *Executor) delete(ctx context.Context, sess *session.Session, alertID string) error {
	if err := sess.Require(alert.RolePatient); err != nil {
		return err
	}

	if alertID == "" {
		return errAlertIDRequired
	}

	ctx = logger.WithKV(ctx, "alert_id", alertID, "action", alert.ActionDelete)

	if err := e.api.DeleteAlert(ctx, sess, alertID); err != nil {
		if alert.IsStaleView(err) {
			e.refreshStale(ctx, store.KeyUserAlerts)
		}

		return err
	}

	logger.Info(ctx, "Alert deleted")

	if _, err := e.cache.Invalidate(ctx, store.KeyUserAlerts); err != nil {
		logger.WarnKV(ctx, "Refresh after delete failed", "error", err)
	}

	return nil
}

// refreshStale refetches key after a refusal. Failures only get logged: the
// refusal is what the caller needs to see.
func (e *Executor) refreshStale(ctx context.Context, key store.Key) {
	if _, err := e.cache.Invalidate(ctx, key); err != nil {
		logger.DebugKV(ctx, "Refresh after refusal failed", "query", key, "error", err)
	}
}
