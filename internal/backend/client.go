package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/domain/facility"
	"github.com/oshokin/guardian/internal/domain/responder"
	"github.com/oshokin/guardian/internal/domain/trusted"
	"github.com/oshokin/guardian/internal/logger"
	"github.com/oshokin/guardian/internal/session"
	"github.com/oshokin/guardian/internal/version"
)

// Endpoint paths, relative to the base URL.
const (
	pathPanic              = "/alert/panic"
	pathUserAlerts         = "/alert/user-alerts"
	pathAlert              = "/alert/{id}"
	pathAvailableResponder = "/alert/available-responders"
	pathAssignedAlerts     = "/responder/alerts/assigned-alerts"
	pathTransition         = "/responder/alerts/{action}/{id}"
	pathTrustedLocation    = "/trusted-location"
	pathRegister           = "/responder/register"
	pathProfile            = "/responder/profile"
)

// Headers set on outgoing requests.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRequestID      = "X-Request-ID"
)

// DefaultTimeout bounds a backend call when no other timeout is configured.
const DefaultTimeout = 5 * time.Second

// Client wraps the backend REST API with typed helpers.
type Client struct {
	// http is the underlying resty client bound to the base URL.
	http *resty.Client

	// callTimeout is the default timeout for individual calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for backend calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHTTPClient replaces the transport, e.g. with an httptest server client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = resty.NewWithClient(hc).SetBaseURL(c.http.BaseURL)
		}
	}
}

var (
	// errBaseURLRequired is returned when the base URL is missing.
	errBaseURLRequired = errors.New("backend URL must be provided")
	// errSessionRequired is returned when a call is made without a session.
	errSessionRequired = errors.New("session must be provided")
	// errAlertIDRequired is returned when an alert id is empty.
	errAlertIDRequired = errors.New("alert id must be provided")
	// errNotATransition is returned for actions that do not change status.
	errNotATransition = errors.New("action is not a status transition")
	// errEmptyResponse is returned when the backend answers 2xx without data.
	errEmptyResponse = errors.New("backend returned no data")
	// errDecode marks a response body that is not the expected JSON.
	errDecode = errors.New("malformed response body")
)

// New returns a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}

	client := &Client{
		http:        resty.New().SetBaseURL(baseURL),
		callTimeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	client.http.
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent())
	client.http.JSONUnmarshal = unmarshalEnvelope

	return client, nil
}

// unmarshalEnvelope decodes a response body, leaving v untouched when the
// body is empty. DELETE and 204 answers may have no body at all.
func unmarshalEnvelope(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", errDecode, err)
	}

	return nil
}

// CreatePanic raises an alert of type typ at loc; an empty type lets the
// backend pick its default (manual). idempotencyKey identifies this attempt;
// pass a fresh key for every user-initiated submission.
func (c *Client) CreatePanic(
	ctx context.Context,
	sess *session.Session,
	typ alert.Type,
	loc alert.Location,
	idempotencyKey string,
) (*alert.Alert, error) {
	body := PanicRequestDTO{
		Type:        string(typ),
		Coordinates: []float64{loc.Latitude, loc.Longitude},
		Accuracy:    loc.Accuracy,
	}

	dto, err := call[*AlertDTO](ctx, c, sess, opCreate, http.MethodPost, pathPanic, func(r *resty.Request) {
		r.SetBody(body)

		if idempotencyKey != "" {
			r.SetHeader(HeaderIdempotencyKey, idempotencyKey)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create panic alert: %w", err)
	}

	if dto == nil {
		return nil, fmt.Errorf("create panic alert: %w: %w", alert.ErrServer, errEmptyResponse)
	}

	return FromAlertDTO(dto), nil
}

// UserAlerts lists the alerts raised by the session's patient.
func (c *Client) UserAlerts(ctx context.Context, sess *session.Session) ([]*alert.Alert, error) {
	dtos, err := call[[]*AlertDTO](ctx, c, sess, opRead, http.MethodGet, pathUserAlerts, nil)
	if err != nil {
		return nil, fmt.Errorf("list user alerts: %w", err)
	}

	return FromAlertDTOs(dtos), nil
}

// AssignedAlerts lists the alerts assigned to the session's responder.
func (c *Client) AssignedAlerts(ctx context.Context, sess *session.Session) ([]*alert.Alert, error) {
	dtos, err := call[[]*AlertDTO](ctx, c, sess, opRead, http.MethodGet, pathAssignedAlerts, nil)
	if err != nil {
		return nil, fmt.Errorf("list assigned alerts: %w", err)
	}

	return FromAlertDTOs(dtos), nil
}

// Transition asks the backend to apply a status-changing action.
func (c *Client) Transition(
	ctx context.Context,
	sess *session.Session,
	alertID string,
	action alert.Action,
) (*alert.Alert, error) {
	if alertID == "" {
		return nil, errAlertIDRequired
	}

	if !action.IsTransition() {
		return nil, fmt.Errorf("%s: %w", action, errNotATransition)
	}

	dto, err := call[*AlertDTO](ctx, c, sess, opTransition, http.MethodPost, pathTransition, func(r *resty.Request) {
		r.SetPathParams(map[string]string{
			"action": string(action),
			"id":     alertID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s alert %s: %w", action, alertID, err)
	}

	if dto == nil {
		return nil, fmt.Errorf("%s alert %s: %w: %w", action, alertID, alert.ErrServer, errEmptyResponse)
	}

	return FromAlertDTO(dto), nil
}

// DeleteAlert removes an alert record.
func (c *Client) DeleteAlert(ctx context.Context, sess *session.Session, alertID string) error {
	if alertID == "" {
		return errAlertIDRequired
	}

	_, err := call[any](ctx, c, sess, opDelete, http.MethodDelete, pathAlert, func(r *resty.Request) {
		r.SetPathParam("id", alertID)
	})
	if err != nil {
		return fmt.Errorf("delete alert %s: %w", alertID, err)
	}

	return nil
}

// AvailableResponders lists facilities near the position, nearest first.
func (c *Client) AvailableResponders(
	ctx context.Context,
	sess *session.Session,
	loc alert.Location,
) ([]facility.Facility, error) {
	dtos, err := call[[]FacilityDTO](ctx, c, sess, opRead, http.MethodGet, pathAvailableResponder, func(r *resty.Request) {
		r.SetQueryParams(map[string]string{
			"lat": strconv.FormatFloat(loc.Latitude, 'f', -1, 64),
			"lng": strconv.FormatFloat(loc.Longitude, 'f', -1, 64),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list available responders: %w", err)
	}

	return FromFacilityDTOs(dtos), nil
}

// TrustedLocations lists the session user's trusted places.
func (c *Client) TrustedLocations(ctx context.Context, sess *session.Session) ([]trusted.Location, error) {
	dtos, err := call[[]TrustedLocationDTO](ctx, c, sess, opRead, http.MethodGet, pathTrustedLocation, nil)
	if err != nil {
		return nil, fmt.Errorf("list trusted locations: %w", err)
	}

	result := make([]trusted.Location, len(dtos))
	for i, dto := range dtos {
		result[i] = FromTrustedLocationDTO(dto)
	}

	return result, nil
}

// AddTrustedLocation stores a new trusted place.
func (c *Client) AddTrustedLocation(
	ctx context.Context,
	sess *session.Session,
	draft *trusted.Draft,
) (*trusted.Location, error) {
	body := FromDraft(draft)

	dto, err := call[*TrustedLocationDTO](ctx, c, sess, opCreate, http.MethodPost, pathTrustedLocation, func(r *resty.Request) {
		r.SetBody(body)
	})
	if err != nil {
		return nil, fmt.Errorf("add trusted location: %w", err)
	}

	if dto == nil {
		return nil, fmt.Errorf("add trusted location: %w: %w", alert.ErrServer, errEmptyResponse)
	}

	loc := FromTrustedLocationDTO(*dto)

	return &loc, nil
}

// RegisterResponder submits a complete responder sign-up. The profile is nil
// when the backend accepts the registration without returning one.
func (c *Client) RegisterResponder(
	ctx context.Context,
	sess *session.Session,
	reg *responder.Registration,
) (*responder.Profile, error) {
	body := ToRegistrationDTO(reg)

	dto, err := call[*ProfileDTO](ctx, c, sess, opCreate, http.MethodPost, pathRegister, func(r *resty.Request) {
		r.SetBody(body)
	})
	if err != nil {
		return nil, fmt.Errorf("register responder: %w", err)
	}

	return FromProfileDTO(dto), nil
}

// ResponderProfile returns the session responder's profile.
func (c *Client) ResponderProfile(ctx context.Context, sess *session.Session) (*responder.Profile, error) {
	dto, err := call[*ProfileDTO](ctx, c, sess, opRead, http.MethodGet, pathProfile, nil)
	if err != nil {
		return nil, fmt.Errorf("get responder profile: %w", err)
	}

	if dto == nil {
		return nil, fmt.Errorf("get responder profile: %w: %w", alert.ErrServer, errEmptyResponse)
	}

	return FromProfileDTO(dto), nil
}

// call performs one request and decodes the data envelope. There is no retry.
func call[T any](
	ctx context.Context,
	c *Client,
	sess *session.Session,
	op opKind,
	method string,
	path string,
	configure func(*resty.Request),
) (T, error) {
	var (
		zero   T
		result envelope[T]
	)

	if sess == nil {
		return zero, errSessionRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	requestID := uuid.NewString()

	req := c.http.R().
		SetContext(callCtx).
		SetAuthToken(sess.Token).
		SetHeader(HeaderRequestID, requestID).
		SetResult(&result).
		ForceContentType("application/json")

	if configure != nil {
		configure(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if errors.Is(err, errDecode) {
			return zero, fmt.Errorf("%w: %s %s: %w", alert.ErrServer, method, path, err)
		}

		return zero, fmt.Errorf("%w: %w", alert.ErrNetwork, err)
	}

	logger.DebugKV(ctx, "backend call",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"request_id", requestID,
		"elapsed", resp.Time())

	if !resp.IsSuccess() {
		return zero, newAPIError(resp.StatusCode(), resp.Body(), op)
	}

	return result.Data, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
