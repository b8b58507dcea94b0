package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/oshokin/guardian/internal/domain/alert"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	// StatusCode is the HTTP status.
	StatusCode int
	// Message is the server-provided, user-facing text. May be empty.
	Message string

	kind error
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.kind, e.StatusCode)
	}

	return fmt.Sprintf("%s (HTTP %d): %s", e.kind, e.StatusCode, e.Message)
}

// Unwrap returns the taxonomy sentinel matching the status.
func (e *APIError) Unwrap() error {
	return e.kind
}

// opKind decides how ambiguous statuses are classified.
type opKind int

const (
	opRead opKind = iota
	opCreate
	opTransition
	opDelete
)

// newAPIError builds the error for a failed response.
func newAPIError(statusCode int, body []byte, op opKind) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Message:    serverMessage(body),
		kind:       classify(statusCode, op),
	}
}

// classify maps an HTTP status to the error taxonomy.
func classify(statusCode int, op opKind) error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return alert.ErrUnauthenticated
	case statusCode == http.StatusForbidden:
		return alert.ErrUnauthorized
	case statusCode == http.StatusNotFound:
		return alert.ErrNotFound
	case statusCode == http.StatusConflict || statusCode == http.StatusUnprocessableEntity:
		if op == opTransition || op == opDelete {
			return alert.ErrInvalidTransition
		}

		return alert.ErrValidation
	case statusCode == http.StatusBadRequest:
		return alert.ErrValidation
	case statusCode >= http.StatusInternalServerError:
		return alert.ErrServer
	default:
		return alert.ErrRejected
	}
}

// serverMessage extracts message or error from a failure body.
func serverMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}

	if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String {
		return msg.String()
	}

	if msg := gjson.GetBytes(body, "error"); msg.Type == gjson.String {
		return msg.String()
	}

	return ""
}

// Message returns the user-facing server message of err, or "" when err does
// not come from the backend.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	return ""
}
