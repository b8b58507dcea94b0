package alert

import "errors"

// Error taxonomy shared by the backend client, the store and the services.
// Callers match with errors.Is; wrapped errors keep the server message.
var (
	// ErrUnauthenticated means the session token was missing or rejected.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized means the role may not perform the operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTransition means the alert status does not allow the action.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNotFound means the alert does not exist (or no longer exists).
	ErrNotFound = errors.New("alert not found")
	// ErrValidation means the request was malformed.
	ErrValidation = errors.New("validation error")
	// ErrNetwork means the request failed in transport.
	ErrNetwork = errors.New("network error")
	// ErrServer means the backend failed with a 5xx status.
	ErrServer = errors.New("server error")
	// ErrRejected means the backend refused the request with a status outside
	// the kinds above, such as 405 or 429, or answered with an unexpected status.
	ErrRejected = errors.New("request rejected")
)

// IsStaleView reports whether the error means the local view of the alert is
// out of date and the affected list must be refreshed.
func IsStaleView(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound)
}
