package dashboard

import (
	"context"
	"errors"

	"github.com/oshokin/guardian/internal/backend"
	"github.com/oshokin/guardian/internal/domain/alert"
	"github.com/oshokin/guardian/internal/location"
)

// Notify phrases err as a one-line notification. The server's own message is
// preferred when there is one. A nil error yields "".
func Notify(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, location.ErrLocationRequired) || isLocationError(err) {
		return locationMessage(err)
	}

	if msg := backend.Message(err); msg != "" {
		return msg
	}

	switch {
	case errors.Is(err, ErrDeclined), errors.Is(err, context.Canceled):
		return "Cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.Is(err, alert.ErrUnauthenticated):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, alert.ErrUnauthorized):
		return "You are not allowed to do that."
	case errors.Is(err, alert.ErrInvalidTransition):
		return "This alert has changed in the meantime. The list has been refreshed."
	case errors.Is(err, alert.ErrNotFound):
		return "This alert no longer exists. The list has been refreshed."
	case errors.Is(err, alert.ErrValidation):
		return "Please check your input: " + err.Error()
	case errors.Is(err, alert.ErrNetwork):
		return "Could not reach the server. Check your connection and try again."
	case errors.Is(err, alert.ErrServer):
		return "The server failed to process the request. Please try again later."
	case errors.Is(err, alert.ErrRejected):
		return "The server refused the request. Please try again later."
	default:
		return err.Error()
	}
}

// NotifySubmission is Notify for a failed alert submission. It warns when
// the alert may have been created anyway.
func NotifySubmission(err error, ambiguous bool) string {
	if ambiguous {
		return "The connection failed while sending your alert. It may have been sent: " +
			"check your alerts before sending another one."
	}

	return Notify(err)
}

func locationMessage(err error) string {
	switch {
	case errors.Is(err, location.ErrPermissionDenied):
		return "Location access was denied. Allow location access and try again."
	case errors.Is(err, location.ErrTimeout):
		return "Getting your location took too long. Please try again."
	default:
		return "Your current location is unavailable. Please try again."
	}
}

func isLocationError(err error) bool {
	return errors.Is(err, location.ErrPermissionDenied) ||
		errors.Is(err, location.ErrTimeout) ||
		errors.Is(err, location.ErrLocationUnavailable)
}
