// Package session carries the caller's identity explicitly. Every operation
// that is role-gated takes a *Session instead of reading ambient auth state.
package session

import (
	"errors"
	"fmt"

	"github.com/oshokin/guardian/internal/domain/alert"
)

var (
	// errTokenRequired is returned when no bearer token is available.
	errTokenRequired = errors.New("session token must be provided")
	// errInvalidRole is returned for roles other than patient and responder.
	errInvalidRole = errors.New("session role must be patient or responder")
)

// Session is the authenticated actor.
type Session struct {
	// Token is the bearer token issued by the backend.
	Token string
	// Role decides which actions the client offers.
	Role alert.Role
	// UserID identifies the actor in logs; optional.
	UserID string
}

// New validates and returns a session.
func New(token string, role alert.Role, userID string) (*Session, error) {
	if token == "" {
		return nil, errTokenRequired
	}

	if !role.IsValid() {
		return nil, fmt.Errorf("%q: %w", role, errInvalidRole)
	}

	return &Session{
		Token:  token,
		Role:   role,
		UserID: userID,
	}, nil
}

// Can reports whether this session may take the action on an alert in the
// given status. It mirrors backend rules for usability only.
func (s *Session) Can(status alert.Status, action alert.Action) bool {
	if s == nil {
		return false
	}

	return alert.Allowed(s.Role, status, action)
}

// Require returns an error wrapping alert.ErrUnauthorized when the session
// does not have the role.
func (s *Session) Require(role alert.Role) error {
	if s == nil || s.Role != role {
		return fmt.Errorf("operation requires the %s role: %w", role, alert.ErrUnauthorized)
	}

	return nil
}

// String hides the token.
func (s *Session) String() string {
	if s == nil {
		return "<no session>"
	}

	if s.UserID == "" {
		return string(s.Role)
	}

	return fmt.Sprintf("%s:%s", s.Role, s.UserID)
}
