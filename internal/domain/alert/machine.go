package alert

import "fmt"

// Role is the kind of actor operating on alerts.
type Role string

// Roles.
const (
	RolePatient   Role = "patient"
	RoleResponder Role = "responder"
)

// IsValid reports whether the role is known.
func (r Role) IsValid() bool {
	return r == RolePatient || r == RoleResponder
}

// Action is an operation a role may request on an alert.
type Action string

// Actions. ActionDelete removes the record and is not a status change.
const (
	ActionAcknowledge Action = "acknowledge"
	ActionResolve     Action = "resolve"
	ActionCancel      Action = "cancel"
	ActionDelete      Action = "delete"
)

// IsTransition reports whether the action moves the alert to another status.
func (a Action) IsTransition() bool {
	return a == ActionAcknowledge || a == ActionResolve || a == ActionCancel
}

// IsDestructive reports whether the action needs explicit user confirmation.
func (a Action) IsDestructive() bool {
	return a == ActionCancel || a == ActionDelete
}

// permitted maps every (role, status) pair to the actions it allows.
// This is the single source of truth for legality; the backend enforces the
// same rules and has the final word.
//
//nolint:gochecknoglobals // Read-only lookup table.
var permitted = map[Role]map[Status][]Action{
	RoleResponder: {
		StatusActive:       {ActionAcknowledge, ActionCancel},
		StatusAcknowledged: {ActionResolve},
		StatusResolved:     {},
		StatusCancelled:    {},
	},
	RolePatient: {
		StatusActive:       {ActionDelete},
		StatusAcknowledged: {ActionDelete},
		StatusResolved:     {ActionDelete},
		StatusCancelled:    {ActionDelete},
	},
}

// outcomes maps each status-changing action to its source and target statuses.
//
//nolint:gochecknoglobals // Read-only lookup table.
var outcomes = map[Action]map[Status]Status{
	ActionAcknowledge: {StatusActive: StatusAcknowledged},
	ActionCancel:      {StatusActive: StatusCancelled},
	ActionResolve:     {StatusAcknowledged: StatusResolved},
}

// Actions returns the actions the role may take on an alert in the given status.
// The result is a copy and may be modified by the caller.
func Actions(role Role, status Status) []Action {
	actions := permitted[role][status]
	if len(actions) == 0 {
		return nil
	}

	result := make([]Action, len(actions))
	copy(result, actions)

	return result
}

// Allowed reports whether the role may take the action in the given status.
func Allowed(role Role, status Status, action Action) bool {
	for _, a := range permitted[role][status] {
		if a == action {
			return true
		}
	}

	return false
}

// Check validates a request and classifies a refusal: ErrUnauthorized when
// the role never may take the action, ErrInvalidTransition when the status
// forbids it.
func Check(role Role, status Status, action Action) error {
	if Allowed(role, status, action) {
		return nil
	}

	if !Permits(role, action) {
		return fmt.Errorf("%s may not %s alerts: %w", role, action, ErrUnauthorized)
	}

	return fmt.Errorf("cannot %s an alert that is %s: %w", action, status, ErrInvalidTransition)
}

// Next returns the status an alert reaches after the action.
func Next(role Role, status Status, action Action) (Status, error) {
	if err := Check(role, status, action); err != nil {
		return status, err
	}

	next, ok := outcomes[action][status]
	if !ok {
		return status, fmt.Errorf("%s does not change status: %w", action, ErrInvalidTransition)
	}

	return next, nil
}

// Permits reports whether the role has the action in any status.
func Permits(role Role, action Action) bool {
	for _, actions := range permitted[role] {
		for _, a := range actions {
			if a == action {
				return true
			}
		}
	}

	return false
}
