package fault

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed input (inverted date ranges, negative
// amounts) before anything touches storage.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports an overlapping reservation interval. Nothing was
// mutated when one of these is returned.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflictf(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// InvariantViolation is a broken domain invariant (odometer regression,
// deposit over-release). These are surfaced, never silently corrected.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string { return e.Msg }

func Invariantf(format string, args ...any) error {
	return &InvariantViolation{Msg: fmt.Sprintf(format, args...)}
}

// StateError rejects a transition attempted from the wrong source state.
// It always names the required state and the actual current one.
type StateError struct {
	Entity   string
	Required string
	Actual   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s requires status %s, current status is %s", e.Entity, e.Required, e.Actual)
}

func StateMismatch(entity, required, actual string) error {
	return &StateError{Entity: entity, Required: required, Actual: actual}
}

// ExternalServiceError wraps a failure from a collaborator (payment gateway,
// notification sink). Settled state is never rolled back because of one.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func External(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsInvariant(err error) bool {
	var i *InvariantViolation
	return errors.As(err, &i)
}

func IsStateMismatch(err error) bool {
	var s *StateError
	return errors.As(err, &s)
}
