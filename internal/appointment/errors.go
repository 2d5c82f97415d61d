package appointment

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("appointment not found")

// ValidationError is a missing or malformed required field. Surfaced to the
// caller verbatim, never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError means the requested slot is unavailable, either because it
// is taken or because it lies in the past. The caller may retry with a
// different slot.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// StateError is an illegal lifecycle transition. It names the current and
// attempted status and never mutates the record.
type StateError struct {
	Current Status
	Target  Status
	Reason  string
}

func (e *StateError) Error() string {
	msg := fmt.Sprintf("cannot move appointment from %s to %s", e.Current, e.Target)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
