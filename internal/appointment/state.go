package appointment

import (
	"time"

	"github.com/medicore/hospital-scheduling/internal/clock"
)

// CancelNotice is how far before the appointment a cancellation must arrive.
const CancelNotice = time.Hour

// StateMachine encodes the legal status transitions and their wall-clock
// guards. All checks are pure reads; applying a transition is left to the
// engine so that guard evaluation never mutates the record.
type StateMachine struct {
	clock clock.Clock
}

func NewStateMachine(c clock.Clock) *StateMachine {
	return &StateMachine{clock: c}
}

// CheckStart guards scheduled/confirmed -> in_progress. A future-dated
// appointment cannot be started, only one for today or earlier.
func (m *StateMachine) CheckStart(a *Appointment) error {
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return &StateError{Current: a.Status, Target: StatusInProgress}
	}

	if a.Date > clock.Today(m.clock) {
		return &StateError{
			Current: a.Status,
			Target:  StatusInProgress,
			Reason:  "cannot start a future appointment, it is scheduled for " + a.Date,
		}
	}

	return nil
}

// CheckComplete guards in_progress -> completed.
func (m *StateMachine) CheckComplete(a *Appointment) error {
	if a.Status != StatusInProgress {
		return &StateError{Current: a.Status, Target: StatusCompleted}
	}
	return nil
}

// CheckCancel guards scheduled/confirmed/rescheduled -> cancelled. A
// *StateError names the rejection reason; any other error is an internal
// failure the caller must treat as "cannot cancel".
func (m *StateMachine) CheckCancel(a *Appointment) error {
	switch a.Status {
	case StatusScheduled, StatusConfirmed, StatusRescheduled:
	default:
		return &StateError{
			Current: a.Status,
			Target:  StatusCancelled,
			Reason:  "appointment is already in a terminal state",
		}
	}

	dt, err := a.DateTime()
	if err != nil {
		return err
	}

	if !m.clock.Now().Before(dt.Add(-CancelNotice)) {
		return &StateError{
			Current: a.Status,
			Target:  StatusCancelled,
			Reason:  "past the cancellation deadline",
		}
	}

	return nil
}

// CanCancel is the fail-safe answer to "may this appointment still be
// cancelled": any internal error counts as no.
func (m *StateMachine) CanCancel(a *Appointment) bool {
	return m.CheckCancel(a) == nil
}
