package appointment

import (
	"context"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the scheduling engine.
type Repository interface {
	GetByID(ctx context.Context, appointmentID string) (*Appointment, error)

	// CountBlockingForSlot counts scheduled/confirmed appointments for the
	// exact (doctor, date, time) tuple, excluding excludeID when non-empty.
	CountBlockingForSlot(ctx context.Context, doctorID uuid.UUID, date, timeOfDay, excludeID string) (int, error)

	// Create persists a new appointment. A violation of the active-slot
	// uniqueness guarantee returns *ConflictError.
	Create(ctx context.Context, a *Appointment) error

	// Update persists edited fields of an existing appointment. Moving it
	// onto an occupied slot returns *ConflictError.
	Update(ctx context.Context, a *Appointment) error

	// UpdateStatus moves an appointment from one status to another as a
	// single compare-and-set; ErrNotFound means the row was missing or no
	// longer in the expected status.
	UpdateStatus(ctx context.Context, appointmentID string, from, to Status) (*Appointment, error)
}
