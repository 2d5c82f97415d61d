package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hospital-scheduling/internal/clock"
)

// Availability messages surfaced verbatim to the booking UI.
const (
	MsgSlotTaken    = "Doctor is not available at this time. Please choose a different time."
	MsgSlotInPast   = "Cannot schedule appointments in the past."
	MsgSlotOpen     = "Doctor is available at this time."
	MsgSlotBadInput = "Invalid date or time."
)

// AvailabilityChecker decides whether a (doctor, date, time) slot is free.
// Only exact date/time collisions with scheduled or confirmed appointments
// block a slot; overlapping-but-offset bookings are not detected, the
// surrounding system books exact slots only.
type AvailabilityChecker struct {
	repo  Repository
	clock clock.Clock
}

func NewAvailabilityChecker(repo Repository, c clock.Clock) *AvailabilityChecker {
	return &AvailabilityChecker{repo: repo, clock: c}
}

// IsAvailable reports whether the slot is free together with a
// human-readable reason. excludeID, when non-empty, skips that appointment
// in the collision check so an existing booking can be edited in place.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, doctorID uuid.UUID, date, timeOfDay, excludeID string) (bool, string, error) {
	dt, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+timeOfDay, time.Local)
	if err != nil {
		return false, MsgSlotBadInput, nil
	}

	if dt.Before(c.clock.Now()) {
		return false, MsgSlotInPast, nil
	}

	count, err := c.repo.CountBlockingForSlot(ctx, doctorID, date, timeOfDay, excludeID)
	if err != nil {
		return false, "", fmt.Errorf("check doctor availability: %w", err)
	}
	if count > 0 {
		return false, MsgSlotTaken, nil
	}

	return true, MsgSlotOpen, nil
}
