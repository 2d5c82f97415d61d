package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

// ActiveStatuses are the statuses that count toward slot occupancy.
var ActiveStatuses = []Status{StatusScheduled, StatusConfirmed, StatusInProgress}

// IsTerminal reports whether no further lifecycle transitions are allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Type string

const (
	TypeConsultation Type = "consultation"
	TypeFollowUp     Type = "follow_up"
	TypeEmergency    Type = "emergency"
	TypeSurgery      Type = "surgery"
	TypeCheckup      Type = "checkup"
	TypeVaccination  Type = "vaccination"
	TypeLabTest      Type = "lab_test"
)

func (t Type) Valid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeEmergency, TypeSurgery, TypeCheckup, TypeVaccination, TypeLabTest:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Appointment struct {
	AppointmentID string // APT<YYYYMM><seq>, immutable after creation
	PatientID     uuid.UUID
	DoctorID      uuid.UUID

	Date            string // YYYY-MM-DD
	TimeOfDay       string // HH:MM
	DurationMinutes int

	Type     Type
	Priority Priority
	Status   Status

	ChiefComplaint string
	Symptoms       string
	Notes          string

	Diagnosis        string
	TreatmentPlan    string
	FollowUpRequired bool
	FollowUpDate     *string // YYYY-MM-DD, meaningful only if FollowUpRequired

	CreatedBy *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DateTime combines the calendar date and time-of-day into one instant in
// the server's local zone, the zone the clinic schedules in.
func (a *Appointment) DateTime() (time.Time, error) {
	dt, err := time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.TimeOfDay, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("appointment %s has malformed date/time %q %q: %w",
			a.AppointmentID, a.Date, a.TimeOfDay, err)
	}
	return dt, nil
}
