package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medicore/hospital-scheduling/internal/clock"
	"github.com/medicore/hospital-scheduling/internal/event"
	redisclient "github.com/medicore/hospital-scheduling/internal/redis"
	"github.com/medicore/hospital-scheduling/internal/sequence"
)

const (
	idPrefix     = "APT"
	bucketLayout = "200601" // year-month buckets for the sequential suffix
)

// Engine is the public entry point for all appointment mutations. It
// composes the availability checker, the state machine and the id generator,
// and publishes one domain event per successful status change.
type Engine struct {
	repo    Repository
	lookup  PartyLookup
	ids     sequence.Generator
	checker *AvailabilityChecker
	machine *StateMachine
	locker  redisclient.Locker
	bus     *event.Bus
	clock   clock.Clock
	log     *zap.Logger
}

func NewEngine(
	repo Repository,
	lookup PartyLookup,
	ids sequence.Generator,
	locker redisclient.Locker,
	bus *event.Bus,
	c clock.Clock,
	log *zap.Logger,
) *Engine {
	return &Engine{
		repo:    repo,
		lookup:  lookup,
		ids:     ids,
		checker: NewAvailabilityChecker(repo, c),
		machine: NewStateMachine(c),
		locker:  locker,
		bus:     bus,
		clock:   c,
		log:     log,
	}
}

type CreateInput struct {
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	Date            string
	TimeOfDay       string
	DurationMinutes int
	Type            Type
	Priority        Priority
	ChiefComplaint  string
	Symptoms        string
	Notes           string
	CreatedBy       *uuid.UUID
}

// Create books a slot for a patient. The availability check and the insert
// run inside a per-slot distributed lock, and the storage layer's unique
// constraint backstops the lock, so concurrent requests for the same slot
// yield exactly one appointment.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	if err := e.validateCreate(&in); err != nil {
		return nil, err
	}

	patient, err := e.lookup.PatientByID(ctx, in.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, &ValidationError{Field: "patient_id", Reason: "unknown patient"}
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := e.lookup.DoctorByID(ctx, in.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, &ValidationError{Field: "doctor_id", Reason: "unknown doctor"}
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	var created *Appointment

	err = e.locker.WithBookingLock(ctx, slotKey(in.DoctorID, in.Date, in.TimeOfDay), func(lockCtx context.Context) error {
		available, reason, err := e.checker.IsAvailable(lockCtx, in.DoctorID, in.Date, in.TimeOfDay, "")
		if err != nil {
			return err
		}
		if !available {
			return &ConflictError{Reason: reason}
		}

		id, err := e.ids.Next(lockCtx, idPrefix, e.clock.Now().Format(bucketLayout))
		if err != nil {
			return fmt.Errorf("assign appointment id: %w", err)
		}

		appt := &Appointment{
			AppointmentID:   id,
			PatientID:       in.PatientID,
			DoctorID:        in.DoctorID,
			Date:            in.Date,
			TimeOfDay:       in.TimeOfDay,
			DurationMinutes: in.DurationMinutes,
			Type:            in.Type,
			Priority:        in.Priority,
			Status:          StatusScheduled,
			ChiefComplaint:  in.ChiefComplaint,
			Symptoms:        in.Symptoms,
			Notes:           in.Notes,
			CreatedBy:       in.CreatedBy,
		}

		if err := e.repo.Create(lockCtx, appt); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, &ConflictError{Reason: "slot is currently being booked, please retry shortly"}
		}
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		return nil, err
	}

	e.publish(ctx, event.KindAppointmentCreated, created, map[string]string{
		"patient_name": patient.FullName,
		"doctor_name":  doctor.FullName,
	})

	return created, nil
}

func (e *Engine) validateCreate(in *CreateInput) error {
	if in.PatientID == uuid.Nil {
		return &ValidationError{Field: "patient_id", Reason: "required"}
	}
	if in.DoctorID == uuid.Nil {
		return &ValidationError{Field: "doctor_id", Reason: "required"}
	}
	if in.Date == "" {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	if in.TimeOfDay == "" {
		return &ValidationError{Field: "time", Reason: "required"}
	}
	if in.ChiefComplaint == "" {
		return &ValidationError{Field: "chief_complaint", Reason: "required"}
	}

	if in.DurationMinutes == 0 {
		in.DurationMinutes = 30
	}
	if in.DurationMinutes < 0 {
		return &ValidationError{Field: "duration_minutes", Reason: "must be positive"}
	}

	if in.Type == "" {
		in.Type = TypeConsultation
	}
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown appointment type %q", in.Type)}
	}

	if in.Priority == "" {
		in.Priority = PriorityNormal
	}
	if !in.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", in.Priority)}
	}

	return nil
}

type UpdateInput struct {
	Date             *string
	TimeOfDay        *string
	DurationMinutes  *int
	Type             *Type
	Priority         *Priority
	ChiefComplaint   *string
	Symptoms         *string
	Notes            *string
	Diagnosis        *string
	TreatmentPlan    *string
	FollowUpRequired *bool
	FollowUpDate     *string
}

// Update edits appointment fields. Changing the date or time re-runs the
// availability check excluding the appointment itself; the status is left
// untouched so the moved appointment keeps blocking its new slot and can
// still be started.
func (e *Engine) Update(ctx context.Context, appointmentID string, in UpdateInput) (*Appointment, error) {
	a, err := e.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	newDate := a.Date
	if in.Date != nil {
		newDate = *in.Date
	}
	newTime := a.TimeOfDay
	if in.TimeOfDay != nil {
		newTime = *in.TimeOfDay
	}
	moved := newDate != a.Date || newTime != a.TimeOfDay

	if moved {
		switch a.Status {
		case StatusScheduled, StatusConfirmed, StatusRescheduled:
		default:
			return nil, &StateError{
				Current: a.Status,
				Target:  StatusRescheduled,
				Reason:  "only upcoming appointments can be moved",
			}
		}
	}

	applyUpdate(a, in)

	if !moved {
		if err := e.repo.Update(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	}

	err = e.locker.WithBookingLock(ctx, slotKey(a.DoctorID, newDate, newTime), func(lockCtx context.Context) error {
		available, reason, err := e.checker.IsAvailable(lockCtx, a.DoctorID, newDate, newTime, a.AppointmentID)
		if err != nil {
			return err
		}
		if !available {
			return &ConflictError{Reason: reason}
		}
		return e.repo.Update(lockCtx, a)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, &ConflictError{Reason: "slot is currently being booked, please retry shortly"}
		}
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		return nil, err
	}

	e.publish(ctx, event.KindAppointmentRescheduled, a, nil)

	return a, nil
}

func applyUpdate(a *Appointment, in UpdateInput) {
	if in.Date != nil {
		a.Date = *in.Date
	}
	if in.TimeOfDay != nil {
		a.TimeOfDay = *in.TimeOfDay
	}
	if in.DurationMinutes != nil {
		a.DurationMinutes = *in.DurationMinutes
	}
	if in.Type != nil {
		a.Type = *in.Type
	}
	if in.Priority != nil {
		a.Priority = *in.Priority
	}
	if in.ChiefComplaint != nil {
		a.ChiefComplaint = *in.ChiefComplaint
	}
	if in.Symptoms != nil {
		a.Symptoms = *in.Symptoms
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}
	if in.Diagnosis != nil {
		a.Diagnosis = *in.Diagnosis
	}
	if in.TreatmentPlan != nil {
		a.TreatmentPlan = *in.TreatmentPlan
	}
	if in.FollowUpRequired != nil {
		a.FollowUpRequired = *in.FollowUpRequired
	}
	if in.FollowUpDate != nil {
		a.FollowUpDate = in.FollowUpDate
	}
}

// Start moves a scheduled or confirmed appointment of today (or earlier)
// into in_progress.
func (e *Engine) Start(ctx context.Context, appointmentID string) (*Appointment, error) {
	return e.transition(ctx, appointmentID, StatusInProgress, event.KindAppointmentStarted, func(a *Appointment) error {
		return e.machine.CheckStart(a)
	})
}

// Complete moves an in_progress appointment to completed.
func (e *Engine) Complete(ctx context.Context, appointmentID string) (*Appointment, error) {
	return e.transition(ctx, appointmentID, StatusCompleted, event.KindAppointmentCompleted, func(a *Appointment) error {
		return e.machine.CheckComplete(a)
	})
}

// Cancel cancels an upcoming appointment if the notice deadline has not
// passed. Unexpected guard failures degrade to "cannot cancel" so that a
// data problem never lets a booking slip out past its deadline; the
// underlying error is still logged for diagnosis.
func (e *Engine) Cancel(ctx context.Context, appointmentID string) (*Appointment, error) {
	return e.transition(ctx, appointmentID, StatusCancelled, event.KindAppointmentCancelled, func(a *Appointment) error {
		err := e.machine.CheckCancel(a)
		if err == nil {
			return nil
		}
		var stateErr *StateError
		if errors.As(err, &stateErr) {
			return stateErr
		}
		e.log.Error("cancellation check failed",
			zap.String("appointment_id", a.AppointmentID),
			zap.Error(err),
		)
		return &StateError{
			Current: a.Status,
			Target:  StatusCancelled,
			Reason:  "cancellation could not be verified",
		}
	})
}

func (e *Engine) transition(ctx context.Context, appointmentID string, to Status, kind string, guard func(*Appointment) error) (*Appointment, error) {
	a, err := e.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if err := guard(a); err != nil {
		return nil, err
	}

	updated, err := e.repo.UpdateStatus(ctx, a.AppointmentID, a.Status, to)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Lost a race with another transition; report against the
			// status the row holds now.
			fresh, ferr := e.repo.GetByID(ctx, appointmentID)
			if ferr != nil {
				return nil, ferr
			}
			return nil, &StateError{Current: fresh.Status, Target: to}
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	e.publish(ctx, kind, updated, nil)

	return updated, nil
}

// GetByID loads one appointment.
func (e *Engine) GetByID(ctx context.Context, appointmentID string) (*Appointment, error) {
	return e.repo.GetByID(ctx, appointmentID)
}

// CheckAvailability answers the booking form's availability probe.
func (e *Engine) CheckAvailability(ctx context.Context, doctorID uuid.UUID, date, timeOfDay, excludeID string) (bool, string, error) {
	return e.checker.IsAvailable(ctx, doctorID, date, timeOfDay, excludeID)
}

// publish emits one domain event for a committed mutation. Publication is
// best-effort: the bus isolates subscriber failures, so a notification
// problem can never roll back the appointment change.
func (e *Engine) publish(ctx context.Context, kind string, a *Appointment, extra map[string]string) {
	payload := map[string]string{
		"doctor_id": a.DoctorID.String(),
		"date":      a.Date,
		"time":      a.TimeOfDay,
	}
	for k, v := range extra {
		payload[k] = v
	}

	if _, ok := payload["patient_name"]; !ok {
		if patient, err := e.lookup.PatientByID(ctx, a.PatientID); err == nil {
			payload["patient_name"] = patient.FullName
		} else {
			e.log.Warn("could not resolve patient name for event",
				zap.String("appointment_id", a.AppointmentID),
				zap.Error(err),
			)
			payload["patient_name"] = ""
		}
	}

	actor := ""
	if a.CreatedBy != nil {
		actor = a.CreatedBy.String()
	}

	e.bus.Publish(ctx, event.Event{
		Kind:       kind,
		SubjectID:  a.AppointmentID,
		ActorID:    actor,
		Payload:    payload,
		OccurredAt: e.clock.Now(),
	})
}

func slotKey(doctorID uuid.UUID, date, timeOfDay string) string {
	return fmt.Sprintf("%s:%s:%s", doctorID, date, timeOfDay)
}
