package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	appointment_id, patient_id, doctor_id,
	to_char(appointment_date, 'YYYY-MM-DD'),
	to_char(appointment_time, 'HH24:MI'),
	duration_minutes, appointment_type, priority, status,
	chief_complaint, symptoms, notes, diagnosis, treatment_plan,
	follow_up_required, to_char(follow_up_date, 'YYYY-MM-DD'),
	created_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a            Appointment
		followUpDate *string
		createdBy    *uuid.UUID
	)

	err := row.Scan(
		&a.AppointmentID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.TimeOfDay,
		&a.DurationMinutes,
		&a.Type,
		&a.Priority,
		&a.Status,
		&a.ChiefComplaint,
		&a.Symptoms,
		&a.Notes,
		&a.Diagnosis,
		&a.TreatmentPlan,
		&a.FollowUpRequired,
		&followUpDate,
		&createdBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	a.FollowUpDate = followUpDate
	a.CreatedBy = createdBy
	return &a, nil
}

// isActiveSlotViolation detects the partial unique index that enforces at
// most one active appointment per (doctor, date, time).
func isActiveSlotViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uniq_active_doctor_slot"
}

func (r *PgRepository) GetByID(ctx context.Context, appointmentID string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_id = $1
	`, appointmentID)
	return scanAppointment(row)
}

func (r *PgRepository) CountBlockingForSlot(ctx context.Context, doctorID uuid.UUID, date, timeOfDay, excludeID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2::date
		  AND appointment_time = $3::time
		  AND status IN ('scheduled', 'confirmed')
		  AND ($4 = '' OR appointment_id <> $4)
	`, doctorID, date, timeOfDay, excludeID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PgRepository) Create(ctx context.Context, a *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			appointment_id, patient_id, doctor_id,
			appointment_date, appointment_time, duration_minutes,
			appointment_type, priority, status,
			chief_complaint, symptoms, notes,
			follow_up_required, follow_up_date, created_by,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4::date, $5::time, $6, $7, $8, $9, $10, $11, $12, $13, $14::date, $15, now(), now())
		RETURNING `+appointmentColumns+`
	`,
		a.AppointmentID, a.PatientID, a.DoctorID,
		a.Date, a.TimeOfDay, a.DurationMinutes,
		a.Type, a.Priority, a.Status,
		a.ChiefComplaint, a.Symptoms, a.Notes,
		a.FollowUpRequired, a.FollowUpDate, a.CreatedBy,
	)

	saved, err := scanAppointment(row)
	if err != nil {
		if isActiveSlotViolation(err) {
			return &ConflictError{Reason: MsgSlotTaken}
		}
		return err
	}

	*a = *saved
	return nil
}

func (r *PgRepository) Update(ctx context.Context, a *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date = $2::date,
		    appointment_time = $3::time,
		    duration_minutes = $4,
		    appointment_type = $5,
		    priority = $6,
		    status = $7,
		    chief_complaint = $8,
		    symptoms = $9,
		    notes = $10,
		    diagnosis = $11,
		    treatment_plan = $12,
		    follow_up_required = $13,
		    follow_up_date = $14::date,
		    updated_at = now()
		WHERE appointment_id = $1
		RETURNING `+appointmentColumns+`
	`,
		a.AppointmentID,
		a.Date, a.TimeOfDay, a.DurationMinutes,
		a.Type, a.Priority, a.Status,
		a.ChiefComplaint, a.Symptoms, a.Notes,
		a.Diagnosis, a.TreatmentPlan,
		a.FollowUpRequired, a.FollowUpDate,
	)

	saved, err := scanAppointment(row)
	if err != nil {
		if isActiveSlotViolation(err) {
			return &ConflictError{Reason: MsgSlotTaken}
		}
		return err
	}

	*a = *saved
	return nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, appointmentID string, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE appointment_id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, appointmentID, to, from)

	return scanAppointment(row)
}
