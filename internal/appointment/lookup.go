package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrDoctorNotFound  = errors.New("doctor not found")
)

// Party is the minimal view of a patient or doctor the engine needs: enough
// to validate the reference and to render a notification message.
type Party struct {
	ID       uuid.UUID
	FullName string
}

// PartyLookup resolves the externally owned patient and doctor references.
type PartyLookup interface {
	PatientByID(ctx context.Context, id uuid.UUID) (*Party, error)
	DoctorByID(ctx context.Context, id uuid.UUID) (*Party, error)
}

type PgPartyLookup struct {
	pool *pgxpool.Pool
}

func NewPgPartyLookup(pool *pgxpool.Pool) *PgPartyLookup {
	return &PgPartyLookup{pool: pool}
}

func (l *PgPartyLookup) PatientByID(ctx context.Context, id uuid.UUID) (*Party, error) {
	var p Party
	err := l.pool.QueryRow(ctx, `
		SELECT id, first_name || ' ' || last_name
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.FullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (l *PgPartyLookup) DoctorByID(ctx context.Context, id uuid.UUID) (*Party, error) {
	var p Party
	err := l.pool.QueryRow(ctx, `
		SELECT id, full_name
		FROM users
		WHERE id = $1 AND role = 'doctor'
	`, id).Scan(&p.ID, &p.FullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &p, nil
}
