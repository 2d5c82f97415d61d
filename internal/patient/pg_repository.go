package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const patientColumns = `id, patient_id, first_name, last_name,
	COALESCE(email, ''), COALESCE(phone, ''), created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientID, &p.FirstName, &p.LastName,
		&p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return &p, nil
}

func (r *PgRepository) Create(ctx context.Context, p *Patient) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, patient_id, first_name, last_name, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+patientColumns,
		p.ID, p.PatientID, p.FirstName, p.LastName, p.Email, p.Phone,
	)
	saved, err := scanPatient(row)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	*p = *saved
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetByPatientID(ctx context.Context, patientID string) (*Patient, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE patient_id = $1`, patientID)
	return scanPatient(row)
}

func (r *PgRepository) List(ctx context.Context, limit, offset int) ([]Patient, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
