package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID
	PatientID string // human-readable id, PAT<YYYY><seq>
	FirstName string
	LastName  string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

var ErrNotFound = errors.New("patient not found")

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByPatientID(ctx context.Context, patientID string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]Patient, error)
}
