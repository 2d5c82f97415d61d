package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medicore/hospital-scheduling/internal/clock"
	"github.com/medicore/hospital-scheduling/internal/event"
	"github.com/medicore/hospital-scheduling/internal/sequence"
)

const (
	idPrefix     = "PAT"
	bucketLayout = "2006" // patient ids reset yearly
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	ActorID   *uuid.UUID
}

type Service struct {
	repo  Repository
	ids   sequence.Generator
	bus   *event.Bus
	clock clock.Clock
	log   *zap.Logger
}

func NewService(repo Repository, ids sequence.Generator, bus *event.Bus, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{repo: repo, ids: ids, bus: bus, clock: clk, log: log}
}

// Register creates a patient record, assigns its human-readable id and
// announces the registration on the bus.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Patient, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" {
		return nil, &ValidationError{Field: "first_name", Reason: "is required"}
	}
	if in.LastName == "" {
		return nil, &ValidationError{Field: "last_name", Reason: "is required"}
	}

	patientID, err := s.ids.Next(ctx, idPrefix, s.clock.Now().Format(bucketLayout))
	if err != nil {
		return nil, fmt.Errorf("assign patient id: %w", err)
	}

	p := &Patient{
		ID:        uuid.New(),
		PatientID: patientID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("patient registered",
		zap.String("patient_id", p.PatientID),
		zap.String("name", p.FullName()),
	)

	ev := event.Event{
		Kind:      event.KindPatientRegistered,
		SubjectID: p.PatientID,
		Payload: map[string]string{
			"patient_name": p.FullName(),
		},
		OccurredAt: s.clock.Now(),
	}
	if in.ActorID != nil {
		ev.ActorID = in.ActorID.String()
	}
	s.bus.Publish(ctx, ev)

	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByPatientID(ctx context.Context, patientID string) (*Patient, error) {
	return s.repo.GetByPatientID(ctx, patientID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Patient, error) {
	return s.repo.List(ctx, limit, offset)
}
