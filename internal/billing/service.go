package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medicore/hospital-scheduling/internal/clock"
	"github.com/medicore/hospital-scheduling/internal/event"
	"github.com/medicore/hospital-scheduling/internal/patient"
	"github.com/medicore/hospital-scheduling/internal/sequence"
)

const (
	idPrefix     = "INV"
	bucketLayout = "200601" // invoice numbers reset monthly
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PatientNames resolves display names for event payloads.
type PatientNames interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type CreateInput struct {
	PatientID   uuid.UUID
	TotalAmount int64
	DueDate     string
	ActorID     *uuid.UUID
}

type Service struct {
	repo     Repository
	patients PatientNames
	ids      sequence.Generator
	bus      *event.Bus
	clock    clock.Clock
	log      *zap.Logger
}

func NewService(repo Repository, patients PatientNames, ids sequence.Generator, bus *event.Bus, clk clock.Clock, log *zap.Logger) *Service {
	return &Service{repo: repo, patients: patients, ids: ids, bus: bus, clock: clk, log: log}
}

// Create issues a new invoice and announces it on the bus.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Invoice, error) {
	if in.TotalAmount <= 0 {
		return nil, &ValidationError{Field: "total_amount", Reason: "must be positive"}
	}
	if in.DueDate == "" {
		return nil, &ValidationError{Field: "due_date", Reason: "is required"}
	}

	p, err := s.patients.GetByID(ctx, in.PatientID)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return nil, &ValidationError{Field: "patient_id", Reason: "patient does not exist"}
		}
		return nil, fmt.Errorf("look up patient: %w", err)
	}

	number, err := s.ids.Next(ctx, idPrefix, s.clock.Now().Format(bucketLayout))
	if err != nil {
		return nil, fmt.Errorf("assign invoice number: %w", err)
	}

	inv := &Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		PatientID:     in.PatientID,
		TotalAmount:   in.TotalAmount,
		Status:        StatusSent,
		DueDate:       in.DueDate,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int64("total_amount", inv.TotalAmount),
	)
	s.publish(ctx, event.KindInvoiceCreated, inv, in.ActorID, map[string]string{
		"patient_name": p.FullName(),
		"amount":       FormatAmount(inv.TotalAmount),
	})
	return inv, nil
}

// RecordPayment applies a payment and announces full settlement on the bus.
// Partial payments update the invoice silently.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, amount int64, actorID *uuid.UUID) (*Invoice, error) {
	if amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusPaid || inv.Status == StatusCancelled {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("invoice is %s", inv.Status)}
	}
	if amount > inv.BalanceDue() {
		return nil, &ValidationError{Field: "amount", Reason: "exceeds balance due"}
	}

	inv.PaidAmount += amount
	if inv.BalanceDue() == 0 {
		inv.Status = StatusPaid
	} else {
		inv.Status = StatusPartiallyPaid
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}

	if inv.Status == StatusPaid {
		s.publish(ctx, event.KindInvoicePaid, inv, actorID, map[string]string{
			"amount": FormatAmount(inv.TotalAmount),
		})
	}
	return inv, nil
}

// MarkOverdue sweeps unpaid invoices past their due date, flips them to
// overdue and announces each one. It returns how many were flipped.
func (s *Service) MarkOverdue(ctx context.Context) (int, error) {
	today := clock.Today(s.clock)
	due, err := s.repo.ListPayableDueBefore(ctx, today)
	if err != nil {
		return 0, err
	}

	flipped := 0
	for i := range due {
		inv := due[i]
		inv.Status = StatusOverdue
		if err := s.repo.Update(ctx, &inv); err != nil {
			s.log.Error("mark invoice overdue failed",
				zap.String("invoice_number", inv.InvoiceNumber),
				zap.Error(err),
			)
			continue
		}
		flipped++
		s.publish(ctx, event.KindInvoiceOverdue, &inv, nil, map[string]string{
			"balance_due": FormatAmount(inv.BalanceDue()),
		})
	}
	return flipped, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) publish(ctx context.Context, kind string, inv *Invoice, actorID *uuid.UUID, extra map[string]string) {
	payload := map[string]string{
		"invoice_number": inv.InvoiceNumber,
	}
	for k, v := range extra {
		payload[k] = v
	}

	ev := event.Event{
		Kind:       kind,
		SubjectID:  inv.ID.String(),
		Payload:    payload,
		OccurredAt: s.clock.Now(),
	}
	if actorID != nil {
		ev.ActorID = actorID.String()
	}
	s.bus.Publish(ctx, ev)
}
