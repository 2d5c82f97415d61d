package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft         Status = "draft"
	StatusSent          Status = "sent"
	StatusPaid          Status = "paid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusOverdue       Status = "overdue"
	StatusCancelled     Status = "cancelled"
)

// Invoice amounts are kept in minor units (cents) to avoid float drift.
type Invoice struct {
	ID            uuid.UUID
	InvoiceNumber string // INV<YYYYMM><seq>
	PatientID     uuid.UUID
	TotalAmount   int64
	PaidAmount    int64
	Status        Status
	DueDate       string // 2006-01-02
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (i Invoice) BalanceDue() int64 {
	return i.TotalAmount - i.PaidAmount
}

// FormatAmount renders minor units as a decimal string, e.g. 45000 -> "450.00".
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

var ErrNotFound = errors.New("invoice not found")

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error

	// ListPayableDueBefore returns sent and partially paid invoices whose
	// due date is strictly before the given date.
	ListPayableDueBefore(ctx context.Context, date string) ([]Invoice, error)
}
