package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAppointment Type = "appointment"
	TypePatient     Type = "patient"
	TypeBilling     Type = "billing"
	TypePharmacy    Type = "pharmacy"
	TypeSystem      Type = "system"
	TypeReminder    Type = "reminder"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Notification struct {
	ID          uuid.UUID
	Title       string
	Message     string
	Type        Type
	Priority    Priority
	RecipientID uuid.UUID
	SenderID    *uuid.UUID
	IsRead      bool
	ReadAt      *time.Time
	ActionURL   string
	CreatedAt   time.Time
}

// ErrNotFound covers both a genuinely unknown id and an id owned by another
// recipient: scoping is enforced by the query itself, so a foreign
// notification is indistinguishable from a missing one.
var ErrNotFound = errors.New("notification not found")

// Sort orders accepted by List.
const (
	SortDateDesc    = "date_desc"
	SortDateAsc     = "date_asc"
	SortPriority    = "priority"
	SortType        = "type"
	SortUnreadFirst = "unread_first"
)

type ListFilter struct {
	Status   string // "", "unread" or "read"
	Type     Type
	Priority Priority
	Search   string // case-insensitive substring over title and message
	Sort     string
	Limit    int
	Offset   int
}

// Store persists notifications. Every operation is scoped to the acting
// recipient.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, recipientID uuid.UUID, f ListFilter) ([]Notification, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error)

	// HasUnread reports whether an unread notification of the given type
	// whose title starts with titlePrefix exists for the recipient. This is
	// the dedup probe for recurring condition-based events.
	HasUnread(ctx context.Context, recipientID uuid.UUID, t Type, titlePrefix string) (bool, error)

	// MarkRead is a no-op if the notification is already read.
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, recipientID uuid.UUID) error
}
