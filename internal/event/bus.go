package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event kinds published by the scheduling, billing, patient and pharmacy
// services. The dispatcher keys its recipient rules on these.
const (
	KindAppointmentCreated     = "appointment.created"
	KindAppointmentRescheduled = "appointment.rescheduled"
	KindAppointmentStarted     = "appointment.started"
	KindAppointmentCompleted   = "appointment.completed"
	KindAppointmentCancelled   = "appointment.cancelled"
	KindPatientRegistered      = "patient.registered"
	KindInvoiceCreated         = "invoice.created"
	KindInvoicePaid            = "invoice.paid"
	KindInvoiceOverdue         = "invoice.overdue"
	KindMedicineLowStock       = "medicine.low_stock"
	KindMedicineExpiringSoon   = "medicine.expiring_soon"
)

// Event is a fact about a state change. It is ephemeral: published once per
// mutation and never persisted.
type Event struct {
	Kind       string
	SubjectID  string            // id of the entity that changed
	ActorID    string            // user who caused the change, may be empty
	Payload    map[string]string // minimal facts needed to render a message
	OccurredAt time.Time
}

// Handler consumes one event. A returned error is logged by the bus and
// isolated from the publisher and from other handlers.
type Handler func(ctx context.Context, ev Event) error

// Bus is a synchronous in-process publish/subscribe mechanism. Publish runs
// every subscriber for the event's kind in registration order, in the
// caller's goroutine. There is no queue and no async handoff.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for one event kind. Handlers run in the
// order they were registered.
func (b *Bus) Subscribe(kind string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Publish delivers ev to every subscriber of its kind. A failing or
// panicking subscriber is logged and must not prevent the remaining
// subscribers from running, nor surface to the publisher.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := b.handlers[ev.Kind]
	b.mu.RUnlock()

	for i, h := range handlers {
		b.run(ctx, ev, i, h)
	}
}

func (b *Bus) run(ctx context.Context, ev Event, idx int, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event subscriber panicked",
				zap.String("kind", ev.Kind),
				zap.String("subject_id", ev.SubjectID),
				zap.Int("subscriber", idx),
				zap.Any("panic", r),
			)
		}
	}()

	if err := h(ctx, ev); err != nil {
		b.log.Error("event subscriber failed",
			zap.String("kind", ev.Kind),
			zap.String("subject_id", ev.SubjectID),
			zap.Int("subscriber", idx),
			zap.Error(err),
		)
	}
}
