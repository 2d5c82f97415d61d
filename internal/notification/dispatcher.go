package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medicore/hospital-scheduling/internal/event"
	"github.com/medicore/hospital-scheduling/internal/user"
)

// Dispatcher turns domain events into persisted notifications. Recipient
// resolution is deterministic per event kind; recurring condition-based
// events (low stock, expiring medicine) are deduplicated against pending
// unread notifications.
type Dispatcher struct {
	store Store
	prefs PreferenceStore
	users user.Directory
	log   *zap.Logger
}

func NewDispatcher(store Store, prefs PreferenceStore, users user.Directory, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store: store,
		prefs: prefs,
		users: users,
		log:   log,
	}
}

// Register subscribes the dispatcher to every event kind it knows how to
// route.
func (d *Dispatcher) Register(bus *event.Bus) {
	bus.Subscribe(event.KindAppointmentCreated, d.onAppointmentCreated)
	bus.Subscribe(event.KindAppointmentCancelled, d.onAppointmentCancelled)
	bus.Subscribe(event.KindAppointmentCompleted, d.onAppointmentCompleted)
	bus.Subscribe(event.KindPatientRegistered, d.onPatientRegistered)
	bus.Subscribe(event.KindInvoiceCreated, d.onInvoiceCreated)
	bus.Subscribe(event.KindInvoicePaid, d.onInvoicePaid)
	bus.Subscribe(event.KindInvoiceOverdue, d.onInvoiceOverdue)
	bus.Subscribe(event.KindMedicineLowStock, d.onMedicineLowStock)
	bus.Subscribe(event.KindMedicineExpiringSoon, d.onMedicineExpiringSoon)
}

func (d *Dispatcher) onAppointmentCreated(ctx context.Context, ev event.Event) error {
	var errs []error

	if doctorID, ok := parseUUID(ev.Payload["doctor_id"]); ok {
		errs = append(errs, d.deliver(ctx, ev, Notification{
			Title: "New Appointment Scheduled",
			Message: fmt.Sprintf("New appointment with %s on %s at %s",
				ev.Payload["patient_name"], ev.Payload["date"], ev.Payload["time"]),
			Type:        TypeAppointment,
			Priority:    PriorityNormal,
			RecipientID: doctorID,
			ActionURL:   "/appointments/" + ev.SubjectID + "/",
		}))
	}

	errs = append(errs, d.deliverToRoles(ctx, ev, Notification{
		Title: "New Appointment Created",
		Message: fmt.Sprintf("Appointment scheduled for %s with Dr. %s",
			ev.Payload["patient_name"], ev.Payload["doctor_name"]),
		Type:      TypeAppointment,
		Priority:  PriorityLow,
		ActionURL: "/appointments/" + ev.SubjectID + "/",
	}, user.RoleAdmin))

	return errors.Join(errs...)
}

func (d *Dispatcher) onAppointmentCancelled(ctx context.Context, ev event.Event) error {
	doctorID, ok := parseUUID(ev.Payload["doctor_id"])
	if !ok {
		return fmt.Errorf("appointment.cancelled %s: missing doctor_id", ev.SubjectID)
	}

	return d.deliver(ctx, ev, Notification{
		Title: "Appointment Cancelled",
		Message: fmt.Sprintf("Appointment with %s on %s has been cancelled",
			ev.Payload["patient_name"], ev.Payload["date"]),
		Type:        TypeAppointment,
		Priority:    PriorityHigh,
		RecipientID: doctorID,
		ActionURL:   "/appointments/" + ev.SubjectID + "/",
	})
}

func (d *Dispatcher) onAppointmentCompleted(ctx context.Context, ev event.Event) error {
	doctorID, ok := parseUUID(ev.Payload["doctor_id"])
	if !ok {
		return fmt.Errorf("appointment.completed %s: missing doctor_id", ev.SubjectID)
	}

	return d.deliver(ctx, ev, Notification{
		Title:       "Appointment Completed",
		Message:     fmt.Sprintf("Appointment with %s has been completed", ev.Payload["patient_name"]),
		Type:        TypeAppointment,
		Priority:    PriorityNormal,
		RecipientID: doctorID,
		ActionURL:   "/appointments/" + ev.SubjectID + "/",
	})
}

func (d *Dispatcher) onPatientRegistered(ctx context.Context, ev event.Event) error {
	return d.deliverToRoles(ctx, ev, Notification{
		Title:     "New Patient Registered",
		Message:   fmt.Sprintf("New patient %s has been registered", ev.Payload["patient_name"]),
		Type:      TypePatient,
		Priority:  PriorityNormal,
		ActionURL: "/patients/" + ev.SubjectID + "/",
	}, user.RoleDoctor, user.RoleAdmin, user.RoleNurse)
}

func (d *Dispatcher) onInvoiceCreated(ctx context.Context, ev event.Event) error {
	return d.deliverToRoles(ctx, ev, Notification{
		Title: "New Invoice Created",
		Message: fmt.Sprintf("Invoice %s created for %s - %s ETB",
			ev.Payload["invoice_number"], ev.Payload["patient_name"], ev.Payload["amount"]),
		Type:      TypeBilling,
		Priority:  PriorityNormal,
		ActionURL: "/billing/" + ev.SubjectID + "/",
	}, user.RoleAdmin, user.RoleReceptionist)
}

func (d *Dispatcher) onInvoicePaid(ctx context.Context, ev event.Event) error {
	return d.deliverToRoles(ctx, ev, Notification{
		Title: "Invoice Paid",
		Message: fmt.Sprintf("Invoice %s has been fully paid - %s ETB",
			ev.Payload["invoice_number"], ev.Payload["amount"]),
		Type:      TypeBilling,
		Priority:  PriorityNormal,
		ActionURL: "/billing/" + ev.SubjectID + "/",
	}, user.RoleAdmin, user.RoleReceptionist)
}

func (d *Dispatcher) onInvoiceOverdue(ctx context.Context, ev event.Event) error {
	return d.deliverToRoles(ctx, ev, Notification{
		Title: "Invoice Overdue",
		Message: fmt.Sprintf("Invoice %s is overdue - %s ETB remaining",
			ev.Payload["invoice_number"], ev.Payload["balance_due"]),
		Type:      TypeBilling,
		Priority:  PriorityHigh,
		ActionURL: "/billing/" + ev.SubjectID + "/",
	}, user.RoleAdmin, user.RoleReceptionist)
}

func (d *Dispatcher) onMedicineLowStock(ctx context.Context, ev event.Event) error {
	title := "Low Stock: " + ev.Payload["medicine_name"]

	return d.deliverToRolesDeduped(ctx, ev, Notification{
		Title: title,
		Message: fmt.Sprintf("%s is running low. Current stock: %s units (Minimum: %s)",
			ev.Payload["medicine_name"], ev.Payload["stock"], ev.Payload["minimum"]),
		Type:      TypePharmacy,
		Priority:  PriorityHigh,
		ActionURL: "/pharmacy/" + ev.SubjectID + "/",
	}, title, user.RolePharmacist, user.RoleAdmin)
}

func (d *Dispatcher) onMedicineExpiringSoon(ctx context.Context, ev event.Event) error {
	title := "Expiring Soon: " + ev.Payload["medicine_name"]

	priority := PriorityNormal
	if ev.Payload["urgent"] == "true" {
		priority = PriorityHigh
	}

	return d.deliverToRolesDeduped(ctx, ev, Notification{
		Title: title,
		Message: fmt.Sprintf("%s expires in %s days on %s",
			ev.Payload["medicine_name"], ev.Payload["days_to_expiry"], ev.Payload["expiry_date"]),
		Type:      TypePharmacy,
		Priority:  priority,
		ActionURL: "/pharmacy/" + ev.SubjectID + "/",
	}, title, user.RolePharmacist, user.RoleAdmin)
}

// deliver writes one notification for one recipient, honoring the
// recipient's in-app channel preference.
func (d *Dispatcher) deliver(ctx context.Context, ev event.Event, n Notification) error {
	pref, err := d.prefs.Get(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("load preferences for %s: %w", n.RecipientID, err)
	}
	if !pref.AllowsApp(n.Type) {
		d.log.Debug("notification suppressed by preference",
			zap.String("kind", ev.Kind),
			zap.String("recipient_id", n.RecipientID.String()),
		)
		return nil
	}

	if sender, ok := parseUUID(ev.ActorID); ok {
		n.SenderID = &sender
	}

	if err := d.store.Create(ctx, &n); err != nil {
		return fmt.Errorf("create notification for %s: %w", n.RecipientID, err)
	}
	return nil
}

func (d *Dispatcher) deliverToRoles(ctx context.Context, ev event.Event, template Notification, roles ...user.Role) error {
	recipients, err := d.users.ListByRole(ctx, roles...)
	if err != nil {
		return fmt.Errorf("resolve recipients for %s: %w", ev.Kind, err)
	}

	var errs []error
	for _, u := range recipients {
		n := template
		n.RecipientID = u.ID
		errs = append(errs, d.deliver(ctx, ev, n))
	}
	return errors.Join(errs...)
}

// deliverToRolesDeduped suppresses a recipient's copy while an equivalent
// unread notification (same type, same condition-key title prefix) is still
// pending; once that one is read, a fresh occurrence notifies again.
func (d *Dispatcher) deliverToRolesDeduped(ctx context.Context, ev event.Event, template Notification, conditionKey string, roles ...user.Role) error {
	recipients, err := d.users.ListByRole(ctx, roles...)
	if err != nil {
		return fmt.Errorf("resolve recipients for %s: %w", ev.Kind, err)
	}

	var errs []error
	for _, u := range recipients {
		pending, err := d.store.HasUnread(ctx, u.ID, template.Type, conditionKey)
		if err != nil {
			errs = append(errs, fmt.Errorf("dedup probe for %s: %w", u.ID, err))
			continue
		}
		if pending {
			continue
		}

		n := template
		n.RecipientID = u.ID
		errs = append(errs, d.deliver(ctx, ev, n))
	}
	return errors.Join(errs...)
}

func parseUUID(s string) (uuid.UUID, bool) {
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
