package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hospital-scheduling/internal/appointment"
	"github.com/medicore/hospital-scheduling/internal/billing"
	"github.com/medicore/hospital-scheduling/internal/notification"
	"github.com/medicore/hospital-scheduling/internal/patient"
)

type CreateAppointmentRequest struct {
	PatientID       string `json:"patient_id"`
	DoctorID        string `json:"doctor_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Type            string `json:"appointment_type,omitempty"`
	Priority        string `json:"priority,omitempty"`
	ChiefComplaint  string `json:"chief_complaint"`
	Symptoms        string `json:"symptoms,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type UpdateAppointmentRequest struct {
	Date             *string `json:"date,omitempty"`
	Time             *string `json:"time,omitempty"`
	DurationMinutes  *int    `json:"duration_minutes,omitempty"`
	Type             *string `json:"appointment_type,omitempty"`
	Priority         *string `json:"priority,omitempty"`
	ChiefComplaint   *string `json:"chief_complaint,omitempty"`
	Symptoms         *string `json:"symptoms,omitempty"`
	Notes            *string `json:"notes,omitempty"`
	Diagnosis        *string `json:"diagnosis,omitempty"`
	TreatmentPlan    *string `json:"treatment_plan,omitempty"`
	FollowUpRequired *bool   `json:"follow_up_required,omitempty"`
	FollowUpDate     *string `json:"follow_up_date,omitempty"`
}

type AppointmentResponse struct {
	AppointmentID    string    `json:"appointment_id"`
	PatientID        uuid.UUID `json:"patient_id"`
	DoctorID         uuid.UUID `json:"doctor_id"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	DurationMinutes  int       `json:"duration_minutes"`
	Type             string    `json:"appointment_type"`
	Priority         string    `json:"priority"`
	Status           string    `json:"status"`
	ChiefComplaint   string    `json:"chief_complaint"`
	Symptoms         string    `json:"symptoms,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	Diagnosis        string    `json:"diagnosis,omitempty"`
	TreatmentPlan    string    `json:"treatment_plan,omitempty"`
	FollowUpRequired bool      `json:"follow_up_required"`
	FollowUpDate     *string   `json:"follow_up_date,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		AppointmentID:    a.AppointmentID,
		PatientID:        a.PatientID,
		DoctorID:         a.DoctorID,
		Date:             a.Date,
		Time:             a.TimeOfDay,
		DurationMinutes:  a.DurationMinutes,
		Type:             string(a.Type),
		Priority:         string(a.Priority),
		Status:           string(a.Status),
		ChiefComplaint:   a.ChiefComplaint,
		Symptoms:         a.Symptoms,
		Notes:            a.Notes,
		Diagnosis:        a.Diagnosis,
		TreatmentPlan:    a.TreatmentPlan,
		FollowUpRequired: a.FollowUpRequired,
		FollowUpDate:     a.FollowUpDate,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

type AvailabilityResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

type RegisterPatientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type PatientResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID string    `json:"patient_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toPatientResponse(p *patient.Patient) PatientResponse {
	return PatientResponse{
		ID:        p.ID,
		PatientID: p.PatientID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
	}
}

type CreateInvoiceRequest struct {
	PatientID   string `json:"patient_id"`
	TotalAmount int64  `json:"total_amount"`
	DueDate     string `json:"due_date"`
}

type RecordPaymentRequest struct {
	Amount int64 `json:"amount"`
}

type InvoiceResponse struct {
	ID            uuid.UUID `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	PatientID     uuid.UUID `json:"patient_id"`
	TotalAmount   int64     `json:"total_amount"`
	PaidAmount    int64     `json:"paid_amount"`
	BalanceDue    int64     `json:"balance_due"`
	Status        string    `json:"status"`
	DueDate       string    `json:"due_date"`
	CreatedAt     time.Time `json:"created_at"`
}

func toInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		PatientID:     inv.PatientID,
		TotalAmount:   inv.TotalAmount,
		PaidAmount:    inv.PaidAmount,
		BalanceDue:    inv.BalanceDue(),
		Status:        string(inv.Status),
		DueDate:       inv.DueDate,
		CreatedAt:     inv.CreatedAt,
	}
}

type NotificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"notification_type"`
	Priority  string     `json:"priority"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	ActionURL string     `json:"action_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
}

func toNotificationResponse(n notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		Priority:  string(n.Priority),
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		ActionURL: n.ActionURL,
		CreatedAt: n.CreatedAt,
	}
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
