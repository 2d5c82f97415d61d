package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medicore/hospital-scheduling/internal/appointment"
	"github.com/medicore/hospital-scheduling/internal/billing"
	"github.com/medicore/hospital-scheduling/internal/notification"
	"github.com/medicore/hospital-scheduling/internal/patient"
)

func createAppointmentHandler(engine *appointment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		in := appointment.CreateInput{
			PatientID:       patientID,
			DoctorID:        doctorID,
			Date:            req.Date,
			TimeOfDay:       req.Time,
			DurationMinutes: req.DurationMinutes,
			Type:            appointment.Type(req.Type),
			Priority:        appointment.Priority(req.Priority),
			ChiefComplaint:  req.ChiefComplaint,
			Symptoms:        req.Symptoms,
			Notes:           req.Notes,
		}
		if actor, ok := actingUser(r); ok {
			in.CreatedBy = &actor
		}

		appt, err := engine.Create(r.Context(), in)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func updateAppointmentHandler(engine *appointment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in := appointment.UpdateInput{
			Date:             req.Date,
			TimeOfDay:        req.Time,
			DurationMinutes:  req.DurationMinutes,
			ChiefComplaint:   req.ChiefComplaint,
			Symptoms:         req.Symptoms,
			Notes:            req.Notes,
			Diagnosis:        req.Diagnosis,
			TreatmentPlan:    req.TreatmentPlan,
			FollowUpRequired: req.FollowUpRequired,
			FollowUpDate:     req.FollowUpDate,
		}
		if req.Type != nil {
			t := appointment.Type(*req.Type)
			in.Type = &t
		}
		if req.Priority != nil {
			p := appointment.Priority(*req.Priority)
			in.Priority = &p
		}

		appt, err := engine.Update(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func transitionAppointmentHandler(do func(r *http.Request, id string) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := do(r, chi.URLParam(r, "id"))
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(engine *appointment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := engine.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func checkAvailabilityHandler(engine *appointment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		doctorID, err := uuid.Parse(q.Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		available, message, err := engine.CheckAvailability(
			r.Context(), doctorID, q.Get("date"), q.Get("time"), q.Get("exclude_id"))
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AvailabilityResponse{Available: available, Message: message})
	}
}

func registerPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterPatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in := patient.RegisterInput{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
		}
		if actor, ok := actingUser(r); ok {
			in.ActorID = &actor
		}

		p, err := svc.Register(r.Context(), in)
		if err != nil {
			handlePatientError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPatientResponse(p))
	}
}

func getPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := chi.URLParam(r, "id")

		var (
			p   *patient.Patient
			err error
		)
		if id, parseErr := uuid.Parse(idStr); parseErr == nil {
			p, err = svc.GetByID(r.Context(), id)
		} else {
			p, err = svc.GetByPatientID(r.Context(), idStr)
		}
		if err != nil {
			handlePatientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

func createInvoiceHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateInvoiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		in := billing.CreateInput{
			PatientID:   patientID,
			TotalAmount: req.TotalAmount,
			DueDate:     req.DueDate,
		}
		if actor, ok := actingUser(r); ok {
			in.ActorID = &actor
		}

		inv, err := svc.Create(r.Context(), in)
		if err != nil {
			handleBillingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
	}
}

func recordPaymentHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_invoice_id", "id must be a valid UUID")
			return
		}

		var req RecordPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var actorID *uuid.UUID
		if actor, ok := actingUser(r); ok {
			actorID = &actor
		}

		inv, err := svc.RecordPayment(r.Context(), id, req.Amount, actorID)
		if err != nil {
			handleBillingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
	}
}

func listNotificationsHandler(store notification.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipient, ok := actingUser(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_user", "X-User-ID header is required")
			return
		}

		q := r.URL.Query()
		filter := notification.ListFilter{
			Status:   q.Get("status"),
			Type:     notification.Type(q.Get("type")),
			Priority: notification.Priority(q.Get("priority")),
			Search:   q.Get("search"),
			Sort:     q.Get("sort"),
		}
		if v := q.Get("limit"); v != "" {
			filter.Limit, _ = strconv.Atoi(v)
		}
		if v := q.Get("offset"); v != "" {
			filter.Offset, _ = strconv.Atoi(v)
		}

		items, err := store.List(r.Context(), recipient, filter)
		if err != nil {
			handleNotificationError(w, err)
			return
		}
		unread, err := store.UnreadCount(r.Context(), recipient)
		if err != nil {
			handleNotificationError(w, err)
			return
		}

		resp := NotificationListResponse{
			Notifications: make([]NotificationResponse, 0, len(items)),
			UnreadCount:   unread,
		}
		for _, n := range items {
			resp.Notifications = append(resp.Notifications, toNotificationResponse(n))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func markNotificationReadHandler(store notification.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipient, ok := actingUser(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_user", "X-User-ID header is required")
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "id must be a valid UUID")
			return
		}

		if err := store.MarkRead(r.Context(), id, recipient); err != nil {
			handleNotificationError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func markAllNotificationsReadHandler(store notification.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipient, ok := actingUser(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_user", "X-User-ID header is required")
			return
		}

		updated, err := store.MarkAllRead(r.Context(), recipient)
		if err != nil {
			handleNotificationError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MarkAllReadResponse{Updated: updated})
	}
}

func deleteNotificationHandler(store notification.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipient, ok := actingUser(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_user", "X-User-ID header is required")
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "id must be a valid UUID")
			return
		}

		if err := store.Delete(r.Context(), id, recipient); err != nil {
			handleNotificationError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// actingUser extracts the caller's user id from the X-User-ID header.
// Authentication is handled upstream; the handlers only need an identity
// to scope notifications and attribute mutations.
func actingUser(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
