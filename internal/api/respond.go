package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medicore/hospital-scheduling/internal/appointment"
	"github.com/medicore/hospital-scheduling/internal/billing"
	"github.com/medicore/hospital-scheduling/internal/notification"
	"github.com/medicore/hospital-scheduling/internal/patient"
	redisclient "github.com/medicore/hospital-scheduling/internal/redis"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleAppointmentError maps the scheduling error taxonomy onto HTTP
// statuses: validation 422, conflicts 409, bad transitions 400, unknown
// ids 404, everything else 500.
func handleAppointmentError(w http.ResponseWriter, err error) {
	var (
		verr *appointment.ValidationError
		cerr *appointment.ConflictError
		serr *appointment.StateError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Error())
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusConflict, AvailabilityResponse{Available: false, Message: cerr.Reason})
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeJSON(w, http.StatusConflict, AvailabilityResponse{
			Available: false,
			Message:   "slot is currently being booked, please retry shortly",
		})
	case errors.As(err, &serr):
		writeError(w, http.StatusBadRequest, "invalid_status_transition", serr.Error())
	case errors.Is(err, appointment.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handlePatientError(w http.ResponseWriter, err error) {
	var verr *patient.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Error())
	case errors.Is(err, patient.ErrNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleBillingError(w http.ResponseWriter, err error) {
	var verr *billing.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Error())
	case errors.Is(err, billing.ErrNotFound):
		writeError(w, http.StatusNotFound, "invoice_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleNotificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notification.ErrNotFound):
		writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
