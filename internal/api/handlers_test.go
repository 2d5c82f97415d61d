package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medicore/hospital-scheduling/internal/appointment"
	"github.com/medicore/hospital-scheduling/internal/clock"
	"github.com/medicore/hospital-scheduling/internal/event"
	"github.com/medicore/hospital-scheduling/internal/notification"
	"github.com/medicore/hospital-scheduling/internal/sequence"
)

// memRepo mirrors the Postgres uniqueness rule for active appointments.
type memRepo struct {
	mu   sync.Mutex
	byID map[string]*appointment.Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*appointment.Appointment{}}
}

func (r *memRepo) GetByID(_ context.Context, id string) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, appointment.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) CountBlockingForSlot(_ context.Context, doctorID uuid.UUID, date, timeOfDay, excludeID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.byID {
		if a.DoctorID == doctorID && a.Date == date && a.TimeOfDay == timeOfDay &&
			(a.Status == appointment.StatusScheduled || a.Status == appointment.StatusConfirmed) &&
			a.AppointmentID != excludeID {
			count++
		}
	}
	return count, nil
}

func (r *memRepo) Create(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.byID[a.AppointmentID] = &cp
	return nil
}

func (r *memRepo) Update(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.AppointmentID]; !ok {
		return appointment.ErrNotFound
	}
	cp := *a
	r.byID[a.AppointmentID] = &cp
	return nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, from, to appointment.Status) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.Status != from {
		return nil, appointment.ErrNotFound
	}
	a.Status = to
	cp := *a
	return &cp, nil
}

type memLocker struct{}

func (memLocker) WithBookingLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memLookup struct {
	patients map[uuid.UUID]string
	doctors  map[uuid.UUID]string
}

func (l *memLookup) PatientByID(_ context.Context, id uuid.UUID) (*appointment.Party, error) {
	name, ok := l.patients[id]
	if !ok {
		return nil, appointment.ErrPatientNotFound
	}
	return &appointment.Party{ID: id, FullName: name}, nil
}

func (l *memLookup) DoctorByID(_ context.Context, id uuid.UUID) (*appointment.Party, error) {
	name, ok := l.doctors[id]
	if !ok {
		return nil, appointment.ErrDoctorNotFound
	}
	return &appointment.Party{ID: id, FullName: name}, nil
}

type memNotifications struct {
	mu    sync.Mutex
	items []notification.Notification
}

func (s *memNotifications) Create(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()
	s.items = append(s.items, *n)
	return nil
}

func (s *memNotifications) List(_ context.Context, recipientID uuid.UUID, f notification.ListFilter) ([]notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notification.Notification
	for _, n := range s.items {
		if n.RecipientID != recipientID {
			continue
		}
		if f.Status == "unread" && n.IsRead {
			continue
		}
		if f.Status == "read" && !n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *memNotifications) UnreadCount(_ context.Context, recipientID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *memNotifications) HasUnread(_ context.Context, recipientID uuid.UUID, t notification.Type, titlePrefix string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.RecipientID == recipientID && n.Type == t && !n.IsRead && strings.HasPrefix(n.Title, titlePrefix) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memNotifications) MarkRead(_ context.Context, id, recipientID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].RecipientID == recipientID {
			s.items[i].IsRead = true
			return nil
		}
	}
	return notification.ErrNotFound
}

func (s *memNotifications) MarkAllRead(_ context.Context, recipientID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.items {
		if s.items[i].RecipientID == recipientID && !s.items[i].IsRead {
			s.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *memNotifications) Delete(_ context.Context, id, recipientID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].RecipientID == recipientID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return notification.ErrNotFound
}

type apiFixture struct {
	router        http.Handler
	notifications *memNotifications
	patientID     uuid.UUID
	doctorID      uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	log := zap.NewNop()
	bus := event.NewBus(log)
	clk := clock.Fixed{Instant: time.Date(2024, 11, 15, 9, 0, 0, 0, time.Local)}

	patientID := uuid.New()
	doctorID := uuid.New()
	lookup := &memLookup{
		patients: map[uuid.UUID]string{patientID: "Kebede Alemu"},
		doctors:  map[uuid.UUID]string{doctorID: "Abebe Bekele"},
	}

	engine := appointment.NewEngine(
		newMemRepo(), lookup, sequence.NewMemoryGenerator(), memLocker{}, bus, clk, log)

	notifications := &memNotifications{}

	// only the routes under test get real services; the rest are nil and
	// must not be hit
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(engine))
		r.Get("/availability", checkAvailabilityHandler(engine))
		r.Get("/{id}", getAppointmentHandler(engine))
		r.Patch("/{id}", updateAppointmentHandler(engine))
		r.Post("/{id}/cancel", transitionAppointmentHandler(func(req *http.Request, id string) (*appointment.Appointment, error) {
			return engine.Cancel(req.Context(), id)
		}))
	})
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", listNotificationsHandler(notifications))
		r.Post("/mark-all-read", markAllNotificationsReadHandler(notifications))
		r.Post("/{id}/read", markNotificationReadHandler(notifications))
		r.Delete("/{id}", deleteNotificationHandler(notifications))
	})

	return &apiFixture{
		router:        r,
		notifications: notifications,
		patientID:     patientID,
		doctorID:      doctorID,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) createBody(date, tod string) string {
	return fmt.Sprintf(`{
		"patient_id": %q,
		"doctor_id": %q,
		"date": %q,
		"time": %q,
		"chief_complaint": "headache"
	}`, f.patientID, f.doctorID, date, tod)
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/appointments", f.createBody("2024-11-20", "10:00"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "APT2024110001", resp.AppointmentID)
	assert.Equal(t, "scheduled", resp.Status)
	assert.Equal(t, 30, resp.DurationMinutes)

	got := f.do(t, http.MethodGet, "/appointments/"+resp.AppointmentID, "", nil)
	assert.Equal(t, http.StatusOK, got.Code)
}

func TestCreateAppointmentValidationAndConflict(t *testing.T) {
	f := newAPIFixture(t)

	missing := f.do(t, http.MethodPost, "/appointments", fmt.Sprintf(`{
		"patient_id": %q, "doctor_id": %q, "date": "2024-11-20", "time": "10:00"
	}`, f.patientID, f.doctorID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, missing.Code)

	badUUID := f.do(t, http.MethodPost, "/appointments", `{"patient_id": "nope"}`, nil)
	assert.Equal(t, http.StatusBadRequest, badUUID.Code)

	first := f.do(t, http.MethodPost, "/appointments", f.createBody("2024-11-20", "10:00"), nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := f.do(t, http.MethodPost, "/appointments", f.createBody("2024-11-20", "10:00"), nil)
	assert.Equal(t, http.StatusConflict, second.Code)

	var conflict AvailabilityResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &conflict))
	assert.False(t, conflict.Available)
	assert.NotEmpty(t, conflict.Message)
}

func TestAvailabilityEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/appointments", f.createBody("2024-11-20", "10:00"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	taken := f.do(t, http.MethodGet,
		"/appointments/availability?doctor_id="+f.doctorID.String()+"&date=2024-11-20&time=10:00", "", nil)
	require.Equal(t, http.StatusOK, taken.Code)

	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal(taken.Body.Bytes(), &resp))
	assert.False(t, resp.Available)

	open := f.do(t, http.MethodGet,
		"/appointments/availability?doctor_id="+f.doctorID.String()+"&date=2024-11-20&time=11:00", "", nil)
	require.Equal(t, http.StatusOK, open.Code)
	require.NoError(t, json.Unmarshal(open.Body.Bytes(), &resp))
	assert.True(t, resp.Available)
}

func TestCancelEndpointStateMapping(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/appointments", f.createBody("2024-11-15", "09:30"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// 09:30 is within the one hour notice window at 09:00
	denied := f.do(t, http.MethodPost, "/appointments/"+resp.AppointmentID+"/cancel", "", nil)
	assert.Equal(t, http.StatusBadRequest, denied.Code)

	missing := f.do(t, http.MethodPost, "/appointments/APT2099010001/cancel", "", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestNotificationEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	recipient := uuid.New()
	other := uuid.New()
	n1 := &notification.Notification{
		Title: "Appointment Cancelled", Message: "m", Type: notification.TypeAppointment,
		Priority: notification.PriorityHigh, RecipientID: recipient,
	}
	n2 := &notification.Notification{
		Title: "Invoice Overdue", Message: "m", Type: notification.TypeBilling,
		Priority: notification.PriorityHigh, RecipientID: other,
	}
	require.NoError(t, f.notifications.Create(ctx, n1))
	require.NoError(t, f.notifications.Create(ctx, n2))

	hdr := map[string]string{"X-User-ID": recipient.String()}

	list := f.do(t, http.MethodGet, "/notifications/", "", hdr)
	require.Equal(t, http.StatusOK, list.Code)
	var resp NotificationListResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, 1, resp.UnreadCount)
	assert.Equal(t, "Appointment Cancelled", resp.Notifications[0].Title)

	noHeader := f.do(t, http.MethodGet, "/notifications/", "", nil)
	assert.Equal(t, http.StatusBadRequest, noHeader.Code)

	read := f.do(t, http.MethodPost, "/notifications/"+n1.ID.String()+"/read", "", hdr)
	assert.Equal(t, http.StatusNoContent, read.Code)

	// another recipient's notification is invisible, not forbidden
	foreign := f.do(t, http.MethodPost, "/notifications/"+n2.ID.String()+"/read", "", hdr)
	assert.Equal(t, http.StatusNotFound, foreign.Code)

	del := f.do(t, http.MethodDelete, "/notifications/"+n1.ID.String(), "", hdr)
	assert.Equal(t, http.StatusNoContent, del.Code)

	after := f.do(t, http.MethodGet, "/notifications/", "", hdr)
	require.NoError(t, json.Unmarshal(after.Body.Bytes(), &resp))
	assert.Empty(t, resp.Notifications)
}
