package appointment

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medicore/hospital-scheduling/internal/clock"
	"github.com/medicore/hospital-scheduling/internal/event"
	"github.com/medicore/hospital-scheduling/internal/sequence"
)

type engineFixture struct {
	engine    *Engine
	repo      *fakeRepo
	lookup    *fakeLookup
	bus       *event.Bus
	patientID uuid.UUID
	doctorID  uuid.UUID

	mu     sync.Mutex
	events []event.Event
}

func newEngineFixture(t *testing.T, c clock.Clock) *engineFixture {
	t.Helper()

	f := &engineFixture{
		repo:      newFakeRepo(),
		lookup:    newFakeLookup(),
		bus:       event.NewBus(zap.NewNop()),
		patientID: uuid.New(),
		doctorID:  uuid.New(),
	}
	f.lookup.patients[f.patientID] = "Abebe Kebede"
	f.lookup.doctors[f.doctorID] = "Dr. Sara Tadesse"

	record := func(ctx context.Context, ev event.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, ev)
		return nil
	}
	for _, kind := range []string{
		event.KindAppointmentCreated,
		event.KindAppointmentRescheduled,
		event.KindAppointmentStarted,
		event.KindAppointmentCompleted,
		event.KindAppointmentCancelled,
	} {
		f.bus.Subscribe(kind, record)
	}

	f.engine = NewEngine(
		f.repo, f.lookup, sequence.NewMemoryGenerator(),
		noopLocker{}, f.bus, c, zap.NewNop(),
	)
	return f
}

func (f *engineFixture) recorded() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event.Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *engineFixture) createInput() CreateInput {
	return CreateInput{
		PatientID:      f.patientID,
		DoctorID:       f.doctorID,
		Date:           "2024-11-20",
		TimeOfDay:      "10:00",
		ChiefComplaint: "persistent headache",
	}
}

func nov15Morning() clock.Clock {
	return clock.Fixed{Instant: time.Date(2024, 11, 15, 9, 0, 0, 0, time.Local)}
}

func TestCreateAssignsIDAndDefaults(t *testing.T) {
	f := newEngineFixture(t, nov15Morning())

	appt, err := f.engine.Create(context.Background(), f.createInput())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^APT202411\d{4}$`), appt.AppointmentID)
	assert.Equal(t, "APT2024110001", appt.AppointmentID)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, TypeConsultation, appt.Type)
	assert.Equal(t, PriorityNormal, appt.Priority)
	assert.Equal(t, 30, appt.DurationMinutes)

	events := f.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, event.KindAppointmentCreated, events[0].Kind)
	assert.Equal(t, appt.AppointmentID, events[0].SubjectID)
	assert.Equal(t, "Abebe Kebede", events[0].Payload["patient_name"])
	assert.Equal(t, "Dr. Sara Tadesse", events[0].Payload["doctor_name"])
}

func TestCreateSequentialIDsWithinMonth(t *testing.T) {
	f := newEngineFixture(t, nov15Morning())

	for i, timeOfDay := range []string{"10:00", "10:30", "11:00"} {
		in := f.createInput()
		in.TimeOfDay = timeOfDay
		appt, err := f.engine.Create(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, []string{"APT2024110001", "APT2024110002", "APT2024110003"}[i], appt.AppointmentID)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newEngineFixture(t, nov15Morning())

	tests := []struct {
		name   string
		mutate func(*CreateInput)
		field  string
	}{
		{"missing patient", func(in *CreateInput) { in.PatientID = uuid.Nil }, "patient_id"},
		{"missing doctor", func(in *CreateInput) { in.DoctorID = uuid.Nil }, "doctor_id"},
		{"missing date", func(in *CreateInput) { in.Date = "" }, "date"},
		{"missing time", func(in *CreateInput) { in.TimeOfDay = "" }, "time"},
		{"missing chief complaint", func(in *CreateInput) { in.ChiefComplaint = "" }, "chief_complaint"},
		{"bad type", func(in *CreateInput) { in.Type = "haircut" }, "type"},
		{"bad priority", func(in *CreateInput) { in.Priority = "whenever" }, "priority"},
		{"negative duration", func(in *CreateInput) { in.DurationMinutes = -5 }, "duration_minutes"},
		{"unknown patient", func(in *CreateInput) { in.PatientID = uuid.New() }, "patient_id"},
		{"unknown doctor", func(in *CreateInput) { in.DoctorID = uuid.New() }, "doctor_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.createInput()
			tt.mutate(&in)

			_, err := f.engine.Create(context.Background(), in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	assert.Empty(t, f.recorded(), "no events for rejected creations")
}

func TestCreatePastSlotConflicts(t *testing.T) {
	f := newEngineFixture(t, nov15Morning())

	in := f.createInput()
	in.Date = "2024-11-14"

	_, err := f.engine.Create(context.Background(), in)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, MsgSlotInPast, conflict.Reason)
}

func TestCreateDoubleBookingConcurrent(t *testing.T) {
	f := newEngineFixture(t, nov15Morning())

	const n = 20
	var (
		wg        sync.WaitGroup
		successes int64
		conflicts int64
		mu        sync.Mutex
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Create(context.Background(), f.createInput())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			default:
				var conflict *ConflictError
				if assert.ErrorAs(t, err, &conflict) {
					conflicts++
				}
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes)
	assert.EqualValues(t, n-1, conflicts)
	assert.Len(t, f.recorded(), 1)
}

func TestBookCancelRebookScenario(t *testing.T) {
	// 2024-11-20 08:30, 90 minutes before the 10:00 slot.
	c := clock.Fixed{Instant: time.Date(2024, 11, 20, 8, 30, 0, 0, time.Local)}
	f := newEngineFixture(t, c)

	first, err := f.engine.Create(context.Background(), f.createInput())
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, first.Status)
	assert.Regexp(t, regexp.MustCompile(`^APT202411\d{4}$`), first.AppointmentID)

	_, err = f.engine.Create(context.Background(), f.createInput())
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	cancelled, err := f.engine.Cancel(context.Background(), first.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// The slot is freed by the cancellation.
	second, err := f.engine.Create(context.Background(), f.createInput())
	require.NoError(t, err)
	assert.NotEqual(t, first.AppointmentID, second.AppointmentID)

	kinds := []string{}
	for _, ev := range f.recorded() {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []string{
		event.KindAppointmentCreated,
		event.KindAppointmentCancelled,
		event.KindAppointmentCreated,
	}, kinds)
}

func TestCancelPastDeadline(t *testing.T) {
	f := newEngineFixture(t, nov15Morning())

	appt, err := f.engine.Create(context.Background(), f.createInput())
	require.NoError(t, err)

	// Move the clock to 59 minutes before the appointment.
	late := clock.Fixed{Instant: time.Date(2024, 11, 20, 9, 1, 0, 0, time.Local)}
	f.engine.machine = NewStateMachine(late)

	_, err = f.engine.Cancel(context.Background(), appt.AppointmentID)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Contains(t, stateErr.Reason, "deadline")

	unchanged, err := f.engine.GetByID(context.Background(), appt.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, unchanged.Status)
}

func TestStartCompleteLifecycle(t *testing.T) {
	// Day of the appointment.
	c := clock.Fixed{Instant: time.Date(2024, 11, 20, 9, 55, 0, 0, time.Local)}
	f := newEngineFixture(t, c)

	appt, err := f.engine.Create(context.Background(), f.createInput())
	require.NoError(t, err)

	started, err := f.engine.Start(context.Background(), appt.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)

	completed, err := f.engine.Complete(context.Background(), appt.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	// A second complete is rejected without mutation.
	_, err = f.engine.Complete(context.Background(), appt.AppointmentID)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, StatusCompleted, stateErr.Current)
}

func TestStartFutureAppointment(t *testing.T) {
	f := newEngineFixture(t, nov15Morning())

	appt, err := f.engine.Create(context.Background(), f.createInput())
	require.NoError(t, err)

	_, err = f.engine.Start(context.Background(), appt.AppointmentID)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Contains(t, stateErr.Reason, "future")
}

func TestUpdateRescheduleConflicts(t *testing.T) {
	f := newEngineFixture(t, nov15Morning())

	first, err := f.engine.Create(context.Background(), f.createInput())
	require.NoError(t, err)

	in := f.createInput()
	in.TimeOfDay = "11:00"
	second, err := f.engine.Create(context.Background(), in)
	require.NoError(t, err)

	// Moving the second onto the first's slot is a conflict.
	taken := "10:00"
	_, err = f.engine.Update(context.Background(), second.AppointmentID, UpdateInput{TimeOfDay: &taken})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	// Moving it to a free slot keeps its status.
	free := "11:30"
	moved, err := f.engine.Update(context.Background(), second.AppointmentID, UpdateInput{TimeOfDay: &free})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, moved.Status)
	assert.Equal(t, "11:30", moved.TimeOfDay)

	// Re-saving its own slot with unchanged date/time is not a conflict.
	notes := "patient called to confirm"
	same, err := f.engine.Update(context.Background(), first.AppointmentID, UpdateInput{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, same.Status)
	assert.Equal(t, notes, same.Notes)
}

func TestMovedAppointmentOwnsNewSlot(t *testing.T) {
	f := newEngineFixture(t, nov15Morning())

	in := f.createInput()
	in.Date = "2024-11-15"
	appt, err := f.engine.Create(context.Background(), in)
	require.NoError(t, err)

	newTime := "11:30"
	moved, err := f.engine.Update(context.Background(), appt.AppointmentID, UpdateInput{TimeOfDay: &newTime})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, moved.Status)

	// The new slot belongs to the moved appointment.
	taken := f.createInput()
	taken.Date = "2024-11-15"
	taken.TimeOfDay = newTime
	_, err = f.engine.Create(context.Background(), taken)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	// The old slot is released.
	freed := f.createInput()
	freed.Date = "2024-11-15"
	_, err = f.engine.Create(context.Background(), freed)
	require.NoError(t, err)

	// The move does not strand the appointment outside its lifecycle.
	started, err := f.engine.Start(context.Background(), moved.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)
}

func TestUpdateUnknownAppointment(t *testing.T) {
	f := newEngineFixture(t, nov15Morning())

	notes := "x"
	_, err := f.engine.Update(context.Background(), "APT2024119999", UpdateInput{Notes: &notes})
	assert.ErrorIs(t, err, ErrNotFound)
}
