package appointment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// fakeRepo is a mutex-guarded in-memory Repository. Create and Update
// enforce the same one-active-appointment-per-slot constraint the Postgres
// partial unique index does, so concurrency tests exercise the real
// check-then-act gap.
type fakeRepo struct {
	mu   sync.Mutex
	byID map[string]*Appointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[string]*Appointment)}
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) CountBlockingForSlot(_ context.Context, doctorID uuid.UUID, date, timeOfDay, excludeID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, a := range r.byID {
		if a.DoctorID == doctorID && a.Date == date && a.TimeOfDay == timeOfDay &&
			(a.Status == StatusScheduled || a.Status == StatusConfirmed) &&
			a.AppointmentID != excludeID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) slotOccupied(candidate *Appointment) bool {
	isActive := false
	for _, s := range ActiveStatuses {
		if candidate.Status == s {
			isActive = true
		}
	}
	if !isActive {
		return false
	}

	for _, a := range r.byID {
		if a.AppointmentID == candidate.AppointmentID {
			continue
		}
		if a.DoctorID != candidate.DoctorID || a.Date != candidate.Date || a.TimeOfDay != candidate.TimeOfDay {
			continue
		}
		for _, s := range ActiveStatuses {
			if a.Status == s {
				return true
			}
		}
	}
	return false
}

func (r *fakeRepo) Create(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slotOccupied(a) {
		return &ConflictError{Reason: MsgSlotTaken}
	}
	cp := *a
	r.byID[a.AppointmentID] = &cp
	return nil
}

func (r *fakeRepo) Update(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.AppointmentID]; !ok {
		return ErrNotFound
	}
	if r.slotOccupied(a) {
		return &ConflictError{Reason: MsgSlotTaken}
	}
	cp := *a
	r.byID[a.AppointmentID] = &cp
	return nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || a.Status != from {
		return nil, ErrNotFound
	}
	a.Status = to
	cp := *a
	return &cp, nil
}

// noopLocker runs the critical section without any locking, leaving the
// repository constraint as the only double-booking guard.
type noopLocker struct{}

func (noopLocker) WithBookingLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLookup struct {
	patients map[uuid.UUID]string
	doctors  map[uuid.UUID]string
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		patients: make(map[uuid.UUID]string),
		doctors:  make(map[uuid.UUID]string),
	}
}

func (l *fakeLookup) PatientByID(_ context.Context, id uuid.UUID) (*Party, error) {
	name, ok := l.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &Party{ID: id, FullName: name}, nil
}

func (l *fakeLookup) DoctorByID(_ context.Context, id uuid.UUID) (*Party, error) {
	name, ok := l.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &Party{ID: id, FullName: name}, nil
}
