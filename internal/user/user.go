package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleNurse        Role = "nurse"
	RoleReceptionist Role = "receptionist"
	RolePharmacist   Role = "pharmacist"
	RolePatient      Role = "patient"
)

type User struct {
	ID        uuid.UUID
	Username  string
	FullName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

var ErrNotFound = errors.New("user not found")

// Directory is the read side the notification dispatcher needs to resolve
// recipients by role.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListByRole(ctx context.Context, roles ...Role) ([]User, error)
}
