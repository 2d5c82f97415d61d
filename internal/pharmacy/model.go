package pharmacy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Medicine struct {
	ID                uuid.UUID
	Name              string
	Strength          string
	StockQuantity     int
	MinimumStockLevel int
	ExpiryDate        string // 2006-01-02
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (m Medicine) IsLowStock() bool {
	return m.StockQuantity <= m.MinimumStockLevel
}

func (m Medicine) expiry() (time.Time, error) {
	return time.ParseInLocation("2006-01-02", m.ExpiryDate, time.Local)
}

func (m Medicine) IsExpired(now time.Time) bool {
	exp, err := m.expiry()
	if err != nil {
		return false
	}
	return !exp.After(now)
}

// DaysToExpiry counts whole days from now's date to the expiry date.
// A malformed expiry date reports as far in the future.
func (m Medicine) DaysToExpiry(now time.Time) int {
	exp, err := m.expiry()
	if err != nil {
		return 1 << 30
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(exp.Sub(today).Hours() / 24)
}

func (m Medicine) IsExpiringSoon(now time.Time, withinDays int) bool {
	days := m.DaysToExpiry(now)
	return days >= 0 && days <= withinDays
}

var ErrNotFound = errors.New("medicine not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)
	ListLowStock(ctx context.Context) ([]Medicine, error)

	// ListExpiringBetween returns active medicines whose expiry date falls
	// in [from, to], both formatted 2006-01-02.
	ListExpiringBetween(ctx context.Context, from, to string) ([]Medicine, error)
}
