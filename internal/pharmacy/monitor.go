package pharmacy

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/medicore/hospital-scheduling/internal/clock"
	"github.com/medicore/hospital-scheduling/internal/event"
)

// UrgentExpiryDays is the cutoff below which an expiring medicine is
// escalated to high priority.
const UrgentExpiryDays = 7

// Monitor periodically turns inventory conditions into domain events. The
// notification dispatcher deduplicates repeated occurrences, so sweeps can
// run on a short interval without flooding anyone.
type Monitor struct {
	repo        Repository
	bus         *event.Bus
	clock       clock.Clock
	warningDays int
	log         *zap.Logger
}

func NewMonitor(repo Repository, bus *event.Bus, clk clock.Clock, warningDays int, log *zap.Logger) *Monitor {
	if warningDays <= 0 {
		warningDays = 30
	}
	return &Monitor{repo: repo, bus: bus, clock: clk, warningDays: warningDays, log: log}
}

// CheckLowStock publishes one low-stock event per medicine at or below its
// minimum level. Returns how many were found.
func (m *Monitor) CheckLowStock(ctx context.Context) (int, error) {
	low, err := m.repo.ListLowStock(ctx)
	if err != nil {
		return 0, err
	}

	for _, med := range low {
		m.bus.Publish(ctx, event.Event{
			Kind:      event.KindMedicineLowStock,
			SubjectID: med.ID.String(),
			Payload: map[string]string{
				"medicine_name": med.Name,
				"stock":         strconv.Itoa(med.StockQuantity),
				"minimum":       strconv.Itoa(med.MinimumStockLevel),
			},
			OccurredAt: m.clock.Now(),
		})
	}
	if len(low) > 0 {
		m.log.Info("low stock sweep", zap.Int("medicines", len(low)))
	}
	return len(low), nil
}

// CheckExpiring publishes one expiring-soon event per active medicine whose
// expiry falls within the warning window. Already expired stock is skipped.
func (m *Monitor) CheckExpiring(ctx context.Context) (int, error) {
	now := m.clock.Now()
	from := clock.Today(m.clock)
	to := now.AddDate(0, 0, m.warningDays).Format("2006-01-02")

	expiring, err := m.repo.ListExpiringBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}

	for _, med := range expiring {
		days := med.DaysToExpiry(now)
		m.bus.Publish(ctx, event.Event{
			Kind:      event.KindMedicineExpiringSoon,
			SubjectID: med.ID.String(),
			Payload: map[string]string{
				"medicine_name":  med.Name,
				"days_to_expiry": strconv.Itoa(days),
				"expiry_date":    med.ExpiryDate,
				"urgent":         strconv.FormatBool(days <= UrgentExpiryDays),
			},
			OccurredAt: now,
		})
	}
	if len(expiring) > 0 {
		m.log.Info("expiry sweep", zap.Int("medicines", len(expiring)))
	}
	return len(expiring), nil
}
