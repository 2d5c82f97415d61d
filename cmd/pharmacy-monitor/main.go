package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medicore/hospital-scheduling/internal/billing"
	"github.com/medicore/hospital-scheduling/internal/clock"
	"github.com/medicore/hospital-scheduling/internal/config"
	"github.com/medicore/hospital-scheduling/internal/db"
	"github.com/medicore/hospital-scheduling/internal/event"
	"github.com/medicore/hospital-scheduling/internal/logger"
	"github.com/medicore/hospital-scheduling/internal/notification"
	"github.com/medicore/hospital-scheduling/internal/patient"
	"github.com/medicore/hospital-scheduling/internal/pharmacy"
	"github.com/medicore/hospital-scheduling/internal/sequence"
	"github.com/medicore/hospital-scheduling/internal/user"
)

// pharmacy-monitor periodically sweeps inventory and unpaid invoices,
// publishing the resulting events so the dispatcher can notify staff.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("pharmacy-monitor starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.MonitorInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zlog.Info("connected to Postgres")

	clk := clock.Real()
	bus := event.NewBus(zlog)

	users := user.NewPgDirectory(pgPool)
	notifications := notification.NewPgStore(pgPool)
	prefs := notification.NewPgPreferenceStore(pgPool)
	notification.NewDispatcher(notifications, prefs, users, zlog).Register(bus)

	monitor := pharmacy.NewMonitor(pharmacy.NewPgRepository(pgPool), bus, clk, cfg.ExpiryWarningDays, zlog)

	patients := patient.NewService(patient.NewPgRepository(pgPool), sequence.NewPgGenerator(pgPool), bus, clk, zlog)
	invoices := billing.NewService(billing.NewPgRepository(pgPool), patients, sequence.NewPgGenerator(pgPool), bus, clk, zlog)

	runOnce(rootCtx, monitor, invoices, zlog)

	ticker := time.NewTicker(cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			zlog.Info("shutdown signal received, stopping pharmacy monitor")
			return
		case <-ticker.C:
			runOnce(rootCtx, monitor, invoices, zlog)
		}
	}
}

func runOnce(ctx context.Context, monitor *pharmacy.Monitor, invoices *billing.Service, zlog *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()

	lowStock, err := monitor.CheckLowStock(runCtx)
	if err != nil {
		zlog.Error("low stock sweep error", zap.Error(err))
	}
	expiring, err := monitor.CheckExpiring(runCtx)
	if err != nil {
		zlog.Error("expiry sweep error", zap.Error(err))
	}
	overdue, err := invoices.MarkOverdue(runCtx)
	if err != nil {
		zlog.Error("overdue sweep error", zap.Error(err))
	}

	zlog.Info("sweep complete",
		zap.Int("low_stock", lowStock),
		zap.Int("expiring", expiring),
		zap.Int("overdue", overdue),
		zap.Duration("took", time.Since(start)),
	)
}
