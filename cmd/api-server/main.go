package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medicore/hospital-scheduling/internal/api"
	"github.com/medicore/hospital-scheduling/internal/appointment"
	"github.com/medicore/hospital-scheduling/internal/billing"
	"github.com/medicore/hospital-scheduling/internal/clock"
	"github.com/medicore/hospital-scheduling/internal/config"
	"github.com/medicore/hospital-scheduling/internal/db"
	"github.com/medicore/hospital-scheduling/internal/event"
	"github.com/medicore/hospital-scheduling/internal/logger"
	"github.com/medicore/hospital-scheduling/internal/notification"
	"github.com/medicore/hospital-scheduling/internal/patient"
	redisclient "github.com/medicore/hospital-scheduling/internal/redis"
	"github.com/medicore/hospital-scheduling/internal/sequence"
	"github.com/medicore/hospital-scheduling/internal/user"
)

const version = "0.3.0"

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

	zlog.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
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

	migCtx, cancelMig := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migCtx, pgPool)
	cancelMig()
	if err != nil {
		zlog.Fatal("migration error", zap.Error(err))
	}
	zlog.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		zlog.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zlog.Warn("error closing redis", zap.Error(err))
		}
	}()
	zlog.Info("connected to Redis")

	clk := clock.Real()
	bus := event.NewBus(zlog)

	users := user.NewPgDirectory(pgPool)
	notifications := notification.NewPgStore(pgPool)
	prefs := notification.NewPgPreferenceStore(pgPool)
	notification.NewDispatcher(notifications, prefs, users, zlog).Register(bus)

	ids := sequence.NewPgGenerator(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)

	engine := appointment.NewEngine(
		appointment.NewPgRepository(pgPool),
		appointment.NewPgPartyLookup(pgPool),
		ids, locker, bus, clk, zlog,
	)

	patients := patient.NewService(patient.NewPgRepository(pgPool), ids, bus, clk, zlog)
	invoices := billing.NewService(billing.NewPgRepository(pgPool), patients, ids, bus, clk, zlog)

	router := api.NewRouter(api.RouterConfig{
		Engine:        engine,
		Patients:      patients,
		Billing:       invoices,
		Notifications: notifications,
		PgPool:        pgPool,
		Redis:         rdb,
		Logger:        zlog,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	zlog.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}
}
