package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medicore/hospital-scheduling/internal/appointment"
	"github.com/medicore/hospital-scheduling/internal/billing"
	"github.com/medicore/hospital-scheduling/internal/notification"
	"github.com/medicore/hospital-scheduling/internal/patient"
)

type RouterConfig struct {
	Engine        *appointment.Engine
	Patients      *patient.Service
	Billing       *billing.Service
	Notifications notification.Store
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Logger        *zap.Logger
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(cfg.Engine))
		r.Get("/availability", checkAvailabilityHandler(cfg.Engine))
		r.Get("/{id}", getAppointmentHandler(cfg.Engine))
		r.Patch("/{id}", updateAppointmentHandler(cfg.Engine))
		r.Post("/{id}/start", transitionAppointmentHandler(func(req *http.Request, id string) (*appointment.Appointment, error) {
			return cfg.Engine.Start(req.Context(), id)
		}))
		r.Post("/{id}/complete", transitionAppointmentHandler(func(req *http.Request, id string) (*appointment.Appointment, error) {
			return cfg.Engine.Complete(req.Context(), id)
		}))
		r.Post("/{id}/cancel", transitionAppointmentHandler(func(req *http.Request, id string) (*appointment.Appointment, error) {
			return cfg.Engine.Cancel(req.Context(), id)
		}))
	})

	r.Route("/patients", func(r chi.Router) {
		r.Post("/", registerPatientHandler(cfg.Patients))
		r.Get("/{id}", getPatientHandler(cfg.Patients))
	})

	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", createInvoiceHandler(cfg.Billing))
		r.Post("/{id}/payments", recordPaymentHandler(cfg.Billing))
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", listNotificationsHandler(cfg.Notifications))
		r.Post("/mark-all-read", markAllNotificationsReadHandler(cfg.Notifications))
		r.Post("/{id}/read", markNotificationReadHandler(cfg.Notifications))
		r.Delete("/{id}", deleteNotificationHandler(cfg.Notifications))
	})

	return r
}
