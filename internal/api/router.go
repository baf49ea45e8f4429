package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/trimly/booking-core/internal/booking"
)

type RouterConfig struct {
	Engine  *booking.Engine
	Queue   *booking.ConfirmQueue
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment lifecycle
	r.Post("/appointments", createAppointmentHandler(cfg.Engine))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Engine))
	r.Get("/appointments/status/{status}", listByStatusHandler(cfg.Engine))
	r.Post("/appointments/{id}/confirm", confirmByCodeHandler(cfg.Engine))
	r.Post("/appointments/{id}/confirm-service", confirmWithServiceHandler(cfg.Engine))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Engine))
	r.Put("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Engine))
	r.Post("/appointments/{id}/cancel", cancelWithoutPenaltyHandler(cfg.Engine))
	r.Post("/appointments/{id}/cancel-with-penalty", cancelWithPenaltyHandler(cfg.Engine))
	r.Get("/appointments/count-by-service/{serviceID}", countByServiceHandler(cfg.Engine))

	// Deferred confirmation producer
	r.Post("/appointments/{id}/queue-confirmation", queueConfirmationHandler(cfg.Queue))

	// Service discounts
	r.Post("/services/{serviceID}/discount", applyDiscountHandler(cfg.Engine))

	return r
}
