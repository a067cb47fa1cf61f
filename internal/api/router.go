package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/booking-availability/internal/auth"
	"github.com/hackgods/booking-availability/internal/availability"
	"github.com/hackgods/booking-availability/internal/booking"
)

// BookingService is what the HTTP layer needs from booking.Service.
type BookingService interface {
	GetAvailability(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]availability.TimeSlot, error)
	CheckAvailability(ctx context.Context, professionalID uuid.UUID, date time.Time, start, end availability.Clock) (bool, []booking.Booking, error)
	CreateBooking(ctx context.Context, rc auth.RequestContext, draft booking.Draft) (*booking.Booking, error)
	GetBooking(ctx context.Context, rc auth.RequestContext, id uuid.UUID) (*booking.Booking, error)
	ConfirmBooking(ctx context.Context, rc auth.RequestContext, id uuid.UUID) (*booking.Booking, error)
	CancelBooking(ctx context.Context, rc auth.RequestContext, id uuid.UUID) (*booking.Booking, error)
}

type RouterConfig struct {
	Service        BookingService
	Logger         *zap.Logger
	JWTSecret      string
	Checks         []DependencyCheck
	Metrics        http.Handler // served at /metrics when set
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	Env            string
	Version        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	// Health endpoints
	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

		r.Get("/booking/availability", getAvailabilityHandler(cfg.Service, logger))
		r.Post("/booking/availability", checkAvailabilityHandler(cfg.Service, logger))

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.JWTSecret))

			r.Post("/bookings", createBookingHandler(cfg.Service, logger))
			r.Get("/bookings/{id}", bookingByIDHandler(cfg.Service.GetBooking, logger))
			r.Post("/bookings/{id}/confirm", bookingByIDHandler(cfg.Service.ConfirmBooking, logger))
			r.Post("/bookings/{id}/cancel", bookingByIDHandler(cfg.Service.CancelBooking, logger))
		})
	})

	return r
}
