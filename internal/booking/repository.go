package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/booking-availability/internal/availability"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrSlotAlreadyBooked = errors.New("slot already has an active booking")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Capability detection, run once at startup
	DetectSchema(ctx context.Context) (Schema, error)

	// Availability inputs
	ListAvailabilityWindows(ctx context.Context, professionalID uuid.UUID, dayOfWeek int) ([]availability.Window, error)
	ListBlockedRanges(ctx context.Context, professionalID uuid.UUID, date string) ([]availability.BlockedRange, error)
	// ListBookingsForDate returns the non-cancelled bookings of the day.
	ListBookingsForDate(ctx context.Context, professionalID uuid.UUID, date string) ([]Booking, error)

	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// CreateBooking returns ErrSlotAlreadyBooked when another active booking
	// holds the same professional, date and time.
	CreateBooking(ctx context.Context, b Booking) (*Booking, error)
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to availability.Status) (*Booking, error)

	// Expiry worker
	FindStalePending(ctx context.Context, createdBefore time.Time) ([]Booking, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error

	// WithinDayTx runs fn in a transaction that excludes every other
	// WithinDayTx for the same professional and date. fn must only use tx.
	WithinDayTx(ctx context.Context, professionalID uuid.UUID, date string, fn func(tx Repository) error) error
}
