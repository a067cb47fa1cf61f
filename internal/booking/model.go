package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/booking-availability/internal/availability"
)

type Recurrence string

const (
	RecurrenceNone     Recurrence = "none"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceBiweekly Recurrence = "biweekly"
	RecurrenceMonthly  Recurrence = "monthly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCard       PaymentMethod = "card"
	PaymentIDeal      PaymentMethod = "ideal"
	PaymentBancontact PaymentMethod = "bancontact"
	PaymentCash       PaymentMethod = "cash"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCard, PaymentIDeal, PaymentBancontact, PaymentCash:
		return true
	}
	return false
}

// Booking is a row of the bookings table. BookingDate is YYYY-MM-DD and
// BookingTime is HH:MM.
type Booking struct {
	ID                  uuid.UUID
	ProfessionalID      uuid.UUID
	CustomerID          uuid.UUID
	ServiceID           uuid.UUID
	FranchiseID         *uuid.UUID
	BookingDate         string
	BookingTime         string
	DurationHours       float64
	Status              availability.Status
	ServiceAddress      string
	ServiceCity         string
	SpecialRequirements *string
	Recurrence          Recurrence
	PaymentMethod       PaymentMethod
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (b Booking) Existing() availability.ExistingBooking {
	return availability.ExistingBooking{
		ID:            b.ID,
		BookingTime:   b.BookingTime,
		DurationHours: b.DurationHours,
		Status:        b.Status,
	}
}

// Schema records which optional availability tables exist. It is detected
// once at startup.
type Schema struct {
	HasAvailability bool
	HasBlockedDates bool
}

// FullSchema is what the bundled migrations create.
func FullSchema() Schema {
	return Schema{HasAvailability: true, HasBlockedDates: true}
}

type EventLog struct {
	ID        int64
	EventType string
	BookingID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
