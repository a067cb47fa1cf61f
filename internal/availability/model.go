package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Occupies reports whether a booking in this status takes up its slot when
// generating availability.
func (s Status) Occupies() bool {
	return s != StatusCancelled
}

// Blocks reports whether a booking in this status rejects a new booking at
// creation time. Completed bookings never block.
func (s Status) Blocks() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

// ConflictMode selects how an existing booking's occupied interval is derived.
type ConflictMode string

const (
	// ConflictDuration uses booking_time + duration_hours. Bookings without a
	// positive duration occupy a single instant.
	ConflictDuration ConflictMode = "duration"
	// ConflictLegacy treats every booking as a single instant at booking_time.
	ConflictLegacy ConflictMode = "legacy"
)

func ParseConflictMode(raw string) (ConflictMode, error) {
	switch ConflictMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ConflictDuration:
		return ConflictDuration, nil
	case ConflictLegacy:
		return ConflictLegacy, nil
	}
	return "", fmt.Errorf("unknown conflict mode %q", raw)
}

// Window is a recurring weekly availability range. Start and end are kept as
// raw strings so malformed rows can be skipped during generation.
type Window struct {
	DayOfWeek            int
	StartTime            *string
	EndTime              *string
	IsEmergencyAvailable bool
}

// BlockedRange overrides availability on one date.
type BlockedRange struct {
	IsAllDay  bool
	StartTime *string
	EndTime   *string
}

// ExistingBooking is the part of a booking row the slot math needs.
type ExistingBooking struct {
	ID            uuid.UUID
	BookingTime   string
	DurationHours float64
	Status        Status
}

type TimeSlot struct {
	Time        string `json:"time"`
	IsAvailable bool   `json:"is_available"`
	IsEmergency bool   `json:"is_emergency"`
}

type Options struct {
	SlotDuration time.Duration
	ConflictMode ConflictMode
	// DefaultWindow is used when no window matches the weekday. Nil disables
	// the fallback.
	DefaultWindow *Window
}

func DefaultOptions() Options {
	start, end := "08:00", "18:00"
	return Options{
		SlotDuration:  15 * time.Minute,
		ConflictMode:  ConflictDuration,
		DefaultWindow: &Window{StartTime: &start, EndTime: &end},
	}
}
