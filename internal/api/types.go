package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/booking-availability/internal/availability"
	"github.com/hackgods/booking-availability/internal/booking"
)

type AvailabilityResponse struct {
	AvailabilitySlots []availability.TimeSlot `json:"availability_slots"`
	ProfessionalID    string                  `json:"professional_id"`
	Date              string                  `json:"date"`
	ServiceID         *string                 `json:"service_id"`
	TotalSlots        int                     `json:"total_slots"`
	AvailableSlots    int                     `json:"available_slots"`
}

type CheckAvailabilityRequest struct {
	ProfessionalID string `json:"professional_id"`
	ServiceID      string `json:"service_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

type CheckAvailabilityResponse struct {
	Available      bool              `json:"available"`
	Conflicts      []BookingResponse `json:"conflicts"`
	ProfessionalID string            `json:"professional_id"`
	Date           string            `json:"date"`
	StartTime      string            `json:"start_time"`
	EndTime        string            `json:"end_time"`
}

type BookingResponse struct {
	ID                  uuid.UUID  `json:"id"`
	ProfessionalID      uuid.UUID  `json:"professional_id"`
	CustomerID          uuid.UUID  `json:"customer_id"`
	ServiceID           uuid.UUID  `json:"service_id"`
	FranchiseID         *uuid.UUID `json:"franchise_id,omitempty"`
	BookingDate         string     `json:"booking_date"`
	BookingTime         string     `json:"booking_time"`
	DurationHours       float64    `json:"duration_hours"`
	Status              string     `json:"status"`
	ServiceAddress      string     `json:"service_address"`
	ServiceCity         string     `json:"service_city"`
	SpecialRequirements *string    `json:"special_requirements,omitempty"`
	Recurrence          string     `json:"recurrence"`
	PaymentMethod       string     `json:"payment_method"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toBookingResponse(b booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                  b.ID,
		ProfessionalID:      b.ProfessionalID,
		CustomerID:          b.CustomerID,
		ServiceID:           b.ServiceID,
		FranchiseID:         b.FranchiseID,
		BookingDate:         b.BookingDate,
		BookingTime:         b.BookingTime,
		DurationHours:       b.DurationHours,
		Status:              string(b.Status),
		ServiceAddress:      b.ServiceAddress,
		ServiceCity:         b.ServiceCity,
		SpecialRequirements: b.SpecialRequirements,
		Recurrence:          string(b.Recurrence),
		PaymentMethod:       string(b.PaymentMethod),
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
	Step  int    `json:"step,omitempty"`
}
