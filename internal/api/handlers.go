package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/booking-availability/internal/auth"
	"github.com/hackgods/booking-availability/internal/booking"
	redisclient "github.com/hackgods/booking-availability/internal/redis"
)

func getAvailabilityHandler(svc BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		rawProfessional, rawDate := q.Get("professional_id"), q.Get("date")

		if err := booking.RequireFields("professional_id", rawProfessional, "date", rawDate); err != nil {
			handleBookingError(w, logger, err)
			return
		}

		professionalID, err := booking.ParseProfessionalID(rawProfessional)
		if err != nil {
			handleBookingError(w, logger, err)
			return
		}

		date, err := booking.ParseDate(rawDate)
		if err != nil {
			handleBookingError(w, logger, err)
			return
		}

		var serviceID *string
		if s := q.Get("service_id"); s != "" {
			serviceID = &s
		}

		slots, err := svc.GetAvailability(r.Context(), professionalID, date)
		if err != nil {
			handleBookingError(w, logger, err)
			return
		}

		available := 0
		for _, s := range slots {
			if s.IsAvailable {
				available++
			}
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			AvailabilitySlots: slots,
			ProfessionalID:    professionalID.String(),
			Date:              booking.FormatDate(date),
			ServiceID:         serviceID,
			TotalSlots:        len(slots),
			AvailableSlots:    available,
		})
	}
}

func checkAvailabilityHandler(svc BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CheckAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		err := booking.RequireFields(
			"professional_id", req.ProfessionalID,
			"date", req.Date,
			"start_time", req.StartTime,
			"end_time", req.EndTime,
		)
		if err != nil {
			handleBookingError(w, logger, err)
			return
		}

		professionalID, err := booking.ParseProfessionalID(req.ProfessionalID)
		if err != nil {
			handleBookingError(w, logger, err)
			return
		}
		date, err := booking.ParseDate(req.Date)
		if err != nil {
			handleBookingError(w, logger, err)
			return
		}
		start, err := booking.ParseClock("start_time", req.StartTime)
		if err != nil {
			handleBookingError(w, logger, err)
			return
		}
		end, err := booking.ParseClock("end_time", req.EndTime)
		if err != nil {
			handleBookingError(w, logger, err)
			return
		}

		available, conflicts, err := svc.CheckAvailability(r.Context(), professionalID, date, start, end)
		if err != nil {
			handleBookingError(w, logger, err)
			return
		}

		resp := CheckAvailabilityResponse{
			Available:      available,
			Conflicts:      make([]BookingResponse, 0, len(conflicts)),
			ProfessionalID: professionalID.String(),
			Date:           booking.FormatDate(date),
			StartTime:      start.String(),
			EndTime:        end.String(),
		}
		for _, c := range conflicts {
			resp.Conflicts = append(resp.Conflicts, toBookingResponse(c))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func createBookingHandler(svc BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, ok := auth.FromContext(r.Context())
		if !ok {
			handleBookingError(w, logger, booking.ErrUnauthenticated)
			return
		}

		var draft booking.Draft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := svc.CreateBooking(r.Context(), rc, draft)
		if err != nil {
			handleBookingError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(*b))
	}
}

type bookingAction func(ctx context.Context, rc auth.RequestContext, id uuid.UUID) (*booking.Booking, error)

// bookingByIDHandler serves the GET, confirm and cancel routes, which differ
// only in the service call.
func bookingByIDHandler(action bookingAction, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, ok := auth.FromContext(r.Context())
		if !ok {
			handleBookingError(w, logger, booking.ErrUnauthenticated)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		b, err := action(r.Context(), rc, id)
		if err != nil {
			handleBookingError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(*b))
	}
}

func handleBookingError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verr *booking.ValidationError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: verr.Message,
			Code:  "validation_error",
			Field: verr.Field,
			Step:  int(verr.Step),
		})
	case errors.Is(err, booking.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}
