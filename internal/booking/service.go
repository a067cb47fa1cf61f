package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/booking-availability/internal/auth"
	"github.com/hackgods/booking-availability/internal/availability"
	"github.com/hackgods/booking-availability/internal/config"
	"github.com/hackgods/booking-availability/internal/metrics"
	redisclient "github.com/hackgods/booking-availability/internal/redis"
)

const (
	EventBookingCreated   = "BOOKING_CREATED"
	EventBookingConfirmed = "BOOKING_CONFIRMED"
	EventBookingCancelled = "BOOKING_CANCELLED"
	EventBookingExpired   = "BOOKING_EXPIRED"

	maxDurationHours = 12
)

var (
	ErrSlotUnavailable         = errors.New("requested time is not available")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrForbidden               = errors.New("not allowed to access this booking")
	ErrUnauthenticated         = errors.New("authentication required")
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	cfg     config.Config
	opts    availability.Options
	schema  Schema
	logger  *zap.Logger
	metrics *metrics.BookingMetrics
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Service)

// WithSchema sets the detected optional-table capabilities.
func WithSchema(schema Schema) Option {
	return func(s *Service) { s.schema = schema }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		opts:   cfg.AvailabilityOptions(),
		schema: FullSchema(),
		logger: zap.NewNop(),
		tracer: otel.Tracer("github.com/hackgods/booking-availability/internal/booking"),
		now:    time.Now,
	}
	if s.opts.ConflictMode == "" {
		s.opts.ConflictMode = availability.ConflictDuration
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type day struct {
	windows  []availability.Window
	blocks   []availability.BlockedRange
	bookings []Booking
}

func (d day) existing() []availability.ExistingBooking {
	out := make([]availability.ExistingBooking, 0, len(d.bookings))
	for _, b := range d.bookings {
		out = append(out, b.Existing())
	}
	return out
}

// loadDay fetches the three availability inputs concurrently. Tables missing
// from the schema are skipped and contribute nothing.
func (s *Service) loadDay(ctx context.Context, professionalID uuid.UUID, date time.Time) (day, error) {
	return s.loadDayFrom(ctx, s.repo, professionalID, date, false)
}

// loadDayFrom reads through repo. A transaction holds a single connection,
// so sequential runs the queries one at a time.
func (s *Service) loadDayFrom(ctx context.Context, repo Repository, professionalID uuid.UUID, date time.Time, sequential bool) (day, error) {
	var d day
	dateStr := FormatDate(date)

	g, gctx := errgroup.WithContext(ctx)
	if sequential {
		g.SetLimit(1)
	}
	if s.schema.HasAvailability {
		g.Go(func() error {
			windows, err := repo.ListAvailabilityWindows(gctx, professionalID, int(date.Weekday()))
			if err != nil {
				return fmt.Errorf("load availability windows: %w", err)
			}
			d.windows = windows
			return nil
		})
	}
	if s.schema.HasBlockedDates {
		g.Go(func() error {
			blocks, err := repo.ListBlockedRanges(gctx, professionalID, dateStr)
			if err != nil {
				return fmt.Errorf("load blocked dates: %w", err)
			}
			d.blocks = blocks
			return nil
		})
	}
	g.Go(func() error {
		bookings, err := repo.ListBookingsForDate(gctx, professionalID, dateStr)
		if err != nil {
			return fmt.Errorf("load bookings: %w", err)
		}
		d.bookings = bookings
		return nil
	})

	if err := g.Wait(); err != nil {
		return day{}, err
	}
	return d, nil
}

// GetAvailability returns the bookable slots of a professional on date.
func (s *Service) GetAvailability(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]availability.TimeSlot, error) {
	ctx, span := s.tracer.Start(ctx, "booking.GetAvailability", trace.WithAttributes(
		attribute.String("professional_id", professionalID.String()),
		attribute.String("date", FormatDate(date)),
	))
	defer span.End()

	d, err := s.loadDay(ctx, professionalID, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load day")
		s.metrics.ObserveAvailability("lookup", "error")
		return nil, err
	}

	slots := availability.GenerateSlots(date, d.windows, d.blocks, d.existing(), s.opts)
	s.metrics.ObserveAvailability("lookup", "ok")
	s.metrics.ObserveSlots(len(slots))
	span.SetAttributes(attribute.Int("slots", len(slots)))
	return slots, nil
}

// CheckAvailability is the advisory pre-check: it reports the active
// bookings that collide with [start, end). Availability windows are not
// consulted.
func (s *Service) CheckAvailability(ctx context.Context, professionalID uuid.UUID, date time.Time, start, end availability.Clock) (bool, []Booking, error) {
	if start >= end {
		return false, nil, &ValidationError{Field: "end_time", Message: "end_time must be after start_time"}
	}

	ctx, span := s.tracer.Start(ctx, "booking.CheckAvailability")
	defer span.End()

	bookings, err := s.repo.ListBookingsForDate(ctx, professionalID, FormatDate(date))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load bookings")
		s.metrics.ObserveAvailability("check", "error")
		return false, nil, fmt.Errorf("load bookings: %w", err)
	}

	conflicts := s.conflicting(start, end, bookings)
	if len(conflicts) > 0 {
		s.metrics.ObserveConflict("check")
		s.metrics.ObserveAvailability("check", "conflict")
		return false, conflicts, nil
	}
	s.metrics.ObserveAvailability("check", "ok")
	return true, []Booking{}, nil
}

func (s *Service) conflicting(start, end availability.Clock, bookings []Booking) []Booking {
	existing := make([]availability.ExistingBooking, 0, len(bookings))
	byID := make(map[uuid.UUID]Booking, len(bookings))
	for _, b := range bookings {
		existing = append(existing, b.Existing())
		byID[b.ID] = b
	}

	var out []Booking
	for _, c := range availability.FindConflicts(start, end, existing, s.opts.ConflictMode) {
		out = append(out, byID[c.ID])
	}
	return out
}

// CreateBooking validates the wizard draft and inserts a pending booking.
// Availability is re-resolved under a per-day slot lock and inside a
// repository transaction that serializes writers of the same day; the
// partial unique index on bookings is the last line of defence.
func (s *Service) CreateBooking(ctx context.Context, rc auth.RequestContext, draft Draft) (*Booking, error) {
	if rc.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	professionalID, err := ParseProfessionalID(draft.ProfessionalID)
	if err != nil {
		return nil, err
	}
	serviceID, err := ParseServiceID(draft.ServiceID)
	if err != nil {
		return nil, err
	}
	date, err := ParseDate(draft.BookingDate)
	if err != nil {
		return nil, err
	}
	start, err := ParseClock("start_time", draft.StartTime)
	if err != nil {
		return nil, err
	}

	duration := draft.DurationHours
	if duration <= 0 {
		duration = s.defaultDurationHours()
	}
	if duration > maxDurationHours {
		return nil, &ValidationError{Field: "duration_hours", Message: fmt.Sprintf("duration_hours must not exceed %d", maxDurationHours)}
	}
	end := start + availability.Clock(math.Round(duration*60))
	if end > 24*60 {
		return nil, &ValidationError{Field: "duration_hours", Message: "Booking must end on the same day"}
	}

	recurrence := draft.Recurrence
	if recurrence == "" {
		recurrence = RecurrenceNone
	}
	var requirements *string
	if r := strings.TrimSpace(draft.SpecialRequirements); r != "" {
		requirements = &r
	}

	ctx, span := s.tracer.Start(ctx, "booking.CreateBooking", trace.WithAttributes(
		attribute.String("professional_id", professionalID.String()),
		attribute.String("date", FormatDate(date)),
		attribute.String("start_time", start.String()),
	))
	defer span.End()

	dateStr := FormatDate(date)
	var created *Booking

	err = s.locker.WithSlotLock(ctx, redisclient.SlotKey(professionalID, dateStr), func(lockCtx context.Context) error {
		err := s.repo.WithinDayTx(lockCtx, professionalID, dateStr, func(tx Repository) error {
			d, err := s.loadDayFrom(lockCtx, tx, professionalID, date, true)
			if err != nil {
				return err
			}

			slots := availability.GenerateSlots(date, d.windows, d.blocks, d.existing(), s.opts)
			if !coversSpan(slots, start, end, s.slotStep()) {
				return ErrSlotUnavailable
			}
			if conflicts := s.conflicting(start, end, d.bookings); len(conflicts) > 0 {
				s.metrics.ObserveConflict("create")
				return ErrSlotUnavailable
			}

			b, err := tx.CreateBooking(lockCtx, Booking{
				ProfessionalID:      professionalID,
				CustomerID:          rc.UserID,
				ServiceID:           serviceID,
				FranchiseID:         rc.FranchiseID,
				BookingDate:         dateStr,
				BookingTime:         start.String(),
				DurationHours:       duration,
				Status:              availability.StatusPending,
				ServiceAddress:      strings.TrimSpace(draft.ServiceAddress),
				ServiceCity:         strings.TrimSpace(draft.ServiceCity),
				SpecialRequirements: requirements,
				Recurrence:          recurrence,
				PaymentMethod:       draft.PaymentMethod,
			})
			if err != nil {
				if errors.Is(err, ErrSlotAlreadyBooked) {
					s.metrics.ObserveConflict("unique_index")
					return err
				}
				return fmt.Errorf("create booking: %w", err)
			}
			created = b
			return nil
		})
		if err != nil {
			return err
		}

		s.logEvent(lockCtx, created.ID, EventBookingCreated, map[string]any{
			"professional_id": professionalID.String(),
			"customer_id":     rc.UserID.String(),
			"booking_date":    dateStr,
			"booking_time":    created.BookingTime,
			"duration_hours":  duration,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = ErrSlotBeingBooked
		}
		s.metrics.ObserveBooking(bookingResult(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create booking")
		return nil, err
	}

	s.metrics.ObserveBooking("created")
	s.logger.Info("booking created",
		zap.String("booking_id", created.ID.String()),
		zap.String("professional_id", professionalID.String()),
		zap.String("date", dateStr),
		zap.String("time", created.BookingTime),
	)
	return created, nil
}

func (s *Service) defaultDurationHours() float64 {
	if s.opts.SlotDuration <= 0 {
		return 0.25
	}
	return s.opts.SlotDuration.Hours()
}

func (s *Service) slotStep() availability.Clock {
	step := availability.Clock(s.opts.SlotDuration / time.Minute)
	if step <= 0 {
		return 15
	}
	return step
}

// coversSpan reports whether every step-sized slot from start up to end is
// free. A booking may not run past the window or into a partial block.
func coversSpan(slots []availability.TimeSlot, start, end, step availability.Clock) bool {
	free := make(map[string]bool, len(slots))
	for _, slot := range slots {
		if slot.IsAvailable {
			free[slot.Time] = true
		}
	}
	for at := start; at < end; at += step {
		if !free[at.String()] {
			return false
		}
	}
	return true
}

func bookingResult(err error) string {
	switch {
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrSlotAlreadyBooked):
		return "conflict"
	case errors.Is(err, ErrSlotBeingBooked):
		return "locked"
	}
	return "error"
}

// GetBooking loads a booking the caller is allowed to see.
func (s *Service) GetBooking(ctx context.Context, rc auth.RequestContext, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if !canView(rc, *b) {
		return nil, ErrForbidden
	}
	return b, nil
}

// ConfirmBooking moves a pending booking to confirmed. Customers cannot
// confirm their own bookings.
func (s *Service) ConfirmBooking(ctx context.Context, rc auth.RequestContext, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if rc.Role == auth.RoleCustomer || !canView(rc, *b) {
		return nil, ErrForbidden
	}
	if b.Status != availability.StatusPending {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.transition(ctx, b, availability.StatusConfirmed, EventBookingConfirmed, "api", nil)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelBooking cancels a pending or confirmed booking.
func (s *Service) CancelBooking(ctx context.Context, rc auth.RequestContext, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if !canView(rc, *b) {
		return nil, ErrForbidden
	}
	if b.Status != availability.StatusPending && b.Status != availability.StatusConfirmed {
		return nil, ErrInvalidStatusTransition
	}

	return s.transition(ctx, b, availability.StatusCancelled, EventBookingCancelled, "api", map[string]any{
		"cancelled_by": rc.UserID.String(),
		"role":         string(rc.Role),
	})
}

func (s *Service) transition(ctx context.Context, b *Booking, to availability.Status, event, trigger string, payload map[string]any) (*Booking, error) {
	updated, err := s.repo.UpdateBookingStatus(ctx, b.ID, b.Status, to)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			// status changed underneath us
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	if payload == nil {
		payload = map[string]any{}
	}
	payload["from"] = string(b.Status)
	s.logEvent(ctx, updated.ID, event, payload)
	s.metrics.ObserveTransition(string(to), trigger)
	return updated, nil
}

// ExpirePendingBookings cancels bookings that stayed pending longer than the
// configured TTL. It is called by the worker periodically and returns the
// number of bookings expired.
func (s *Service) ExpirePendingBookings(ctx context.Context) (int, error) {
	if s.cfg.PendingTTL <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-s.cfg.PendingTTL)
	stale, err := s.repo.FindStalePending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stale pending bookings: %w", err)
	}

	expired := 0
	for _, b := range stale {
		_, err := s.repo.UpdateBookingStatus(ctx, b.ID, availability.StatusPending, availability.StatusCancelled)
		if err != nil {
			if !errors.Is(err, ErrBookingNotFound) {
				s.logger.Error("failed to expire booking", zap.String("booking_id", b.ID.String()), zap.Error(err))
			}
			continue
		}
		expired++
		s.logEvent(ctx, b.ID, EventBookingExpired, map[string]any{
			"reason": "worker",
		})
		s.metrics.ObserveTransition(string(availability.StatusCancelled), "worker")
	}

	return expired, nil
}

func (s *Service) logEvent(ctx context.Context, bookingID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	id := bookingID

	ev := EventLog{
		EventType: eventType,
		BookingID: &id,
		Payload:   data,
		CreatedAt: s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error("failed to insert event log",
			zap.String("event", eventType),
			zap.String("booking_id", bookingID.String()),
			zap.Error(err),
		)
	}
}

func canView(rc auth.RequestContext, b Booking) bool {
	switch rc.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleFranchiseAdmin:
		return rc.SameFranchise(b.FranchiseID)
	case auth.RoleProfessional:
		return b.ProfessionalID == rc.UserID
	case auth.RoleCustomer:
		return b.CustomerID == rc.UserID
	}
	return false
}
