package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/booking-availability/internal/availability"
)

const uniqueViolation = "23505"

// DB is the subset of *pgxpool.Pool the repository uses. pgx.Tx satisfies it
// as well.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const bookingColumns = `
	id, provider_id, customer_id, service_id, franchise_id,
	to_char(booking_date, 'YYYY-MM-DD'), to_char(booking_time, 'HH24:MI'),
	COALESCE(duration_hours, 0)::float8, status,
	COALESCE(service_address, ''), COALESCE(service_city, ''), special_requirements,
	COALESCE(recurrence, 'none'), COALESCE(payment_method, ''),
	created_at, updated_at`

// Helpers

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var franchise pgtype.UUID

	err := row.Scan(
		&b.ID,
		&b.ProfessionalID,
		&b.CustomerID,
		&b.ServiceID,
		&franchise,
		&b.BookingDate,
		&b.BookingTime,
		&b.DurationHours,
		&b.Status,
		&b.ServiceAddress,
		&b.ServiceCity,
		&b.SpecialRequirements,
		&b.Recurrence,
		&b.PaymentMethod,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if franchise.Valid {
		id := uuid.UUID(franchise.Bytes)
		b.FranchiseID = &id
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func toPGUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil || *id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: [16]byte(*id), Valid: true}
}

// Interface methods

func (r *PgRepository) DetectSchema(ctx context.Context) (Schema, error) {
	var s Schema
	err := r.db.QueryRow(ctx, `
		SELECT to_regclass('public.professional_availability') IS NOT NULL,
		       to_regclass('public.professional_blocked_dates') IS NOT NULL
	`).Scan(&s.HasAvailability, &s.HasBlockedDates)
	if err != nil {
		return Schema{}, fmt.Errorf("detect schema: %w", err)
	}
	return s, nil
}

func (r *PgRepository) ListAvailabilityWindows(ctx context.Context, professionalID uuid.UUID, dayOfWeek int) ([]availability.Window, error) {
	rows, err := r.db.Query(ctx, `
		SELECT day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
		       COALESCE(is_emergency_available, false)
		FROM professional_availability
		WHERE professional_id = $1
		  AND day_of_week = $2
		  AND is_available = true
		ORDER BY start_time
	`, professionalID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("query availability windows: %w", err)
	}
	defer rows.Close()

	var windows []availability.Window
	for rows.Next() {
		var w availability.Window
		if err := rows.Scan(&w.DayOfWeek, &w.StartTime, &w.EndTime, &w.IsEmergencyAvailable); err != nil {
			return nil, fmt.Errorf("scan availability window: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *PgRepository) ListBlockedRanges(ctx context.Context, professionalID uuid.UUID, date string) ([]availability.BlockedRange, error) {
	rows, err := r.db.Query(ctx, `
		SELECT COALESCE(is_all_day, false), to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI')
		FROM professional_blocked_dates
		WHERE professional_id = $1
		  AND blocked_date = $2::date
	`, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("query blocked dates: %w", err)
	}
	defer rows.Close()

	var blocks []availability.BlockedRange
	for rows.Next() {
		var b availability.BlockedRange
		if err := rows.Scan(&b.IsAllDay, &b.StartTime, &b.EndTime); err != nil {
			return nil, fmt.Errorf("scan blocked date: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *PgRepository) ListBookingsForDate(ctx context.Context, professionalID uuid.UUID, date string) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1
		  AND booking_date = $2::date
		  AND status <> 'cancelled'
		ORDER BY booking_time
	`, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	return collectBookings(rows)
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) CreateBooking(ctx context.Context, b Booking) (*Booking, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO bookings (
			id, provider_id, customer_id, service_id, franchise_id,
			booking_date, booking_time, duration_hours, status,
			service_address, service_city, special_requirements, recurrence, payment_method,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7::time, $8, $9, $10, $11, $12, $13, $14, now(), now())
		RETURNING `+bookingColumns,
		b.ID, b.ProfessionalID, b.CustomerID, b.ServiceID, toPGUUID(b.FranchiseID),
		b.BookingDate, b.BookingTime, b.DurationHours, b.Status,
		b.ServiceAddress, b.ServiceCity, b.SpecialRequirements, b.Recurrence, b.PaymentMethod,
	)

	created, err := scanBooking(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotAlreadyBooked
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return created, nil
}

func (r *PgRepository) UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to availability.Status) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+bookingColumns,
		id, to, from)

	return scanBooking(row)
}

func (r *PgRepository) FindStalePending(ctx context.Context, createdBefore time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'pending'
		  AND created_at < $1
	`, createdBefore)
	if err != nil {
		return nil, fmt.Errorf("query stale pending bookings: %w", err)
	}
	return collectBookings(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_events (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.BookingID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

// WithinDayTx holds a transaction-scoped advisory lock on the professional's
// day, so check-then-insert stays atomic even if the Redis lock has expired.
func (r *PgRepository) WithinDayTx(ctx context.Context, professionalID uuid.UUID, date string, fn func(tx Repository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, professionalID.String()+"|"+date); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("lock booking day: %w", err)
	}

	if err := fn(&PgRepository{db: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
