package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/booking-availability/internal/availability"
	"github.com/hackgods/booking-availability/internal/booking"
	"github.com/hackgods/booking-availability/internal/config"
	"github.com/hackgods/booking-availability/internal/db"
	"github.com/hackgods/booking-availability/internal/logging"
)

const (
	professionals  = 50
	daysAhead      = 14
	bookingsPerDay = 3
)

var (
	cities       = []string{"Amsterdam", "Rotterdam", "Utrecht", "Antwerpen", "Gent", "Brussel"}
	shiftStarts  = []string{"07:00", "08:00", "09:00"}
	shiftEnds    = []string{"16:00", "17:00", "18:00"}
	durations    = []float64{0.5, 1, 1.5, 2}
	recurrences  = []booking.Recurrence{booking.RecurrenceNone, booking.RecurrenceWeekly, booking.RecurrenceBiweekly, booking.RecurrenceMonthly}
	payments     = []booking.PaymentMethod{booking.PaymentCard, booking.PaymentIDeal, booking.PaymentBancontact, booking.PaymentCash}
	blockReasons = []string{"holiday", "training", "sick leave", "vehicle maintenance"}
	seedStatuses = []availability.Status{availability.StatusPending, availability.StatusConfirmed, availability.StatusCompleted, availability.StatusCancelled}
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	for i := 0; i < professionals; i++ {
		professionalID := uuid.New()
		if err := seedProfessional(context.Background(), pool, professionalID); err != nil {
			logger.Fatal("seed professional", zap.String("professional_id", professionalID.String()), zap.Error(err))
		}
		if (i+1)%10 == 0 {
			logger.Info("professionals seeded", zap.Int("done", i+1), zap.Int("total", professionals))
		}
	}

	logger.Info("seed complete")
}

func seedProfessional(ctx context.Context, pool *pgxpool.Pool, professionalID uuid.UUID) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// weekdays only, some professionals also take emergencies
	emergency := gofakeit.Bool()
	start := shiftStarts[gofakeit.Number(0, len(shiftStarts)-1)]
	end := shiftEnds[gofakeit.Number(0, len(shiftEnds)-1)]
	for day := 1; day <= 5; day++ {
		_, err := tx.Exec(ctx, `
			INSERT INTO professional_availability (professional_id, day_of_week, start_time, end_time, is_available, is_emergency_available)
			VALUES ($1, $2, $3::time, $4::time, true, $5)
		`, professionalID, day, start, end, emergency)
		if err != nil {
			return fmt.Errorf("insert availability: %w", err)
		}
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	franchiseID := uuid.New()

	for d := 1; d <= daysAhead; d++ {
		date := today.AddDate(0, 0, d)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}
		dateStr := booking.FormatDate(date)

		if gofakeit.Number(1, 10) == 1 {
			if err := insertBlock(ctx, tx, professionalID, dateStr); err != nil {
				return err
			}
			continue
		}

		used := make(map[string]bool)
		for b := 0; b < bookingsPerDay; b++ {
			at := fmt.Sprintf("%02d:%02d", gofakeit.Number(9, 15), 15*gofakeit.Number(0, 3))
			if used[at] {
				continue
			}
			used[at] = true

			_, err := tx.Exec(ctx, `
				INSERT INTO bookings (
					id, provider_id, customer_id, service_id, franchise_id,
					booking_date, booking_time, duration_hours, status,
					service_address, service_city, recurrence, payment_method
				)
				VALUES ($1, $2, $3, $4, $5, $6::date, $7::time, $8, $9, $10, $11, $12, $13)
			`,
				uuid.New(), professionalID, uuid.New(), uuid.New(), franchiseID,
				dateStr, at, durations[gofakeit.Number(0, len(durations)-1)],
				seedStatuses[gofakeit.Number(0, len(seedStatuses)-1)],
				gofakeit.Street(), cities[gofakeit.Number(0, len(cities)-1)],
				recurrences[gofakeit.Number(0, len(recurrences)-1)],
				payments[gofakeit.Number(0, len(payments)-1)],
			)
			if err != nil {
				return fmt.Errorf("insert booking: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

func insertBlock(ctx context.Context, tx pgx.Tx, professionalID uuid.UUID, date string) error {
	var err error
	if gofakeit.Bool() {
		_, err = tx.Exec(ctx, `
			INSERT INTO professional_blocked_dates (professional_id, blocked_date, is_all_day, reason)
			VALUES ($1, $2::date, true, $3)
		`, professionalID, date, blockReasons[gofakeit.Number(0, len(blockReasons)-1)])
	} else {
		_, err = tx.Exec(ctx, `
			INSERT INTO professional_blocked_dates (professional_id, blocked_date, is_all_day, start_time, end_time, reason)
			VALUES ($1, $2::date, false, '12:00', '14:00', $3)
		`, professionalID, date, blockReasons[gofakeit.Number(0, len(blockReasons)-1)])
	}
	if err != nil {
		return fmt.Errorf("insert blocked date: %w", err)
	}
	return nil
}
