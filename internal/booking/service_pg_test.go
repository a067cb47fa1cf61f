package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/booking-availability/internal/availability"
)

func expectEmptyDay(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery("FROM professional_availability").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"day_of_week", "start_time", "end_time", "emergency"}))
	mock.ExpectQuery("FROM professional_blocked_dates").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"is_all_day", "start_time", "end_time"}))
}

func TestCreateBooking_PostgresTransaction(t *testing.T) {
	mock, repo := newMockRepo(t)
	svc := NewService(repo, passLocker{}, testConfig())
	pro := uuid.New()

	created := sampleBooking()
	created.ProfessionalID = pro
	created.BookingTime = "09:00"
	created.DurationHours = 1

	insertArgs := make([]any, 14)
	for i := range insertArgs {
		insertArgs[i] = pgxmock.AnyArg()
	}

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(pro.String() + "|" + testDate).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	expectEmptyDay(mock)
	mock.ExpectQuery("FROM bookings").
		WithArgs(pro, testDate).
		WillReturnRows(pgxmock.NewRows(bookingColumnNames))
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(insertArgs...).
		WillReturnRows(bookingRow(pgxmock.NewRows(bookingColumnNames), created))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO booking_events").
		WithArgs(EventBookingCreated, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	b, err := svc.CreateBooking(context.Background(), customer(), newDraft(pro, "09:00"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, b.ID)
}

func TestCreateBooking_PostgresOverlapRollsBack(t *testing.T) {
	mock, repo := newMockRepo(t)
	svc := NewService(repo, passLocker{}, testConfig())
	pro := uuid.New()

	// two hours from 10:00; the new booking starts earlier on a free slot
	existing := sampleBooking()
	existing.ProfessionalID = pro
	existing.BookingTime = "10:00"
	existing.DurationHours = 2
	existing.Status = availability.StatusConfirmed

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(pro.String() + "|" + testDate).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	expectEmptyDay(mock)
	mock.ExpectQuery("FROM bookings").
		WithArgs(pro, testDate).
		WillReturnRows(bookingRow(pgxmock.NewRows(bookingColumnNames), existing))
	mock.ExpectRollback()

	draft := newDraft(pro, "09:00")
	draft.DurationHours = 1.5
	_, err := svc.CreateBooking(context.Background(), customer(), draft)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}
