package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/booking-availability/internal/auth"
	"github.com/hackgods/booking-availability/internal/availability"
	"github.com/hackgods/booking-availability/internal/booking"
	"github.com/hackgods/booking-availability/internal/config"
)

const (
	testSecret = "test-secret"
	testDate   = "2026-01-05" // Monday
)

type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type failingRepo struct {
	*booking.MemoryRepository
}

func (failingRepo) ListBookingsForDate(ctx context.Context, professionalID uuid.UUID, date string) ([]booking.Booking, error) {
	return nil, errors.New("relation \"bookings\" is locked")
}

func testConfig() config.Config {
	return config.Config{
		SlotDuration:          15 * time.Minute,
		ConflictMode:          availability.ConflictDuration,
		DefaultWindowStart:    "08:00",
		DefaultWindowEnd:      "18:00",
		DefaultWindowFallback: true,
		PendingTTL:            30 * time.Minute,
	}
}

func newTestRouter(t *testing.T, repo booking.Repository) http.Handler {
	t.Helper()
	svc := booking.NewService(repo, passLocker{}, testConfig())
	return NewRouter(RouterConfig{
		Service:   svc,
		JWTSecret: testSecret,
		Env:       "test",
	})
}

func token(t *testing.T, rc auth.RequestContext) string {
	t.Helper()
	tok, err := auth.IssueToken(testSecret, rc, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestGetAvailability_DefaultWindow(t *testing.T) {
	h := newTestRouter(t, booking.NewMemoryRepository(booking.FullSchema()))
	pro := uuid.New()

	rec := do(t, h, http.MethodGet, "/api/booking/availability?professional_id="+pro.String()+"&date="+testDate+"&service_id=svc-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AvailabilityResponse](t, rec)
	assert.Equal(t, 40, resp.TotalSlots)
	assert.Equal(t, 40, resp.AvailableSlots)
	assert.Equal(t, pro.String(), resp.ProfessionalID)
	assert.Equal(t, testDate, resp.Date)
	require.NotNil(t, resp.ServiceID)
	assert.Equal(t, "svc-1", *resp.ServiceID)
	assert.Equal(t, "08:00", resp.AvailabilitySlots[0].Time)
}

func TestGetAvailability_CountsBookedSlots(t *testing.T) {
	repo := booking.NewMemoryRepository(booking.FullSchema())
	pro := uuid.New()
	start, end := "08:00", "10:00"
	repo.AddWindow(pro, availability.Window{DayOfWeek: 1, StartTime: &start, EndTime: &end})
	repo.Put(booking.Booking{ProfessionalID: pro, BookingDate: testDate, BookingTime: "08:30", DurationHours: 0.5, Status: availability.StatusConfirmed})

	h := newTestRouter(t, repo)
	rec := do(t, h, http.MethodGet, "/api/booking/availability?professional_id="+pro.String()+"&date="+testDate, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[AvailabilityResponse](t, rec)
	assert.Equal(t, 6, resp.TotalSlots)
	assert.Equal(t, 6, resp.AvailableSlots)
	for _, slot := range resp.AvailabilitySlots {
		assert.NotContains(t, []string{"08:30", "08:45"}, slot.Time)
	}
	assert.Nil(t, resp.ServiceID)
}

func TestGetAvailability_Validation(t *testing.T) {
	h := newTestRouter(t, booking.NewMemoryRepository(booking.FullSchema()))

	tests := []struct {
		name    string
		query   string
		message string
	}{
		{"missing both", "", "Missing required fields: professional_id, date"},
		{"not a v4 uuid", "?professional_id=123&date=" + testDate, "Invalid professional ID format"},
		{"v1 uuid", "?professional_id=3f2b8c1e-9a4d-1c6b-8e2f-1a2b3c4d5e6f&date=" + testDate, "Invalid professional ID format"},
		{"bad date", "?professional_id=" + uuid.NewString() + "&date=2026/01/05", "Invalid date format. Use YYYY-MM-DD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/booking/availability"+tt.query, "", nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}

func TestGetAvailability_StoreFailure(t *testing.T) {
	repo := failingRepo{booking.NewMemoryRepository(booking.FullSchema())}
	h := newTestRouter(t, repo)

	rec := do(t, h, http.MethodGet, "/api/booking/availability?professional_id="+uuid.NewString()+"&date="+testDate, "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Internal Server Error", resp.Error)
}

func TestCheckAvailability(t *testing.T) {
	repo := booking.NewMemoryRepository(booking.FullSchema())
	pro := uuid.New()
	repo.Put(booking.Booking{ID: uuid.New(), ProfessionalID: pro, BookingDate: testDate, BookingTime: "10:00", DurationHours: 1, Status: availability.StatusPending})
	h := newTestRouter(t, repo)

	rec := do(t, h, http.MethodPost, "/api/booking/availability", "", CheckAvailabilityRequest{
		ProfessionalID: pro.String(),
		Date:           testDate,
		StartTime:      "10:00",
		EndTime:        "10:30",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CheckAvailabilityResponse](t, rec)
	assert.False(t, resp.Available)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "10:00", resp.Conflicts[0].BookingTime)
	assert.Equal(t, "10:00", resp.StartTime)
	assert.Equal(t, "10:30", resp.EndTime)

	// overlaps the booking's hour without containing its start
	rec = do(t, h, http.MethodPost, "/api/booking/availability", "", CheckAvailabilityRequest{
		ProfessionalID: pro.String(),
		Date:           testDate,
		StartTime:      "10:30",
		EndTime:        "11:30",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[CheckAvailabilityResponse](t, rec).Available)

	rec = do(t, h, http.MethodPost, "/api/booking/availability", "", CheckAvailabilityRequest{
		ProfessionalID: pro.String(),
		Date:           testDate,
		StartTime:      "11:00",
		EndTime:        "12:00",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[CheckAvailabilityResponse](t, rec)
	assert.True(t, resp.Available)
	assert.NotNil(t, resp.Conflicts)
	assert.Empty(t, resp.Conflicts)
}

func TestCheckAvailability_MissingFields(t *testing.T) {
	h := newTestRouter(t, booking.NewMemoryRepository(booking.FullSchema()))

	rec := do(t, h, http.MethodPost, "/api/booking/availability", "", CheckAvailabilityRequest{
		ProfessionalID: uuid.NewString(),
		Date:           testDate,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Missing required fields: start_time, end_time", resp.Error)

	req := httptest.NewRequest(http.MethodPost, "/api/booking/availability", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func validDraft(pro uuid.UUID, start string) booking.Draft {
	return booking.Draft{
		ServiceID:      uuid.NewString(),
		ProfessionalID: pro.String(),
		BookingDate:    testDate,
		StartTime:      start,
		DurationHours:  1,
		ServiceAddress: "Keizersgracht 1",
		ServiceCity:    "Amsterdam",
		Recurrence:     booking.RecurrenceNone,
		PaymentMethod:  booking.PaymentCard,
	}
}

func TestCreateBooking_RequiresAuth(t *testing.T) {
	h := newTestRouter(t, booking.NewMemoryRepository(booking.FullSchema()))

	rec := do(t, h, http.MethodPost, "/api/bookings", "", validDraft(uuid.New(), "09:00"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/bookings", "Bearer not-a-token", validDraft(uuid.New(), "09:00"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingLifecycle(t *testing.T) {
	h := newTestRouter(t, booking.NewMemoryRepository(booking.FullSchema()))
	pro := uuid.New()
	customer := auth.RequestContext{UserID: uuid.New(), Role: auth.RoleCustomer}
	professional := auth.RequestContext{UserID: pro, Role: auth.RoleProfessional}

	rec := do(t, h, http.MethodPost, "/api/bookings", token(t, customer), validDraft(pro, "09:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[BookingResponse](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, customer.UserID, created.CustomerID)

	// same slot again
	rec = do(t, h, http.MethodPost, "/api/bookings", token(t, customer), validDraft(pro, "09:00"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	path := "/api/bookings/" + created.ID.String()

	rec = do(t, h, http.MethodGet, path, token(t, customer), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, path, token(t, auth.RequestContext{UserID: uuid.New(), Role: auth.RoleCustomer}), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, path+"/confirm", token(t, customer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, path+"/confirm", token(t, professional), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", decode[BookingResponse](t, rec).Status)

	rec = do(t, h, http.MethodPost, path+"/confirm", token(t, professional), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, path+"/cancel", token(t, customer), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[BookingResponse](t, rec).Status)
}

func TestCreateBooking_IncompleteStep(t *testing.T) {
	h := newTestRouter(t, booking.NewMemoryRepository(booking.FullSchema()))
	customer := auth.RequestContext{UserID: uuid.New(), Role: auth.RoleCustomer}

	d := validDraft(uuid.New(), "09:00")
	d.PaymentMethod = ""

	rec := do(t, h, http.MethodPost, "/api/bookings", token(t, customer), d)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, int(booking.StepPayment), resp.Step)
}

func TestBookingByID_BadAndUnknownID(t *testing.T) {
	h := newTestRouter(t, booking.NewMemoryRepository(booking.FullSchema()))
	admin := auth.RequestContext{UserID: uuid.New(), Role: auth.RoleAdmin}

	rec := do(t, h, http.MethodGet, "/api/bookings/nope", token(t, admin), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/bookings/"+uuid.NewString(), token(t, admin), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	svc := booking.NewService(booking.NewMemoryRepository(booking.FullSchema()), passLocker{}, testConfig())
	h := NewRouter(RouterConfig{Service: svc, JWTSecret: testSecret, RateLimitRPS: 0.001, RateLimitBurst: 1})

	path := "/api/booking/availability?professional_id=" + uuid.NewString() + "&date=" + testDate
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, path, "", nil).Code)
}

func TestRequestIDPropagated(t *testing.T) {
	h := newTestRouter(t, booking.NewMemoryRepository(booking.FullSchema()))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
