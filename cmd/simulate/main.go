package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hackgods/booking-availability/internal/auth"
	"github.com/hackgods/booking-availability/internal/booking"
	"github.com/hackgods/booking-availability/internal/config"
	"github.com/hackgods/booking-availability/internal/db"
	"github.com/hackgods/booking-availability/internal/logging"
)

type SimConfig struct {
	APIBaseURL        string
	Duration          time.Duration
	Workers           int
	BookingRatio      float64
	ConfirmRatio      float64
	ReadRatio         float64
	DaysAhead         int
	ProfessionalLimit int
	JWTSecret         string
}

type DataPool struct {
	Professionals []uuid.UUID
	mu            sync.RWMutex
	bookings      []createdBooking
}

type createdBooking struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
}

func (dp *DataPool) AddBooking(b createdBooking) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, b)
}

func (dp *DataPool) RandomBooking(rng *rand.Rand) (createdBooking, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.bookings) == 0 {
		return createdBooking{}, false
	}
	return dp.bookings[rng.Intn(len(dp.bookings))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	n := len(latencies)
	return sum / time.Duration(n), latencies[n*50/100], latencies[min(n*95/100, n-1)], latencies[n-1]
}

type Metrics struct {
	Availability OperationMetrics
	Check        OperationMetrics
	Booking      OperationMetrics
	Confirm      OperationMetrics
	Cancel       OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	logger  *zap.Logger
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(baseCfg.Env, baseCfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(baseCfg)
	if err := validateConfig(cfg); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	logger.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking", cfg.BookingRatio),
		zap.Float64("confirm", cfg.ConfirmRatio),
		zap.Float64("read", cfg.ReadRatio),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, baseCfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal("load data pool", zap.Error(err))
	}
	logger.Info("data pool loaded", zap.Int("professionals", len(dataPool.Professionals)))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig(base config.Config) SimConfig {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SIM_API_BASE_URL", "http://localhost:8080")
	v.SetDefault("SIM_DURATION", "30s")
	v.SetDefault("SIM_WORKERS", 10)
	v.SetDefault("SIM_BOOKING_RATIO", 0.4)
	v.SetDefault("SIM_CONFIRM_RATIO", 0.2)
	v.SetDefault("SIM_READ_RATIO", 0.4)
	v.SetDefault("SIM_DAYS_AHEAD", 7)
	v.SetDefault("SIM_PROFESSIONAL_LIMIT", 20)

	cfg := SimConfig{
		APIBaseURL:        strings.TrimRight(v.GetString("SIM_API_BASE_URL"), "/"),
		Duration:          v.GetDuration("SIM_DURATION"),
		Workers:           v.GetInt("SIM_WORKERS"),
		BookingRatio:      v.GetFloat64("SIM_BOOKING_RATIO"),
		ConfirmRatio:      v.GetFloat64("SIM_CONFIRM_RATIO"),
		ReadRatio:         v.GetFloat64("SIM_READ_RATIO"),
		DaysAhead:         v.GetInt("SIM_DAYS_AHEAD"),
		ProfessionalLimit: v.GetInt("SIM_PROFESSIONAL_LIMIT"),
		JWTSecret:         base.JWTSecret,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.ConfirmRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ConfirmRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required to sign simulated users' tokens")
	}
	if cfg.Workers <= 0 {
		return errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return errors.New("SIM_DURATION must be > 0")
	}
	if cfg.DaysAhead <= 0 {
		return errors.New("SIM_DAYS_AHEAD must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	rows, err := pool.Query(ctx, `
		SELECT DISTINCT professional_id FROM professional_availability LIMIT $1
	`, cfg.ProfessionalLimit)
	if err != nil {
		return nil, fmt.Errorf("load professionals: %w", err)
	}
	defer rows.Close()

	dataPool := &DataPool{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Professionals = append(dataPool.Professionals, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dataPool.Professionals) == 0 {
		return nil, errors.New("no professionals loaded, run cmd/seed first")
	}
	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.ConfirmRatio:
			s.doTransition(ctx, rng)
		default:
			if rng.Intn(2) == 0 {
				s.doAvailability(ctx, rng)
			} else {
				s.doCheck(ctx, rng)
			}
		}
	}
}

func (s *Simulator) randomProfessional(rng *rand.Rand) uuid.UUID {
	return s.pool.Professionals[rng.Intn(len(s.pool.Professionals))]
}

// randomWeekday picks a weekday within the configured horizon, where seeded
// professionals have windows.
func (s *Simulator) randomWeekday(rng *rand.Rand) string {
	for {
		d := time.Now().UTC().AddDate(0, 0, 1+rng.Intn(s.config.DaysAhead))
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			return booking.FormatDate(d)
		}
	}
}

func randomStart(rng *rand.Rand) string {
	return fmt.Sprintf("%02d:%02d", 8+rng.Intn(9), 15*rng.Intn(4))
}

func (s *Simulator) token(rc auth.RequestContext) string {
	tok, err := auth.IssueToken(s.config.JWTSecret, rc, time.Hour)
	if err != nil {
		s.logger.Fatal("sign token", zap.Error(err))
	}
	return "Bearer " + tok
}

func (s *Simulator) send(ctx context.Context, method, path, bearer string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, err
}

func (s *Simulator) doAvailability(ctx context.Context, rng *rand.Rand) {
	path := fmt.Sprintf("/api/booking/availability?professional_id=%s&date=%s", s.randomProfessional(rng), s.randomWeekday(rng))

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodGet, path, "", nil)
	s.metrics.Availability.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doCheck(ctx context.Context, rng *rand.Rand) {
	from := randomStart(rng)
	body := map[string]string{
		"professional_id": s.randomProfessional(rng).String(),
		"date":            s.randomWeekday(rng),
		"start_time":      from,
		"end_time":        fmt.Sprintf("%02d%s", atoi2(from)+1, from[2:]),
	}

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodPost, "/api/booking/availability", "", body)
	s.metrics.Check.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	professionalID := s.randomProfessional(rng)
	customer := auth.RequestContext{UserID: uuid.New(), Role: auth.RoleCustomer}

	draft := booking.Draft{
		ServiceID:      uuid.NewString(),
		ProfessionalID: professionalID.String(),
		BookingDate:    s.randomWeekday(rng),
		StartTime:      randomStart(rng),
		DurationHours:  float64(1+rng.Intn(4)) / 2,
		ServiceAddress: "Simulated street 1",
		ServiceCity:    "Amsterdam",
		Recurrence:     booking.RecurrenceNone,
		PaymentMethod:  booking.PaymentCard,
	}

	start := time.Now()
	status, data, err := s.send(ctx, http.MethodPost, "/api/bookings", s.token(customer), draft)
	latency := time.Since(start)

	if err != nil {
		s.metrics.Booking.Record(latency, false, false)
		return
	}

	switch status {
	case http.StatusCreated:
		var created struct {
			ID uuid.UUID `json:"id"`
		}
		if json.Unmarshal(data, &created) == nil && created.ID != uuid.Nil {
			s.pool.AddBooking(createdBooking{ID: created.ID, ProfessionalID: professionalID})
		}
		s.metrics.Booking.Record(latency, true, false)
	case http.StatusConflict, http.StatusBadRequest:
		// slot taken or outside the professional's hours
		s.metrics.Booking.Record(latency, false, true)
	default:
		s.metrics.Booking.Record(latency, false, false)
	}
}

func (s *Simulator) doTransition(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}

	professional := s.token(auth.RequestContext{UserID: b.ProfessionalID, Role: auth.RoleProfessional})
	action, metrics := "confirm", &s.metrics.Confirm
	if rng.Intn(4) == 0 {
		action, metrics = "cancel", &s.metrics.Cancel
	}

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodPost, fmt.Sprintf("/api/bookings/%s/%s", b.ID, action), professional, nil)
	metrics.Record(time.Since(start), err == nil && status == http.StatusOK, status == http.StatusConflict)
}

func atoi2(hhmm string) int {
	return int(hhmm[0]-'0')*10 + int(hhmm[1]-'0')
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Availability lookup", &s.metrics.Availability)
	printOperationReport("Availability check", &s.metrics.Check)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Cancel", &s.metrics.Cancel)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}
