package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/booking-availability/internal/availability"
)

// MemoryRepository is an in-process Repository for tests and local runs. It
// enforces the same one-active-booking-per-slot rule as the bookings table.
type MemoryRepository struct {
	txMu     sync.Mutex
	mu       sync.RWMutex
	schema   Schema
	windows  map[uuid.UUID][]availability.Window
	blocks   map[string][]availability.BlockedRange
	bookings map[uuid.UUID]Booking
	events   []EventLog
	now      func() time.Time
}

func NewMemoryRepository(schema Schema) *MemoryRepository {
	return &MemoryRepository{
		schema:   schema,
		windows:  make(map[uuid.UUID][]availability.Window),
		blocks:   make(map[string][]availability.BlockedRange),
		bookings: make(map[uuid.UUID]Booking),
		now:      time.Now,
	}
}

func blockKey(professionalID uuid.UUID, date string) string {
	return professionalID.String() + "|" + date
}

func (r *MemoryRepository) AddWindow(professionalID uuid.UUID, w availability.Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[professionalID] = append(r.windows[professionalID], w)
}

func (r *MemoryRepository) AddBlock(professionalID uuid.UUID, date string, b availability.BlockedRange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := blockKey(professionalID, date)
	r.blocks[key] = append(r.blocks[key], b)
}

// Put stores b as-is, bypassing the slot uniqueness rule. Used for seeding.
func (r *MemoryRepository) Put(b Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r.bookings[b.ID] = b
}

func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

func (r *MemoryRepository) DetectSchema(ctx context.Context) (Schema, error) {
	return r.schema, nil
}

func (r *MemoryRepository) ListAvailabilityWindows(ctx context.Context, professionalID uuid.UUID, dayOfWeek int) ([]availability.Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []availability.Window
	for _, w := range r.windows[professionalID] {
		if w.DayOfWeek == dayOfWeek {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListBlockedRanges(ctx context.Context, professionalID uuid.UUID, date string) ([]availability.BlockedRange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.blocks[blockKey(professionalID, date)]
	out := make([]availability.BlockedRange, len(src))
	copy(out, src)
	return out, nil
}

func (r *MemoryRepository) ListBookingsForDate(ctx context.Context, professionalID uuid.UUID, date string) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Booking
	for _, b := range r.bookings {
		if b.ProfessionalID == professionalID && b.BookingDate == date && b.Status.Occupies() {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingTime < out[j].BookingTime })
	return out, nil
}

func (r *MemoryRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) CreateBooking(ctx context.Context, b Booking) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bookings {
		if existing.ProfessionalID == b.ProfessionalID &&
			existing.BookingDate == b.BookingDate &&
			existing.BookingTime == b.BookingTime &&
			existing.Status.Occupies() {
			return nil, ErrSlotAlreadyBooked
		}
	}

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := r.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	r.bookings[b.ID] = b
	return &b, nil
}

func (r *MemoryRepository) UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to availability.Status) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return nil, ErrBookingNotFound
	}
	b.Status = to
	b.UpdatedAt = r.now()
	r.bookings[id] = b
	return &b, nil
}

func (r *MemoryRepository) FindStalePending(ctx context.Context, createdBefore time.Time) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Booking
	for _, b := range r.bookings {
		if b.Status == availability.StatusPending && b.CreatedAt.Before(createdBefore) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// WithinDayTx serializes fn against other callers. Writes are not rolled back
// when fn fails.
func (r *MemoryRepository) WithinDayTx(ctx context.Context, professionalID uuid.UUID, date string, fn func(tx Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(r)
}
