package availability

import "math"

// Interval returns the minutes a booking occupies. end == start means the
// booking is a single instant.
func (b ExistingBooking) Interval(mode ConflictMode) (start, end Clock, ok bool) {
	start, ok = ParseClock(b.BookingTime)
	if !ok {
		return 0, 0, false
	}
	end = start
	if mode == ConflictDuration && b.DurationHours > 0 {
		end = start + Clock(math.Round(b.DurationHours*60))
	}
	return start, end, true
}

// Overlaps checks [start, end) against an occupied interval. An instant
// occupies [bStart, bStart] and hits the range when start <= bStart < end.
func Overlaps(start, end, bStart, bEnd Clock) bool {
	if bEnd <= bStart {
		return start <= bStart && bStart < end
	}
	return start < bEnd && end > bStart
}

// Conflicts reports whether any occupying booking overlaps [start, end).
func Conflicts(start, end Clock, bookings []ExistingBooking, mode ConflictMode) bool {
	for _, b := range bookings {
		if !b.Status.Occupies() {
			continue
		}
		bStart, bEnd, ok := b.Interval(mode)
		if !ok {
			continue
		}
		if Overlaps(start, end, bStart, bEnd) {
			return true
		}
	}
	return false
}

// FindConflicts is the booking-creation guard: it returns the pending,
// confirmed or in-progress bookings that collide with [start, end).
// Under ConflictLegacy that is exactly the bookings whose time falls inside
// the range.
func FindConflicts(start, end Clock, bookings []ExistingBooking, mode ConflictMode) []ExistingBooking {
	var out []ExistingBooking
	for _, b := range bookings {
		if !b.Status.Blocks() {
			continue
		}
		bStart, bEnd, ok := b.Interval(mode)
		if !ok {
			continue
		}
		if Overlaps(start, end, bStart, bEnd) {
			out = append(out, b)
		}
	}
	return out
}
