package availability

import (
	"sort"
	"time"
)

// GenerateSlots returns the bookable slots for date. windows should be the
// rows for date's weekday; rows for other weekdays are ignored, and when none
// remain opts.DefaultWindow is used. Malformed windows and bookings are
// skipped. Only available slots are returned, in chronological order.
func GenerateSlots(date time.Time, windows []Window, blocks []BlockedRange, bookings []ExistingBooking, opts Options) []TimeSlot {
	for _, b := range blocks {
		if b.IsAllDay {
			return []TimeSlot{}
		}
	}

	step := Clock(opts.SlotDuration / time.Minute)
	if step <= 0 {
		step = 15
	}

	weekday := int(date.Weekday())
	var todays []Window
	for _, w := range windows {
		if w.DayOfWeek == weekday {
			todays = append(todays, w)
		}
	}
	if len(todays) == 0 && opts.DefaultWindow != nil {
		todays = []Window{*opts.DefaultWindow}
	}

	byStart := make(map[Clock]int)
	slots := []TimeSlot{}
	for _, w := range todays {
		start, ok := parseOptional(w.StartTime)
		if !ok {
			continue
		}
		end, ok := parseOptional(w.EndTime)
		if !ok || start >= end {
			continue
		}

		for slotStart := start; slotStart+step <= end; slotStart += step {
			slotEnd := slotStart + step
			if blocked(slotStart, slotEnd, blocks) {
				continue
			}
			if Conflicts(slotStart, slotEnd, bookings, opts.ConflictMode) {
				continue
			}

			// overlapping windows: keep one slot, emergency wins
			if idx, dup := byStart[slotStart]; dup {
				slots[idx].IsEmergency = slots[idx].IsEmergency || w.IsEmergencyAvailable
				continue
			}
			byStart[slotStart] = len(slots)
			slots = append(slots, TimeSlot{
				Time:        slotStart.String(),
				IsAvailable: true,
				IsEmergency: w.IsEmergencyAvailable,
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Time < slots[j].Time
	})
	return slots
}

// blocked treats missing or unparseable bounds on a partial block as
// 00:00 and 23:59.
func blocked(slotStart, slotEnd Clock, blocks []BlockedRange) bool {
	for _, b := range blocks {
		if b.IsAllDay {
			return true
		}
		from, ok := parseOptional(b.StartTime)
		if !ok {
			from = startOfDay
		}
		to, ok := parseOptional(b.EndTime)
		if !ok {
			to = endOfDay
		}
		if slotStart >= from && slotEnd <= to {
			return true
		}
	}
	return false
}
