package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-01-05 is a Monday.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }

func window(day int, start, end string) Window {
	return Window{DayOfWeek: day, StartTime: strp(start), EndTime: strp(end)}
}

func slotTimes(slots []TimeSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Time)
	}
	return out
}

func TestGenerateSlots_DefaultWindowWhenNoneConfigured(t *testing.T) {
	slots := GenerateSlots(monday, nil, nil, nil, DefaultOptions())

	require.Len(t, slots, 40)
	assert.Equal(t, "08:00", slots[0].Time)
	assert.Equal(t, "17:45", slots[len(slots)-1].Time)
	for _, s := range slots {
		assert.True(t, s.IsAvailable)
		assert.False(t, s.IsEmergency)
	}
}

func TestGenerateSlots_OtherWeekdayWindowsFallBackToDefault(t *testing.T) {
	tuesdayOnly := []Window{window(2, "09:00", "10:00")}

	slots := GenerateSlots(monday, tuesdayOnly, nil, nil, DefaultOptions())

	require.Len(t, slots, 40)
	assert.Equal(t, "08:00", slots[0].Time)
}

func TestGenerateSlots_NoFallbackWhenDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultWindow = nil

	slots := GenerateSlots(monday, nil, nil, nil, opts)

	assert.Empty(t, slots)
	assert.NotNil(t, slots)
}

func TestGenerateSlots_TwoHourWindowYieldsEightSlots(t *testing.T) {
	slots := GenerateSlots(monday, []Window{window(1, "08:00", "10:00")}, nil, nil, DefaultOptions())

	assert.Equal(t, []string{
		"08:00", "08:15", "08:30", "08:45",
		"09:00", "09:15", "09:30", "09:45",
	}, slotTimes(slots))
}

func TestGenerateSlots_NoTrailingPartialSlot(t *testing.T) {
	slots := GenerateSlots(monday, []Window{window(1, "08:00", "08:40")}, nil, nil, DefaultOptions())

	assert.Equal(t, []string{"08:00", "08:15"}, slotTimes(slots))
}

func TestGenerateSlots_SlotsNeverEndAfterWindow(t *testing.T) {
	windows := []Window{
		window(1, "07:10", "09:05"),
		window(1, "13:00", "13:50"),
	}
	opts := DefaultOptions()
	opts.SlotDuration = 30 * time.Minute

	slots := GenerateSlots(monday, windows, nil, nil, opts)

	for _, s := range slots {
		start, ok := ParseClock(s.Time)
		require.True(t, ok)
		end := start + 30
		inside := (start >= 7*60+10 && end <= 9*60+5) || (start >= 13*60 && end <= 13*60+50)
		assert.True(t, inside, "slot %s spills outside its window", s.Time)
	}
	assert.Equal(t, []string{"07:10", "07:40", "08:10", "13:00"}, slotTimes(slots))
}

func TestGenerateSlots_AllDayBlockEmptiesTheDay(t *testing.T) {
	windows := []Window{window(1, "09:00", "17:00")}
	blocks := []BlockedRange{{IsAllDay: true, StartTime: strp("10:00"), EndTime: strp("11:00")}}
	bookings := []ExistingBooking{{BookingTime: "09:00", Status: StatusConfirmed}}

	assert.Empty(t, GenerateSlots(monday, windows, blocks, bookings, DefaultOptions()))
	assert.Empty(t, GenerateSlots(monday, nil, blocks, nil, DefaultOptions()))
}

func TestGenerateSlots_PartialBlock(t *testing.T) {
	windows := []Window{window(1, "09:00", "12:00")}
	blocks := []BlockedRange{{StartTime: strp("10:00"), EndTime: strp("11:00")}}

	slots := GenerateSlots(monday, windows, blocks, nil, DefaultOptions())

	assert.Equal(t, []string{
		"09:00", "09:15", "09:30", "09:45",
		"11:00", "11:15", "11:30", "11:45",
	}, slotTimes(slots))
}

func TestGenerateSlots_PartialBlockWithoutBoundsCoversTheDay(t *testing.T) {
	windows := []Window{window(1, "09:00", "12:00")}
	blocks := []BlockedRange{{IsAllDay: false}}

	assert.Empty(t, GenerateSlots(monday, windows, blocks, nil, DefaultOptions()))
}

func TestGenerateSlots_CancelledBookingsNeverReduceSlots(t *testing.T) {
	windows := []Window{window(1, "09:00", "12:00")}
	base := GenerateSlots(monday, windows, nil, nil, DefaultOptions())

	cancelled := []ExistingBooking{
		{ID: uuid.New(), BookingTime: "09:00", DurationHours: 2, Status: StatusCancelled},
		{ID: uuid.New(), BookingTime: "10:30", Status: StatusCancelled},
	}

	for _, mode := range []ConflictMode{ConflictDuration, ConflictLegacy} {
		opts := DefaultOptions()
		opts.ConflictMode = mode
		assert.Equal(t, base, GenerateSlots(monday, windows, nil, cancelled, opts), "mode %s", mode)
	}
}

func TestGenerateSlots_ConfirmedBookingAtTen(t *testing.T) {
	windows := []Window{window(1, "09:00", "12:00")}
	bookings := []ExistingBooking{{ID: uuid.New(), BookingTime: "10:00", Status: StatusConfirmed}}

	for _, mode := range []ConflictMode{ConflictLegacy, ConflictDuration} {
		opts := DefaultOptions()
		opts.ConflictMode = mode

		slots := GenerateSlots(monday, windows, nil, bookings, opts)

		require.Len(t, slots, 11, "mode %s", mode)
		times := slotTimes(slots)
		assert.NotContains(t, times, "10:00")
		for _, want := range []string{"09:00", "09:15", "09:30", "09:45", "10:15", "11:45"} {
			assert.Contains(t, times, want)
		}
	}
}

func TestGenerateSlots_DurationAwareConflicts(t *testing.T) {
	windows := []Window{window(1, "09:00", "12:00")}
	bookings := []ExistingBooking{{ID: uuid.New(), BookingTime: "10:00", DurationHours: 1, Status: StatusPending}}

	durationOpts := DefaultOptions()
	slots := GenerateSlots(monday, windows, nil, bookings, durationOpts)
	assert.Equal(t, []string{
		"09:00", "09:15", "09:30", "09:45",
		"11:00", "11:15", "11:30", "11:45",
	}, slotTimes(slots))

	legacyOpts := DefaultOptions()
	legacyOpts.ConflictMode = ConflictLegacy
	assert.Len(t, GenerateSlots(monday, windows, nil, bookings, legacyOpts), 11)
}

func TestGenerateSlots_CompletedBookingsStillOccupy(t *testing.T) {
	windows := []Window{window(1, "09:00", "10:00")}
	bookings := []ExistingBooking{{BookingTime: "09:30", Status: StatusCompleted}}

	slots := GenerateSlots(monday, windows, nil, bookings, DefaultOptions())

	assert.Equal(t, []string{"09:00", "09:15", "09:45"}, slotTimes(slots))
}

func TestGenerateSlots_SkipsMalformedRows(t *testing.T) {
	windows := []Window{
		{DayOfWeek: 1, StartTime: nil, EndTime: strp("12:00")},
		{DayOfWeek: 1, StartTime: strp("bogus"), EndTime: strp("12:00")},
		{DayOfWeek: 1, StartTime: strp("12:00"), EndTime: strp("12:00")},
		{DayOfWeek: 1, StartTime: strp("14:00"), EndTime: strp("13:00")},
		window(1, "15:00", "15:30"),
	}
	bookings := []ExistingBooking{{BookingTime: "not-a-time", Status: StatusConfirmed}}

	slots := GenerateSlots(monday, windows, nil, bookings, DefaultOptions())

	assert.Equal(t, []string{"15:00", "15:15"}, slotTimes(slots))
}

func TestGenerateSlots_OnlyMalformedWindowsYieldNothing(t *testing.T) {
	windows := []Window{{DayOfWeek: 1, StartTime: strp("18:00"), EndTime: strp("08:00")}}

	assert.Empty(t, GenerateSlots(monday, windows, nil, nil, DefaultOptions()))
}

func TestGenerateSlots_OverlappingWindowsMergeAndKeepEmergency(t *testing.T) {
	emergency := window(1, "09:30", "10:30")
	emergency.IsEmergencyAvailable = true
	windows := []Window{emergency, window(1, "09:00", "10:00")}

	slots := GenerateSlots(monday, windows, nil, nil, DefaultOptions())

	assert.Equal(t, []string{"09:00", "09:15", "09:30", "09:45", "10:00", "10:15"}, slotTimes(slots))
	emergencyByTime := map[string]bool{}
	for _, s := range slots {
		emergencyByTime[s.Time] = s.IsEmergency
	}
	assert.False(t, emergencyByTime["09:00"])
	assert.True(t, emergencyByTime["09:30"])
	assert.True(t, emergencyByTime["10:15"])
}

func TestGenerateSlots_ZeroSlotDurationUsesFifteenMinutes(t *testing.T) {
	opts := DefaultOptions()
	opts.SlotDuration = 0

	slots := GenerateSlots(monday, []Window{window(1, "08:00", "09:00")}, nil, nil, opts)

	assert.Len(t, slots, 4)
}
