package availability

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a time of day expressed in minutes since midnight.
type Clock int

const (
	startOfDay Clock = 0
	endOfDay   Clock = 23*60 + 59
)

// ParseClock accepts "HH:MM" and "HH:MM:SS" (seconds are dropped).
func ParseClock(raw string) (Clock, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return Clock(t.Hour()*60 + t.Minute()), true
		}
	}
	return 0, false
}

func parseOptional(raw *string) (Clock, bool) {
	if raw == nil {
		return 0, false
	}
	return ParseClock(*raw)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On anchors the clock to the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(c)/60, int(c)%60, 0, 0, date.Location())
}
