package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/booking-availability/internal/availability"
)

const dateLayout = "2006-01-02"

// ValidationError is a client input problem. Step is set when the error
// comes from a booking wizard step.
type ValidationError struct {
	Field   string
	Message string
	Step    Step
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ParseProfessionalID accepts only the canonical 36-character UUID v4 form.
func ParseProfessionalID(raw string) (uuid.UUID, error) {
	return parseV4("professional_id", "Invalid professional ID format", raw)
}

func ParseServiceID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, &ValidationError{Field: "service_id", Message: "Invalid service ID format"}
	}
	return id, nil
}

func parseV4(field, msg, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	id, err := uuid.Parse(raw)
	if err != nil || len(raw) != 36 || id.Version() != 4 || id.Variant() != uuid.RFC4122 {
		return uuid.Nil, &ValidationError{Field: field, Message: msg}
	}
	return id, nil
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: "Invalid date format. Use YYYY-MM-DD"}
	}
	return d, nil
}

func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}

func ParseClock(field, raw string) (availability.Clock, error) {
	c, ok := availability.ParseClock(raw)
	if !ok {
		return 0, &ValidationError{Field: field, Message: fmt.Sprintf("Invalid %s format. Use HH:MM", field)}
	}
	return c, nil
}

// RequireFields reports every empty value as one ValidationError. Pairs are
// field name followed by value.
func RequireFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{
		Field:   missing[0],
		Message: "Missing required fields: " + strings.Join(missing, ", "),
	}
}
