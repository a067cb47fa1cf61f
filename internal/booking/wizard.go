package booking

import "strings"

// Step is a page of the booking wizard.
type Step int

const (
	StepService Step = iota + 1
	StepSchedule
	StepAddress
	StepDetails
	StepPayment
)

var steps = []Step{StepService, StepSchedule, StepAddress, StepDetails, StepPayment}

func (s Step) String() string {
	switch s {
	case StepService:
		return "service"
	case StepSchedule:
		return "schedule"
	case StepAddress:
		return "address"
	case StepDetails:
		return "details"
	case StepPayment:
		return "payment"
	}
	return "unknown"
}

// Draft is the wizard's form state, as submitted by the client.
type Draft struct {
	ServiceID           string        `json:"service_id"`
	ProfessionalID      string        `json:"professional_id"`
	BookingDate         string        `json:"booking_date"`
	StartTime           string        `json:"start_time"`
	DurationHours       float64       `json:"duration_hours"`
	ServiceAddress      string        `json:"service_address"`
	ServiceCity         string        `json:"service_city"`
	SpecialRequirements string        `json:"special_requirements"`
	Recurrence          Recurrence    `json:"recurrence"`
	PaymentMethod       PaymentMethod `json:"payment_method"`
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

// CanProceed reports whether the draft satisfies step and the user may move
// forward.
func CanProceed(step Step, d Draft) bool {
	switch step {
	case StepService:
		return present(d.ServiceID) && present(d.ProfessionalID)
	case StepSchedule:
		return present(d.BookingDate) && present(d.StartTime)
	case StepAddress:
		return present(d.ServiceAddress) && present(d.ServiceCity)
	case StepDetails:
		return d.Recurrence == "" || d.Recurrence.Valid()
	case StepPayment:
		return d.PaymentMethod.Valid()
	}
	return false
}

// ValidateDraft returns a ValidationError for the first step the draft fails.
func ValidateDraft(d Draft) error {
	for _, step := range steps {
		if !CanProceed(step, d) {
			return &ValidationError{
				Field:   step.String(),
				Message: "Booking step incomplete: " + step.String(),
				Step:    step,
			}
		}
	}
	return nil
}
