package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for availability and booking flows.
type BookingMetrics struct {
	availabilityRequests *prometheus.CounterVec
	slotsReturned        prometheus.Histogram
	conflicts            *prometheus.CounterVec
	bookings             *prometheus.CounterVec
	transitions          *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		availabilityRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "availability",
			Name:      "requests_total",
			Help:      "Availability lookups and checks by kind and result",
		}, []string{"kind", "result"}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "availability",
			Name:      "slots_returned",
			Help:      "Number of available slots returned per lookup",
			Buckets:   []float64{0, 1, 5, 10, 20, 40, 60, 96},
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "availability",
			Name:      "conflicts_total",
			Help:      "Detected booking conflicts by source",
		}, []string{"source"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "bookings",
			Name:      "create_total",
			Help:      "Booking creation attempts by result",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "bookings",
			Name:      "status_transitions_total",
			Help:      "Booking status transitions by target status and trigger",
		}, []string{"to", "trigger"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.availabilityRequests, m.slotsReturned, m.conflicts, m.bookings, m.transitions)
	return m
}

func (m *BookingMetrics) ObserveAvailability(kind, result string) {
	if m == nil {
		return
	}
	m.availabilityRequests.WithLabelValues(kind, result).Inc()
}

func (m *BookingMetrics) ObserveSlots(n int) {
	if m == nil {
		return
	}
	m.slotsReturned.Observe(float64(n))
}

func (m *BookingMetrics) ObserveConflict(source string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(source).Inc()
}

func (m *BookingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveTransition(to, trigger string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, trigger).Inc()
}
