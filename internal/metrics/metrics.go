package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "perfprime"

var (
	once sync.Once

	variantDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variant_decisions_total",
			Help:      "Count of rollout decisions by variant and reason.",
		},
		[]string{"variant", "reason"},
	)

	sessionStoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_store_errors_total",
			Help:      "Count of session storage failures that degraded a rollout decision.",
		},
		[]string{"component"},
	)

	displayStatuses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_display_status_total",
			Help:      "Count of bookings served by derived display status.",
		},
		[]string{"status"},
	)

	bookingStoreRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_store_requests_total",
			Help:      "Count of booking store reads by source and result.",
		},
		[]string{"source", "result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(variantDecisions, sessionStoreErrors, displayStatuses, bookingStoreRequests, httpRequests)
	})
}

// IncVariantDecision counts a rollout decision by variant and reason.
func IncVariantDecision(variant, reason string) {
	variantDecisions.WithLabelValues(variant, reason).Inc()
}

// IncSessionStoreError counts a failed session store call.
func IncSessionStoreError(component string) {
	sessionStoreErrors.WithLabelValues(component).Inc()
}

// AddDisplayStatus adds n resolved bookings with the given display status.
func AddDisplayStatus(status string, n int) {
	if n <= 0 {
		return
	}
	displayStatuses.WithLabelValues(status).Add(float64(n))
}

// IncBookingStoreRequest counts a booking store read by source and result.
func IncBookingStoreRequest(source, result string) {
	bookingStoreRequests.WithLabelValues(source, result).Inc()
}

// IncHTTP counts a request to an API endpoint.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
