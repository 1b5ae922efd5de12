package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	BookingAttempts      *prometheus.CounterVec
	BookingCancellations prometheus.Counter
	VerificationUploads  prometheus.Counter
	RequestDuration      *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BookingAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "housing_booking_attempts_total",
			Help: "Booking attempts by outcome",
		}, []string{"outcome"}),

		BookingCancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "housing_booking_cancellations_total",
			Help: "Total number of cancelled bookings",
		}),

		VerificationUploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "housing_verification_uploads_total",
			Help: "Total number of identity documents uploaded",
		}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "housing_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.BookingAttempts, m.BookingCancellations, m.VerificationUploads, m.RequestDuration)
	}
	return m
}
