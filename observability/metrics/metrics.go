package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentaread_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rentaread_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	rentalTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentaread_rental_transitions_total",
		Help: "Count of rental lifecycle transitions by target status and result",
	}, []string{"to", "result"})

	reminderRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentaread_reminder_runs_total",
		Help: "Count of due date reminder runs by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveTransition records a rental lifecycle transition attempt.
func ObserveTransition(to, result string) {
	rentalTransitions.WithLabelValues(to, result).Inc()
}

// ObserveReminderRun records the outcome of a scheduled reminder run.
func ObserveReminderRun(result string) {
	reminderRuns.WithLabelValues(result).Inc()
}
