package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	appointmentsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointments_created_total",
			Help: "Total number of appointments created",
		},
		[]string{"appointment_type", "recurring"},
	)

	conflictRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduling_conflict_rejections_total",
			Help: "Total number of scheduling operations rejected because of overlapping bookings",
		},
		[]string{"operation"},
	)

	statusChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointment_status_changes_total",
			Help: "Total number of appointment status writes",
		},
		[]string{"status"},
	)

	conflictScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduling_conflict_scan_duration_seconds",
			Help:    "Duration of conflict detection scans in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)
)

func init() {
	prometheus.MustRegister(
		appointmentsCreatedTotal,
		conflictRejectionsTotal,
		statusChangesTotal,
		conflictScanDuration,
		httpRequestsTotal,
	)
}

// RecordAppointmentCreated increments the created counter
func RecordAppointmentCreated(appointmentType string, recurring bool) {
	label := "false"
	if recurring {
		label = "true"
	}
	appointmentsCreatedTotal.WithLabelValues(appointmentType, label).Inc()
}

// RecordConflictRejection increments the conflict rejection counter
func RecordConflictRejection(operation string) {
	conflictRejectionsTotal.WithLabelValues(operation).Inc()
}

// RecordStatusChange increments the status change counter
func RecordStatusChange(status string) {
	statusChangesTotal.WithLabelValues(status).Inc()
}

// ObserveConflictScan records the duration of one conflict detection scan
func ObserveConflictScan(d time.Duration) {
	conflictScanDuration.Observe(d.Seconds())
}

// RecordHTTPRequest increments the HTTP request counter
func RecordHTTPRequest(method, endpoint, statusCode string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
}

// Handler returns the prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
