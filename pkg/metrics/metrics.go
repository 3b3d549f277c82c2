package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Custom histogram buckets tuned for API response times ranging from
	// milliseconds to multi-second database operations
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34, 55}

	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Database Metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	DBOperationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_client_operation_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	// Business Metrics
	BookingCreations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capstone_booking_creations_total",
			Help: "Total number of booking requests created",
		},
		[]string{"status"},
	)

	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capstone_booking_status_transitions_total",
			Help: "Total number of booking status transitions",
		},
		[]string{"from_status", "to_status"},
	)

	BookingTransitionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capstone_booking_transition_rejections_total",
			Help: "Total number of rejected booking transitions",
		},
		[]string{"to_status", "reason"},
	)

	// Tracks whether an approval packed the current batch or opened a new one
	BatchAllocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capstone_meeting_batch_allocations_total",
			Help: "Total number of meeting batch allocations",
		},
		[]string{"mode"}, // "packed" or "opened"
	)

	BulkDecisionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capstone_booking_bulk_outcomes_total",
			Help: "Per-item outcomes of bulk booking decisions",
		},
		[]string{"action", "outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capstone_notifications_sent_total",
			Help: "Total number of booking notifications dispatched",
		},
		[]string{"event", "status"},
	)

	UserRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capstone_user_registrations_total",
			Help: "Total user registration attempts",
		},
		[]string{"role", "status"},
	)

	// Infrastructure Metrics
	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

// RecordInfrastructureMetrics collects infrastructure metrics periodically
func RecordInfrastructureMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			GoRoutines.Set(float64(runtime.NumGoroutine()))
			HeapAlloc.Set(float64(m.HeapAlloc))
		}
	}()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}
