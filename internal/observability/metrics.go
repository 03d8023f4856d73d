package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	queueJobsEnqueued      prometheus.Counter
	queueJobsCompleted     prometheus.Counter
	queueJobsFailed        prometheus.Counter
	queueJobsRetried       prometheus.Counter
	queueJobsInFlight      prometheus.Gauge
	gradingDurationSeconds prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grader_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		queueJobsEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grader_queue_jobs_enqueued_total",
			Help: "Total number of grading jobs accepted by the queue.",
		})

		queueJobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grader_queue_jobs_completed_total",
			Help: "Total number of grading jobs that produced persisted feedback.",
		})

		queueJobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grader_queue_jobs_failed_total",
			Help: "Total number of grading jobs that ended in failed status.",
		})

		queueJobsRetried = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grader_queue_jobs_retried_total",
			Help: "Total number of grading attempts rescheduled with backoff.",
		})

		queueJobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grader_queue_jobs_in_flight",
			Help: "Number of grading jobs currently being processed by workers.",
		})

		gradingDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grader_grading_duration_seconds",
			Help:    "Duration of end-to-end grading of one submission.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			queueJobsEnqueued, queueJobsCompleted, queueJobsFailed,
			queueJobsRetried, queueJobsInFlight, gradingDurationSeconds,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// QueueJobsEnqueued exposes the enqueued jobs counter.
func QueueJobsEnqueued() prometheus.Counter {
	RegisterMetrics()
	return queueJobsEnqueued
}

// QueueJobsCompleted exposes the completed jobs counter.
func QueueJobsCompleted() prometheus.Counter {
	RegisterMetrics()
	return queueJobsCompleted
}

// QueueJobsFailed exposes the failed jobs counter.
func QueueJobsFailed() prometheus.Counter {
	RegisterMetrics()
	return queueJobsFailed
}

// QueueJobsRetried exposes the retried jobs counter.
func QueueJobsRetried() prometheus.Counter {
	RegisterMetrics()
	return queueJobsRetried
}

// QueueJobsInFlight exposes the in-flight jobs gauge.
func QueueJobsInFlight() prometheus.Gauge {
	RegisterMetrics()
	return queueJobsInFlight
}

// GradingDuration exposes the grading duration histogram.
func GradingDuration() prometheus.Histogram {
	RegisterMetrics()
	return gradingDurationSeconds
}
