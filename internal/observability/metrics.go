package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	submissionsGradedTotal *prometheus.CounterVec
	submissionPercentage   prometheus.Histogram
	ratingChange           prometheus.Histogram
	ratingConflictsTotal   prometheus.Counter
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsGradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autograde_submissions_graded_total",
			Help: "Total number of submissions graded.",
		}, []string{"first_attempt"})

		submissionPercentage = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autograde_submission_percentage",
			Help:    "Distribution of graded submission percentages.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		})

		ratingChange = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autograde_rating_change",
			Help:    "Reported learner rating change per first attempt.",
			Buckets: []float64{-150, -100, -50, -30, -10, 0, 10, 30, 50, 100, 150},
		})

		ratingConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autograde_rating_conflicts_total",
			Help: "Rating compare-and-set conflicts that forced a retry.",
		})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autograde_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "autograde_http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(
			submissionsGradedTotal, submissionPercentage, ratingChange,
			ratingConflictsTotal, httpRequestsTotal, httpLatencySeconds,
		)
	})
}

// SubmissionsGraded counts graded submissions by first_attempt="true"|"false".
func SubmissionsGraded() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsGradedTotal
}

func SubmissionPercentage() prometheus.Histogram {
	RegisterMetrics()
	return submissionPercentage
}

func RatingChange() prometheus.Histogram {
	RegisterMetrics()
	return ratingChange
}

func RatingConflicts() prometheus.Counter {
	RegisterMetrics()
	return ratingConflictsTotal
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// MetricsHandler exposes the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
