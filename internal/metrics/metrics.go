// Package metrics exposes Prometheus collectors for the sync service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	syncItemsTotal             *prometheus.CounterVec
	syncRecordsTotal           *prometheus.CounterVec
	syncRetriesTotal           *prometheus.CounterVec
	syncJobsTotal              *prometheus.CounterVec
	syncActiveJobs             prometheus.Gauge
	syncPaceWaitSeconds        *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		syncItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_items_total",
				Help: "Total number of work items processed, labeled by family and result.",
			},
			[]string{"family", "result"},
		)

		syncRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_records_total",
				Help: "Total number of records persisted, labeled by family.",
			},
			[]string{"family"},
		)

		syncRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_retries_total",
				Help: "Total number of work item retry attempts, labeled by family.",
			},
			[]string{"family"},
		)

		syncJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_jobs_total",
				Help: "Total number of finished jobs, labeled by family and status.",
			},
			[]string{"family", "status"},
		)

		syncActiveJobs = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sync_active_jobs",
				Help: "Number of jobs currently running.",
			},
		)

		syncPaceWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sync_pace_wait_seconds",
				Help:    "Histogram of pacing wait durations, labeled by kind.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"kind"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveItem counts one processed work item.
func ObserveItem(family string, result string) {
	syncItemsTotal.WithLabelValues(family, result).Inc()
}

// ObserveRecords counts persisted records.
func ObserveRecords(family string, count int) {
	if count > 0 {
		syncRecordsTotal.WithLabelValues(family).Add(float64(count))
	}
}

// ObserveRetry counts one retry attempt.
func ObserveRetry(family string) {
	syncRetriesTotal.WithLabelValues(family).Inc()
}

// ObserveJob counts one finished job.
func ObserveJob(family string, status string) {
	syncJobsTotal.WithLabelValues(family, status).Inc()
}

// IncActiveJobs increments the running jobs gauge.
func IncActiveJobs() {
	syncActiveJobs.Inc()
}

// DecActiveJobs decrements the running jobs gauge.
func DecActiveJobs() {
	syncActiveJobs.Dec()
}

// ObservePaceWait records the duration of a pacing wait.
func ObservePaceWait(kind string, duration time.Duration) {
	syncPaceWaitSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
