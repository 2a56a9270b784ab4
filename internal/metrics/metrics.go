// Package metrics exposes Prometheus collectors for the scraper.
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
	lookupsTotal               *prometheus.CounterVec
	lookupDurationSeconds      prometheus.Histogram
	recordsTotal               *prometheus.CounterVec
	fieldSourcesTotal          *prometheus.CounterVec
	batchesTotal               *prometheus.CounterVec
	sessionRestartsTotal       prometheus.Counter
	activeWorkers              prometheus.Gauge
	pendingItems               prometheus.Gauge
	rateLimitDelaySeconds      prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		lookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "places_lookups_total",
				Help: "Total number of work items looked up, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		lookupDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "places_lookup_duration_seconds",
				Help:    "Histogram of per-item lookup durations.",
				Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
			},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "places_records_total",
				Help: "Total number of records emitted, labeled by status.",
			},
			[]string{"status"},
		)

		fieldSourcesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "places_field_sources_total",
				Help: "Extracted fields by field and winning strategy; misses use the source \"none\".",
			},
			[]string{"field", "source"},
		)

		batchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "places_batches_total",
				Help: "Total number of batch flushes, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		sessionRestartsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "places_session_restarts_total",
				Help: "Total number of lookup sessions reopened after a failure.",
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "places_active_workers",
				Help: "Number of workers currently processing an item.",
			},
		)

		pendingItems = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "places_pending_items",
				Help: "Number of work items not yet processed in the current run.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "places_rate_limit_delay_seconds",
				Help:    "Histogram of pacing waits before opening a query.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
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

// ObserveLookup records one finished work item.
func ObserveLookup(outcome string, duration time.Duration) {
	Init()
	lookupsTotal.WithLabelValues(outcome).Inc()
	lookupDurationSeconds.Observe(duration.Seconds())
}

// ObserveRecord counts one emitted record by status.
func ObserveRecord(status string) {
	Init()
	recordsTotal.WithLabelValues(status).Inc()
}

// ObserveField counts which strategy produced a field. An empty source counts
// as a miss.
func ObserveField(field, source string) {
	Init()
	if source == "" {
		source = "none"
	}
	fieldSourcesTotal.WithLabelValues(field, source).Inc()
}

// ObserveBatch counts one flush attempt.
func ObserveBatch(outcome string) {
	Init()
	batchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveSessionRestart counts a session reopened after a failure.
func ObserveSessionRestart() {
	Init()
	sessionRestartsTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// SetPending sets the number of items left in the current run.
func SetPending(n int) {
	Init()
	pendingItems.Set(float64(n))
}

// ObserveRateLimitDelay records the duration of a pacing wait.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	rateLimitDelaySeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
