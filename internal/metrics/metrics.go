// Package metrics exposes Prometheus collectors for the recall service.
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
	ingestRunsTotal            *prometheus.CounterVec
	ingestRecordsTotal         *prometheus.CounterVec
	ingestRunDurationSeconds   prometheus.Histogram
	sourceFetchesTotal         *prometheus.CounterVec
	alertsGeneratedTotal       prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recall_ingest_runs_total",
				Help: "Total number of ingestion runs, labeled by trigger.",
			},
			[]string{"trigger"},
		)

		ingestRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recall_ingest_records_total",
				Help: "Total raw records processed, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		ingestRunDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recall_ingest_run_duration_seconds",
				Help:    "Histogram of full pipeline run durations.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
		)

		sourceFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recall_source_fetches_total",
				Help: "Total upstream fetch attempts, labeled by source and result.",
			},
			[]string{"source", "result"},
		)

		alertsGeneratedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "recall_alerts_generated_total",
				Help: "Total alert rows created by the fan-out engine.",
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

// ObserveRun records one pipeline run and its duration.
func ObserveRun(trigger string, duration time.Duration) {
	ingestRunsTotal.WithLabelValues(trigger).Inc()
	ingestRunDurationSeconds.Observe(duration.Seconds())
}

// ObserveRecord increments the per-source record counter.
func ObserveRecord(source string, outcome string) {
	ingestRecordsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveSourceFetch records the result of one upstream fetch.
func ObserveSourceFetch(source string, result string) {
	sourceFetchesTotal.WithLabelValues(source, result).Inc()
}

// ObserveAlerts adds the number of alerts created by one fan-out pass.
func ObserveAlerts(count int) {
	if count > 0 {
		alertsGeneratedTotal.Add(float64(count))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
