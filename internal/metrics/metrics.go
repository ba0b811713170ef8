// Package metrics exposes Prometheus collectors for the pitboard service.
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
	runsTotal                  *prometheus.CounterVec
	runDurationSeconds         *prometheus.HistogramVec
	standingsRows              *prometheus.GaugeVec
	fetchBytesTotal            *prometheus.CounterVec
	discordAPIErrorsTotal      *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitboard_runs_total",
				Help: "Total pipeline runs, labeled by league and outcome (changed/unchanged/failed).",
			},
			[]string{"league", "outcome"},
		)

		runDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pitboard_run_duration_seconds",
				Help:    "Histogram of end-to-end pipeline run latencies, labeled by league.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"league"},
		)

		standingsRows = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pitboard_standings_rows",
				Help: "Row count of the most recently parsed standings table, labeled by league.",
			},
			[]string{"league"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitboard_fetch_bytes_total",
				Help: "Total bytes fetched from league pages, labeled by league.",
			},
			[]string{"league"},
		)

		discordAPIErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitboard_discord_api_errors_total",
				Help: "Total Discord API errors, labeled by operation.",
			},
			[]string{"op"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests to the ops server, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of ops server request latencies, labeled by method and route.",
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

// ObserveRun records one pipeline run.
func ObserveRun(league, outcome string, duration time.Duration) {
	if runsTotal == nil {
		return
	}
	runsTotal.WithLabelValues(league, outcome).Inc()
	runDurationSeconds.WithLabelValues(league).Observe(duration.Seconds())
}

// SetRows records the latest parsed row count.
func SetRows(league string, rows int) {
	if standingsRows == nil {
		return
	}
	standingsRows.WithLabelValues(league).Set(float64(rows))
}

// ObserveFetch records fetched page bytes.
func ObserveFetch(league string, bytesFetched int) {
	if fetchBytesTotal == nil || bytesFetched <= 0 {
		return
	}
	fetchBytesTotal.WithLabelValues(league).Add(float64(bytesFetched))
}

// ObserveDiscordError increments the Discord API error counter.
func ObserveDiscordError(op string) {
	if discordAPIErrorsTotal == nil {
		return
	}
	discordAPIErrorsTotal.WithLabelValues(op).Inc()
}

// ObserveHTTPRequest increments the ops server request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
