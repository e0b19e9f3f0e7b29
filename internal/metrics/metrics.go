// Package metrics exposes Prometheus collectors for the watcher service.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	watcherTargetsTotal        *prometheus.CounterVec
	watcherChangesTotal        *prometheus.CounterVec
	watcherFetchAttemptsTotal  *prometheus.CounterVec
	watcherFetchDurationSecs   *prometheus.HistogramVec
	watcherRenderedFetchTotal  prometheus.Counter
	watcherRunsTotal           *prometheus.CounterVec
	watcherRunDurationSeconds  prometheus.Histogram
	watcherInFlightTargets     prometheus.Gauge
	watcherSnapshotWritesTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		watcherTargetsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_targets_total",
				Help: "Total number of target tasks completed, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		watcherChangesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_changes_total",
				Help: "Total number of detected content changes, labeled by site and content type.",
			},
			[]string{"site", "content_type"},
		)

		watcherFetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_fetch_attempts_total",
				Help: "Total fetch attempts including retries, labeled by site.",
			},
			[]string{"site"},
		)

		watcherFetchDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "watcher_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		watcherRenderedFetchTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "watcher_rendered_fetch_total",
				Help: "Total fetches promoted to headless rendering.",
			},
		)

		watcherRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_runs_total",
				Help: "Total pipeline runs, labeled by status.",
			},
			[]string{"status"},
		)

		watcherRunDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "watcher_run_duration_seconds",
				Help:    "Histogram of full pipeline run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		)

		watcherInFlightTargets = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "watcher_in_flight_targets",
				Help: "Number of target tasks currently being processed.",
			},
		)

		watcherSnapshotWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_snapshot_writes_total",
				Help: "Total snapshot rows appended, labeled by result.",
			},
			[]string{"result"},
		)
	})
}

// SiteLabel reduces a target URL to a lowercase hostname suitable as a
// bounded label value. Unparseable input maps to "unknown".
func SiteLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	if u.Host == "" {
		// Scheme-less input like "example.com:8080" parses without a
		// host; retry with one prepended.
		if u, err = url.Parse("http://" + rawURL); err != nil {
			return "unknown"
		}
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "unknown"
	}
	return host
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTarget records a completed target task.
func ObserveTarget(site, outcome string) {
	watcherTargetsTotal.WithLabelValues(SiteLabel(site), outcome).Inc()
}

// ObserveChange records a detected content change.
func ObserveChange(site, contentType string) {
	watcherChangesTotal.WithLabelValues(SiteLabel(site), contentType).Inc()
}

// ObserveFetch records one fetch with its attempt count and latency.
func ObserveFetch(site string, attempts int, duration time.Duration) {
	label := SiteLabel(site)
	if attempts > 0 {
		watcherFetchAttemptsTotal.WithLabelValues(label).Add(float64(attempts))
	}
	watcherFetchDurationSecs.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveRenderedFetch increments the headless promotion counter.
func ObserveRenderedFetch() {
	watcherRenderedFetchTotal.Inc()
}

// ObserveRun records a finished run with the given status.
func ObserveRun(status string, duration time.Duration) {
	watcherRunsTotal.WithLabelValues(status).Inc()
	watcherRunDurationSeconds.Observe(duration.Seconds())
}

// IncInFlight increments the in-flight targets gauge.
func IncInFlight() {
	watcherInFlightTargets.Inc()
}

// DecInFlight decrements the in-flight targets gauge.
func DecInFlight() {
	watcherInFlightTargets.Dec()
}

// ObserveSnapshotWrite records an append against the snapshot store.
func ObserveSnapshotWrite(result string) {
	watcherSnapshotWritesTotal.WithLabelValues(result).Inc()
}
