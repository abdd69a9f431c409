// Package metrics provides Prometheus metrics for btcratios.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SourceFetchesTotal counts fetches per source by outcome (live, fallback, unavailable, skipped).
	SourceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetches_total",
			Help: "Total number of source fetches by outcome",
		},
		[]string{"source", "outcome"},
	)

	// SourceFetchDuration is a histogram of upstream round-trip durations.
	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Duration of upstream fetches including retries",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	// SourceFailuresTotal counts failed fetches by error class.
	SourceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_failures_total",
			Help: "Total number of failed source fetches by error class",
		},
		[]string{"source", "class"},
	)

	// SourceLastSuccess is a gauge of the last live value timestamp per source.
	SourceLastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_last_success_timestamp",
			Help: "Unix timestamp of last live value from source",
		},
		[]string{"source"},
	)

	// RefreshDuration is a histogram of full refresh durations.
	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refresh_duration_seconds",
			Help:    "Duration of snapshot refreshes",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RefreshesTotal counts refreshes by result (complete, canceled).
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refreshes_total",
			Help: "Total number of snapshot refreshes",
		},
		[]string{"result"},
	)

	// RatioAvailable reports whether each derived ratio was computed in the last snapshot.
	RatioAvailable = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ratio_available",
			Help: "Availability of derived ratios in the last snapshot (1=available, 0=unavailable)",
		},
		[]string{"ratio"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5, 10},
		},
		[]string{"endpoint"},
	)
)

// Init registers all metrics with the default Prometheus registry.
func Init() {
	prometheus.MustRegister(
		SourceFetchesTotal,
		SourceFetchDuration,
		SourceFailuresTotal,
		SourceLastSuccess,
		RefreshDuration,
		RefreshesTotal,
		RatioAvailable,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address and path.
func ServeHTTP(addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordSourceFetch records the outcome and duration of one source fetch.
func RecordSourceFetch(source, outcome string, duration time.Duration) {
	SourceFetchesTotal.WithLabelValues(source, outcome).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	if outcome == "live" {
		SourceLastSuccess.WithLabelValues(source).SetToCurrentTime()
	}
}

// RecordSourceFailure records a failed fetch attempt.
func RecordSourceFailure(source, class string) {
	SourceFailuresTotal.WithLabelValues(source, class).Inc()
}

// RecordRefresh records a refresh and its duration.
func RecordRefresh(result string, duration time.Duration) {
	RefreshesTotal.WithLabelValues(result).Inc()
	RefreshDuration.Observe(duration.Seconds())
}

// RecordRatio records whether a ratio was available.
func RecordRatio(ratio string, available bool) {
	val := 0.0
	if available {
		val = 1.0
	}
	RatioAvailable.WithLabelValues(ratio).Set(val)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
