// Package metrics provides Prometheus metrics for the Zoltar client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the client.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// API traffic metrics
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Token lifecycle metrics
	reauthentications prometheus.Counter

	// Upload job metrics
	uploads  prometheus.Counter
	jobPolls prometheus.Counter

	// Interchange codec metrics
	rowsEncoded prometheus.Counter
	rowsDecoded prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "zoltpy",
		subsystem:        "client",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.requests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requests_total",
		Help:      "Total number of HTTP requests issued, by method and status",
	}, []string{"method", "status"})

	m.requestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of HTTP request latency in seconds, by method",
		Buckets:   m.histogramBuckets,
	}, []string{"method"})

	m.reauthentications = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reauthentications_total",
		Help:      "Total number of token renewals triggered by expiry checks",
	})

	m.uploads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "forecast_uploads_total",
		Help:      "Total number of forecast upload requests",
	})

	m.jobPolls = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upload_job_polls_total",
		Help:      "Total number of upload job status polls",
	})

	m.rowsEncoded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "codec_rows_encoded_total",
		Help:      "Total number of tabular rows produced from prediction sets",
	})

	m.rowsDecoded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "codec_rows_decoded_total",
		Help:      "Total number of tabular rows folded back into prediction sets",
	})
}

// Manager methods guard on the enabled flag so a disabled manager is free.

func (m *Manager) RecordRequest(method, status string, seconds float64) {
	if !m.enabled {
		return
	}
	m.requests.WithLabelValues(method, status).Inc()
	m.requestDuration.WithLabelValues(method).Observe(seconds)
}

func (m *Manager) RecordReauthentication() {
	if !m.enabled {
		return
	}
	m.reauthentications.Inc()
}

func (m *Manager) RecordUpload() {
	if !m.enabled {
		return
	}
	m.uploads.Inc()
}

func (m *Manager) RecordJobPoll() {
	if !m.enabled {
		return
	}
	m.jobPolls.Inc()
}

func (m *Manager) RecordRowsEncoded(n int) {
	if !m.enabled {
		return
	}
	m.rowsEncoded.Add(float64(n))
}

func (m *Manager) RecordRowsDecoded(n int) {
	if !m.enabled {
		return
	}
	m.rowsDecoded.Add(float64(n))
}

// Package-level recording helpers backed by the global manager.

func RecordRequest(method, status string, seconds float64) {
	globalManager.RecordRequest(method, status, seconds)
}

func RecordReauthentication() {
	globalManager.RecordReauthentication()
}

func RecordUpload() {
	globalManager.RecordUpload()
}

func RecordJobPoll() {
	globalManager.RecordJobPoll()
}

func RecordRowsEncoded(n int) {
	globalManager.RecordRowsEncoded(n)
}

func RecordRowsDecoded(n int) {
	globalManager.RecordRowsDecoded(n)
}

// GetRegistry returns the registry holding the client metrics, for exposition
// by an embedding application.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
