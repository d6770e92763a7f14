package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Ingest Metrics
	IngestRecordsTotal prometheus.Counter
	IngestSkippedTotal *prometheus.CounterVec
	IngestErrorsTotal  *prometheus.CounterVec
	IngestDuration     prometheus.Histogram
	ActiveLoads        prometheus.Gauge
	DevicesLoaded      prometheus.Gauge

	// Render Metrics
	RenderDuration    *prometheus.HistogramVec
	TracesBuiltTotal  *prometheus.CounterVec
	RenderErrorsTotal *prometheus.CounterVec
}

// NewCollector creates a new metrics collector on the default registry
func NewCollector(namespace string) *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer, namespace)
}

// NewCollectorWith creates a new metrics collector on an explicit
// registry; tests use this to avoid duplicate registration
func NewCollectorWith(reg prometheus.Registerer, namespace string) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		IngestRecordsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_records_processed_total",
				Help:      "Total number of telemetry records ingested",
			},
		),

		IngestSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_records_skipped_total",
				Help:      "Total number of records skipped during ingest by reason",
			},
			[]string{"reason"},
		),

		IngestErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_errors_total",
				Help:      "Total number of ingest failures by type",
			},
			[]string{"error_type"},
		),

		IngestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_duration_seconds",
				Help:      "Duration of ingest operations in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),

		ActiveLoads: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_loads",
				Help:      "Number of ingest operations currently in flight (0 or 1)",
			},
		),

		DevicesLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "devices_loaded",
				Help:      "Number of device tables in the current map",
			},
		),

		RenderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Trace-building duration in seconds by mode",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"mode"},
		),

		TracesBuiltTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "traces_built_total",
				Help:      "Total number of chart traces assembled by kind",
			},
			[]string{"kind"},
		),

		RenderErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "render_errors_total",
				Help:      "Total number of failed render requests by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordIngestSkip increments the skipped-record counter
func (c *Collector) RecordIngestSkip(reason string) {
	c.IngestSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordIngestError increments ingest error counter
func (c *Collector) RecordIngestError(errorType string) {
	c.IngestErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordRenderError increments the failed-render counter
func (c *Collector) RecordRenderError(errorType string) {
	c.RenderErrorsTotal.WithLabelValues(errorType).Inc()
}
