// ABOUTME: Prometheus metrics for the backspeak server
// ABOUTME: Counts captures, failures and clips on a private registry
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the backspeak service
type Metrics struct {
	registry *prometheus.Registry

	// Capture lifecycle metrics
	CapturesStarted     prometheus.Counter
	AcquisitionFailures prometheus.Counter
	DecodeFailures      prometheus.Counter
	ActiveSessions      prometheus.Gauge

	// Clip metrics
	ClipsEncoded       prometheus.Counter
	ClipsReleased      prometheus.Counter
	ProcessingDuration prometheus.Histogram
	EncodedBytes       prometheus.Histogram
	ClipDuration       prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates all metrics on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CapturesStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "backspeak_captures_started_total",
			Help: "Total number of recordings started",
		}),
		AcquisitionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "backspeak_acquisition_failures_total",
			Help: "Total number of capture sources that failed to open",
		}),
		DecodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "backspeak_decode_failures_total",
			Help: "Total number of recordings or uploads that failed to decode",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "backspeak_active_sessions",
			Help: "Current number of websocket capture sessions",
		}),

		ClipsEncoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "backspeak_clips_encoded_total",
			Help: "Total number of reversed clips encoded",
		}),
		ClipsReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "backspeak_clips_released_total",
			Help: "Total number of published clips released",
		}),
		ProcessingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "backspeak_processing_duration_seconds",
			Help:    "Time spent decoding, reversing and encoding a clip",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		EncodedBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "backspeak_encoded_bytes",
			Help:    "Size of encoded WAV clips in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~256MB
		}),
		ClipDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "backspeak_clip_duration_seconds",
			Help:    "Playback length of encoded clips",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "backspeak_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backspeak_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the registry holding these metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCaptureStarted increments the captures counter
func (m *Metrics) RecordCaptureStarted() {
	m.CapturesStarted.Inc()
}

// RecordAcquisitionFailure increments the acquisition failures counter
func (m *Metrics) RecordAcquisitionFailure() {
	m.AcquisitionFailures.Inc()
}

// RecordDecodeFailure increments the decode failures counter
func (m *Metrics) RecordDecodeFailure() {
	m.DecodeFailures.Inc()
}

// RecordClip records an encoded clip
func (m *Metrics) RecordClip(sizeBytes int, clipDuration, processing time.Duration) {
	m.ClipsEncoded.Inc()
	m.EncodedBytes.Observe(float64(sizeBytes))
	m.ClipDuration.Observe(clipDuration.Seconds())
	m.ProcessingDuration.Observe(processing.Seconds())
}

// RecordClipReleased increments the released clips counter
func (m *Metrics) RecordClipReleased() {
	m.ClipsReleased.Inc()
}

// SessionOpened increments the active session gauge
func (m *Metrics) SessionOpened() {
	m.ActiveSessions.Inc()
}

// SessionClosed decrements the active session gauge
func (m *Metrics) SessionClosed() {
	m.ActiveSessions.Dec()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, statusCode string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
