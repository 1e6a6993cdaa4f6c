package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the VAD segmentation service.
type Metrics struct {
	// Pipeline metrics
	FramesProcessed      prometheus.Counter
	InferenceDuration    prometheus.Histogram
	InferenceErrors      prometheus.Counter
	SmoothedProbability  prometheus.Histogram
	PipelineRunning      prometheus.Gauge
	SampleQueueBacklog   prometheus.Gauge

	// Segment metrics
	SegmentsSaved   prometheus.Counter
	SegmentDuration prometheus.Histogram
	SegmentIOErrors prometheus.Counter

	// HTTP control-plane metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		FramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_frames_processed_total",
			Help: "Total number of 512-sample frames run through the model",
		}),
		InferenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vad_inference_duration_seconds",
			Help:    "Time spent in a single model inference call",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		}),
		InferenceErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_inference_errors_total",
			Help: "Total number of failed inference calls",
		}),
		SmoothedProbability: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vad_smoothed_probability",
			Help:    "Distribution of the smoothed speech probability per frame",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		}),
		PipelineRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vad_pipeline_running",
			Help: "1 if the capture/inference pipeline is currently active, else 0",
		}),
		SampleQueueBacklog: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vad_sample_queue_backlog",
			Help: "Number of samples currently queued but not yet framed",
		}),

		SegmentsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_segments_saved_total",
			Help: "Total number of speech segments written to disk",
		}),
		SegmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vad_segment_duration_seconds",
			Help:    "Duration of saved speech segments",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~2 minutes
		}),
		SegmentIOErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vad_segment_io_errors_total",
			Help: "Total number of segments lost to a write failure",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vad_http_requests_total",
			Help: "Total number of control-plane HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vad_http_request_duration_seconds",
			Help:    "Duration of control-plane HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vad_http_errors_total",
			Help: "Total number of control-plane HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordFrame records one frame's inference outcome.
func (m *Metrics) RecordFrame(durationSeconds float64, smoothed float64) {
	m.FramesProcessed.Inc()
	m.InferenceDuration.Observe(durationSeconds)
	m.SmoothedProbability.Observe(smoothed)
}

// RecordInferenceError increments the inference error counter.
func (m *Metrics) RecordInferenceError() {
	m.InferenceErrors.Inc()
}

// SetPipelineRunning reflects the controller's running state in the gauge.
func (m *Metrics) SetPipelineRunning(running bool) {
	if running {
		m.PipelineRunning.Set(1)
	} else {
		m.PipelineRunning.Set(0)
	}
}

// SetSampleQueueBacklog reports the framer's current pending sample count.
func (m *Metrics) SetSampleQueueBacklog(n int) {
	m.SampleQueueBacklog.Set(float64(n))
}

// RecordSegmentSaved records a successfully written segment.
func (m *Metrics) RecordSegmentSaved(durationSeconds float64) {
	m.SegmentsSaved.Inc()
	m.SegmentDuration.Observe(durationSeconds)
}

// RecordSegmentIOError increments the segment I/O error counter.
func (m *Metrics) RecordSegmentIOError() {
	m.SegmentIOErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
