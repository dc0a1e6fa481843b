package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine metrics
var (
	EngineLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounty_uploader_engine_loads_total",
			Help: "Total number of transcoding engine initializations",
		},
		[]string{"status"},
	)

	EngineLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bounty_uploader_engine_load_duration_seconds",
			Help:    "Transcoding engine initialization duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

// Compression metrics
var (
	CompressionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounty_uploader_compressions_total",
			Help: "Total number of compression attempts",
		},
		[]string{"status"},
	)

	CompressionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bounty_uploader_compression_duration_seconds",
			Help:    "Compression duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	CompressionSavedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bounty_uploader_compression_saved_bytes_total",
			Help: "Bytes saved by compression before upload",
		},
	)

	CompressionFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bounty_uploader_compression_fallbacks_total",
			Help: "Submissions that uploaded the original file after compression failed",
		},
	)
)

// Upload metrics
var (
	UploadStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounty_uploader_upload_steps_total",
			Help: "Direct upload protocol steps by outcome",
		},
		[]string{"step", "status"},
	)

	UploadStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bounty_uploader_upload_step_duration_seconds",
			Help:    "Direct upload protocol step duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bounty_uploader_upload_bytes_total",
			Help: "Bytes successfully transferred to storage",
		},
	)
)

// Intake metrics
var (
	SubmissionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bounty_uploader_submissions_in_flight",
			Help: "Number of submissions currently being processed",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounty_uploader_http_requests_total",
			Help: "Total number of intake HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Outcome labels
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)
