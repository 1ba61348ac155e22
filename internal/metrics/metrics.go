package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_forensics_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_forensics_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_forensics_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Registry and orchestration metrics
var (
	RegistryRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_forensics_registry_records",
			Help: "Number of live asset records in the registry",
		},
	)

	RegistryRecordsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_forensics_registry_records_by_state",
			Help: "Live asset records per analysis state",
		},
		[]string{"state"},
	)

	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_forensics_analyses_total",
			Help: "Completed analysis runs by outcome",
		},
		[]string{"outcome"},
	)

	ProviderSettlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_forensics_provider_settles_total",
			Help: "Provider settlements by provider and status",
		},
		[]string{"provider", "status"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_forensics_provider_duration_seconds",
			Help:    "Provider invocation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)
)

// Frame extraction metrics
var (
	FrameExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_forensics_frame_extractions_total",
			Help: "Video frame extraction runs by status",
		},
		[]string{"status"},
	)

	FrameExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_forensics_frame_extraction_duration_seconds",
			Help:    "Full extraction duration per video in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	FramesExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_forensics_frames_extracted_total",
			Help: "Total still frames extracted from videos",
		},
	)

	FrameSeekFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_forensics_frame_seek_failures_total",
			Help: "Individual frame seeks that failed and were skipped",
		},
	)
)

// Preview generation metrics
var (
	PreviewGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_forensics_preview_generations_total",
			Help: "Preview generations by media type and status",
		},
		[]string{"type", "status"},
	)

	PreviewGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_forensics_preview_generation_duration_seconds",
			Help:    "Preview generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"type"},
	)
)

// History database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_forensics_db_queries_total",
			Help: "Total number of history database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_forensics_db_query_duration_seconds",
			Help:    "History database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// Filesystem retry metrics. The cache and database directories may live on
// network volumes; these track ESTALE recovery behavior per volume.
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_forensics_filesystem_retry_attempts_total",
			Help: "Filesystem operation retries after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_forensics_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_forensics_filesystem_retry_failures_total",
			Help: "Filesystem operations that exhausted all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_forensics_filesystem_stale_errors_total",
			Help: "Stale NFS file handle errors encountered",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_forensics_filesystem_retry_duration_seconds",
			Help:    "Total duration of filesystem operations including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Memory pressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_forensics_memory_usage_ratio",
			Help: "Current heap usage as a fraction of the configured limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_forensics_memory_paused",
			Help: "1 while processing is paused for memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_forensics_memory_gc_pauses_total",
			Help: "Forced garbage collections triggered by memory pressure",
		},
	)
)
