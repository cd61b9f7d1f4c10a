package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echodeck_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echodeck_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Export Metrics
	ExportsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echodeck_exports_started_total",
			Help: "Total number of export jobs started",
		},
		[]string{"format"},
	)

	ExportsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echodeck_exports_completed_total",
			Help: "Total number of export jobs that reached a terminal state",
		},
		[]string{"status", "format"},
	)

	ExportsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "echodeck_exports_in_progress",
			Help: "Number of exports currently being processed",
		},
	)

	ExportQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "echodeck_export_queue_depth",
			Help: "Number of export jobs waiting in queue",
		},
	)

	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echodeck_export_duration_seconds",
			Help:    "End-to-end export processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
		[]string{"format", "quality"},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echodeck_export_phase_duration_seconds",
			Help:    "Duration of each export pipeline phase in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 11),
		},
		[]string{"phase"},
	)

	// Slide-level Metrics
	SlideFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echodeck_slide_failures_total",
			Help: "Total number of per-slide failures tolerated during exports",
		},
		[]string{"stage"},
	)

	NarrationCharsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "echodeck_narration_chars_total",
			Help: "Total number of characters sent for speech synthesis",
		},
	)

	OutputVideoSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "echodeck_output_video_size_bytes",
			Help:    "Size of finished export artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 12), // 1MB to 2GB
		},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echodeck_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echodeck_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echodeck_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echodeck_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echodeck_errors_total",
			Help: "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records metrics for an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordExportStarted records a new export job entering the pipeline
func RecordExportStarted(format string) {
	ExportsStartedTotal.WithLabelValues(format).Inc()
	ExportsInProgress.Inc()
}

// RecordExportCompleted records a job reaching a terminal state
func RecordExportCompleted(status, format, quality string, duration float64) {
	ExportsCompletedTotal.WithLabelValues(status, format).Inc()
	ExportDuration.WithLabelValues(format, quality).Observe(duration)
	ExportsInProgress.Dec()
}

// RecordPhaseDuration records how long one pipeline phase took
func RecordPhaseDuration(phase string, duration float64) {
	PhaseDuration.WithLabelValues(phase).Observe(duration)
}

// RecordSlideFailure records a tolerated per-slide failure
func RecordSlideFailure(stage string) {
	SlideFailuresTotal.WithLabelValues(stage).Inc()
}

// UpdateQueueDepth updates the export queue depth gauge
func UpdateQueueDepth(depth int) {
	ExportQueueDepth.Set(float64(depth))
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheAccess records a cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		CacheMisses.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error occurrence
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
