package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Delivery metrics
var (
	DeliveryDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_delivery_decisions_total",
			Help: "Playback requests by stream decision",
		},
		[]string{"action"}, // "direct", "remux", "transcode"
	)

	DeliveryResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_delivery_responses_total",
			Help: "Playback responses by serving mode",
		},
		[]string{"mode"}, // "direct", "cached", "pipe", "rejected"
	)
)

// Transcoder metrics
var (
	TranscoderJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_transcoder_jobs_total",
			Help: "Total number of external media processes run, by kind and outcome",
		},
		[]string{"kind", "status"}, // kind: remux|transcode|segment, status: success|failed|canceled
	)

	TranscoderJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_transcoder_job_duration_seconds",
			Help:    "External media process run time in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"kind"},
	)

	TranscoderProcessesRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_library_transcoder_processes_running",
			Help: "Number of external media processes currently running",
		},
		[]string{"kind"},
	)

	TranscoderBytesStreamed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_transcoder_bytes_streamed_total",
			Help: "Bytes produced by external media processes and written to clients",
		},
		[]string{"kind"},
	)
)

// Queue metrics
var (
	QueueSlotsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_transcode_slots_in_use",
			Help: "Transcode slots currently held",
		},
	)

	QueueSlotsLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_transcode_slots_limit",
			Help: "Configured maximum number of concurrent transcodes",
		},
	)

	QueueWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_library_transcode_queue_wait_seconds",
			Help:    "Time spent waiting for a transcode slot",
			Buckets: []float64{0, 0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5},
		},
	)

	QueueRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_transcode_queue_rejections_total",
			Help: "Transcode requests rejected because no slot became free in time",
		},
	)
)

// Cache metrics
var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_cache_lookups_total",
			Help: "Cache lookups by variant kind and result",
		},
		[]string{"kind", "result"}, // result: hit|miss
	)

	CachePromotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_cache_promotions_total",
			Help: "Partial cache fills promoted to completed artifacts",
		},
	)

	CacheDiscardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_cache_discards_total",
			Help: "Partial cache fills discarded",
		},
		[]string{"reason"}, // "process_failed", "canceled", "write_error", "sweep"
	)

	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_cache_size_bytes",
			Help: "Total size of completed cache artifacts in bytes",
		},
	)

	CacheFilesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_cache_files",
			Help: "Number of completed cache artifacts",
		},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"},
	)

	AccessDeniedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_access_denied_total",
			Help: "Playback requests rejected by library authorization",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_retry_attempts_total",
			Help: "Filesystem operations retried after a stale NFS handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_filesystem_retry_duration_seconds",
			Help:    "Total duration of retried filesystem operations",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// App info
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "media_library_app_info",
		Help: "Application build information",
	},
	[]string{"version", "commit", "go_version"},
)
