package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_stacker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_stacker_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_db_query_total",
			Help: "Total number of credential database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_stacker_db_query_duration_seconds",
			Help:    "Credential database query duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"operation"},
	)
)

// Job metrics
var (
	JobsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_stacker_jobs_submitted_total",
			Help: "Total number of accepted job submissions",
		},
	)

	JobsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_jobs_rejected_total",
			Help: "Total number of job submissions rejected by validation",
		},
		[]string{"field"},
	)

	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal state",
		},
		[]string{"status", "stage"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_stacker_job_duration_seconds",
			Help:    "Time from job pickup to terminal state",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		},
		[]string{"status"},
	)

	JobStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_stacker_job_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_stacker_jobs_in_progress",
			Help: "Number of jobs currently being processed by a worker",
		},
	)

	JobQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_stacker_job_queue_depth",
			Help: "Number of jobs waiting for a worker",
		},
	)

	JobsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clip_stacker_jobs",
			Help: "Number of jobs in the in-memory table by status",
		},
		[]string{"status"},
	)
)

// Download metrics
var (
	DownloadAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_download_attempts_total",
			Help: "Total number of download strategy attempts by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	DownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_stacker_download_duration_seconds",
			Help:    "Duration of download strategy attempts",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"strategy"},
	)

	DownloadStrategySkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_download_strategy_skipped_total",
			Help: "Total number of times a strategy was skipped for a missing prerequisite",
		},
		[]string{"strategy"},
	)

	DownloadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_download_bytes_total",
			Help: "Total bytes materialized by successful downloads",
		},
		[]string{"strategy"},
	)
)

// Retry metrics
var (
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_retry_attempts_total",
			Help: "Total number of retries performed after a failed attempt",
		},
		[]string{"op"},
	)

	RetryExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_retry_exhausted_total",
			Help: "Total number of operations that failed after the full attempt budget",
		},
		[]string{"op"},
	)

	RetrySuccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_retry_success_total",
			Help: "Total number of operations that succeeded after at least one retry",
		},
		[]string{"op"},
	)
)

// Credential metrics
var (
	CredentialsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clip_stacker_credentials_active",
			Help: "Number of active credentials by class",
		},
		[]string{"class"},
	)

	CredentialsRevokedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_credentials_revoked_total",
			Help: "Total number of credentials revoked after authentication failures",
		},
		[]string{"class"},
	)
)

// Composition metrics
var (
	CompositionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_compositions_total",
			Help: "Total number of transcoder invocations by output role and status",
		},
		[]string{"role", "status"},
	)

	CompositionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clip_stacker_composition_duration_seconds",
			Help:    "Transcoder invocation duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"role"},
	)

	TranscoderProcessesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_stacker_transcoder_processes_active",
			Help: "Number of external processes currently running",
		},
	)
)

// Staging metrics
var (
	StagingFilesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_stacker_staging_files_removed_total",
			Help: "Total number of intermediate files removed by cleanup",
		},
	)

	StagingCleanupErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_stacker_staging_cleanup_errors_total",
			Help: "Total number of intermediate files that could not be removed",
		},
	)

	StagingOrphansSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clip_stacker_staging_orphans_swept_total",
			Help: "Total number of orphaned work files removed by the sweeper",
		},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clip_stacker_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors encountered",
		},
		[]string{"operation"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_stacker_memory_usage_ratio",
			Help: "Heap usage as a ratio of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clip_stacker_memory_paused",
			Help: "1 while job pickup is held for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clip_stacker_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
