// Package metrics provides Prometheus instrumentation for the clip-stacker service.
//
// All metrics are prefixed with "clip_stacker_" and registered on the default
// registry through promauto, so importing the package is enough to expose them
// on the /metrics endpoint served by promhttp.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Job Metrics
//
//   - JobsSubmittedTotal / JobsRejectedTotal: accepted and rejected submissions
//   - JobsFinishedTotal: terminal jobs by status and the stage they ended in
//   - JobDuration, JobStageDuration: pipeline timing
//   - JobsInProgress, JobQueueDepth, JobsByStatus: point-in-time gauges
//
// ## Download, Retry and Credential Metrics
//
//   - DownloadAttemptsTotal: strategy attempts by outcome (success, retryable, auth, fatal)
//   - DownloadStrategySkipped: strategies skipped for a missing prerequisite
//   - RetryAttemptsTotal / RetrySuccessTotal / RetryExhaustedTotal: retry engine behaviour
//   - CredentialsActive / CredentialsRevokedTotal: credential pool health
//
// ## Composition and Staging Metrics
//
//   - CompositionsTotal, CompositionDuration: ffmpeg invocations per output role
//   - TranscoderProcessesActive: running external processes
//   - StagingFilesRemoved, StagingCleanupErrors, StagingOrphansSwept: temp file lifecycle
//
// # Collector
//
// Gauges derived from in-memory state (jobs by status, active credentials) are
// refreshed by a Collector polling a StatsProvider at a fixed interval.
package metrics
