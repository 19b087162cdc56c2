package metrics

// Label values known at startup. Kept here so every series is exported from
// the first Prometheus scrape.
var (
	jobStatuses     = []string{"queued", "downloading", "composing", "publishing", "completed", "failed"}
	jobStages       = []string{"download", "compose", "publish"}
	strategies      = []string{"direct", "headless", "scrape", "credential", "proxy"}
	attemptOutcomes = []string{"success", "retryable", "auth", "fatal"}
	outputRoles     = []string{"combined", "thumbnail", "main_rendered", "background_rendered", "audio"}
	retryOps        = []string{"download", "stat"}
)

// InitializeMetrics pre-populates all expected label combinations.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range jobStatuses {
		JobsByStatus.WithLabelValues(status)
	}
	for _, stage := range jobStages {
		JobStageDuration.WithLabelValues(stage)
		JobsFinishedTotal.WithLabelValues("failed", stage)
	}
	JobsFinishedTotal.WithLabelValues("completed", "publish")
	JobDuration.WithLabelValues("completed")
	JobDuration.WithLabelValues("failed")

	for _, s := range strategies {
		DownloadDuration.WithLabelValues(s)
		DownloadStrategySkipped.WithLabelValues(s)
		DownloadBytes.WithLabelValues(s)
		for _, o := range attemptOutcomes {
			DownloadAttemptsTotal.WithLabelValues(s, o)
		}
	}

	for _, op := range retryOps {
		RetryAttemptsTotal.WithLabelValues(op)
		RetryExhaustedTotal.WithLabelValues(op)
		RetrySuccessTotal.WithLabelValues(op)
	}

	for _, role := range outputRoles {
		CompositionDuration.WithLabelValues(role)
		CompositionsTotal.WithLabelValues(role, "success")
		CompositionsTotal.WithLabelValues(role, "error")
	}

	for _, op := range []string{"stat"} {
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
