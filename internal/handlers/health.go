package handlers

import (
	"net/http"
	"runtime"
	"time"

	"clip-stacker/internal/jobs"
	"clip-stacker/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// JobCounts summarizes the job table.
type JobCounts struct {
	Queued     int            `json:"queued"`
	InProgress int            `json:"inProgress"`
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
}

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Reason  string `json:"reason,omitempty"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Jobs        JobCounts      `json:"jobs"`
	Credentials map[string]int `json:"credentials,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	stats := h.jobs.Stats()
	counts := JobCounts{
		Queued:     stats.Queued,
		InProgress: stats.InProgress,
		Total:      stats.Total,
		ByStatus:   make(map[string]int, len(jobs.Statuses)),
	}
	for _, s := range jobs.Statuses {
		counts.ByStatus[string(s)] = stats.ByStatus[s]
	}

	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Jobs:         counts,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if h.credentials != nil {
		response.Credentials = h.credentials.Stats()
	}

	code := http.StatusOK
	if err := h.ready(); err != nil {
		response.Status = statusDegraded
		response.Ready = false
		response.Reason = err.Error()
		code = http.StatusServiceUnavailable
	}

	writeJSONStatusCode(w, code, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the service can run jobs
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if err := h.ready(); err != nil {
		writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": err.Error(),
		})
		return
	}
	writeJSONStatusCode(w, http.StatusOK, map[string]string{"status": "ready"})
}
