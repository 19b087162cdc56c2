package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"clip-stacker/internal/jobs"
	"clip-stacker/internal/logging"
)

const (
	maxRequestBytes  = 1 << 20
	defaultListLimit = 50
	maxListLimit     = 500
)

// CreateJobResponse is returned by CreateJob.
type CreateJobResponse struct {
	JobID     string      `json:"jobId"`
	Status    jobs.Status `json:"status"`
	StatusURL string      `json:"statusUrl"`
}

// CreateJob validates and enqueues a job. It returns as soon as the job is
// recorded.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobs.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.jobs.Submit(req)
	if err != nil {
		var ve *jobs.ValidationError
		switch {
		case errors.As(err, &ve):
			writeJSONError(w, ve.Error(), http.StatusBadRequest)
		case errors.Is(err, jobs.ErrShuttingDown):
			writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
		default:
			logging.Error("Failed to submit job: %v", err)
			writeJSONError(w, "failed to submit job", http.StatusInternalServerError)
		}
		return
	}

	writeJSONStatusCode(w, http.StatusOK, CreateJobResponse{
		JobID:     job.ID,
		Status:    job.Status,
		StatusURL: "/api/jobs/" + job.ID,
	})
}

// GetJob returns the current snapshot of a job.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobs.Get(mux.Vars(r)["id"])
	if !ok {
		writeJSONError(w, "job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatusCode(w, http.StatusOK, job)
}

// ListJobsResponse is returned by ListJobs.
type ListJobsResponse struct {
	Jobs  []jobs.Job `json:"jobs"`
	Count int        `json:"count"`
}

// ListJobs returns recent jobs, newest first. ?limit= caps the result.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	list := h.jobs.List(limit)
	if list == nil {
		list = []jobs.Job{}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatusCode(w, http.StatusOK, ListJobsResponse{Jobs: list, Count: len(list)})
}

// DownloadOutput serves one output of a completed job as an attachment.
func (h *Handlers) DownloadOutput(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	job, ok := h.jobs.Get(vars["id"])
	if !ok {
		writeJSONError(w, "job not found", http.StatusNotFound)
		return
	}
	if job.Status != jobs.StatusCompleted {
		writeJSONError(w, fmt.Sprintf("job is %s, outputs are available once completed", job.Status), http.StatusConflict)
		return
	}

	out, ok := job.Outputs[vars["role"]]
	if !ok {
		writeJSONError(w, "job has no output "+strconv.Quote(vars["role"]), http.StatusNotFound)
		return
	}
	if h.outputDir != "" && !isSubPath(h.outputDir, out.Path) {
		logging.Warn("Refusing to serve %s outside %s", out.Path, h.outputDir)
		writeJSONError(w, "output not available", http.StatusNotFound)
		return
	}

	name := job.ID + "-" + vars["role"] + filepath.Ext(out.Path)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, out.Path)
}
