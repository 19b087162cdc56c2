package jobs

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"clip-stacker/internal/compose"
	"clip-stacker/internal/download"
	"clip-stacker/internal/filesystem"
	"clip-stacker/internal/logging"
	"clip-stacker/internal/metrics"
	"clip-stacker/internal/staging"
)

// process runs one job to a terminal status. Intermediate files are
// removed on every exit path, before the terminal status is visible.
func (m *Manager) process(id string) {
	log := logging.With("job_id", id)
	start := time.Now()
	scope := staging.NewScope(m.cfg.WorkDir, id)

	metrics.JobsInProgress.Inc()
	defer func() {
		metrics.JobsInProgress.Dec()
		m.mu.Lock()
		m.inProgress--
		m.mu.Unlock()
	}()
	defer scope.Cleanup()

	outputs, err := m.runSafely(id, scope)
	scope.Cleanup()

	if err != nil {
		stage := stageOf(err)
		msg := summarize(err)
		m.update(id, func(j *Job) {
			j.Error = msg
			j.advance(StatusFailed, time.Now())
		})
		metrics.JobsFinishedTotal.WithLabelValues(string(StatusFailed), stage).Inc()
		metrics.JobDuration.WithLabelValues(string(StatusFailed)).Observe(time.Since(start).Seconds())
		log.Warn("Job failed during %s after %v: %s", stage, time.Since(start).Round(time.Millisecond), msg)
		return
	}

	m.update(id, func(j *Job) {
		j.Outputs = outputs
		j.advance(StatusCompleted, time.Now())
	})
	metrics.JobsFinishedTotal.WithLabelValues(string(StatusCompleted), "publish").Inc()
	metrics.JobDuration.WithLabelValues(string(StatusCompleted)).Observe(time.Since(start).Seconds())
	log.Info("Job completed in %v", time.Since(start).Round(time.Millisecond))
}

// runSafely turns a panic anywhere in the pipeline into a failure.
func (m *Manager) runSafely(id string, scope *staging.Scope) (outputs map[string]Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Job %s panicked: %v", id, r)
			outputs = nil
			err = failedIn("unknown", fmt.Errorf("internal error: %v", r))
		}
	}()
	return m.run(m.ctx, id, scope)
}

func (m *Manager) run(ctx context.Context, id string, scope *staging.Scope) (map[string]Output, error) {
	job, _ := m.Get(id)

	m.setStatus(id, StatusDownloading)
	stageStart := time.Now()
	local, err := m.downloadSources(ctx, job, scope)
	metrics.JobStageDuration.WithLabelValues("download").Observe(time.Since(stageStart).Seconds())
	if err != nil {
		return nil, failedIn("download", err)
	}

	m.setStatus(id, StatusComposing)
	stageStart = time.Now()
	rendered, err := m.compose(ctx, job, local, scope)
	metrics.JobStageDuration.WithLabelValues("compose").Observe(time.Since(stageStart).Seconds())
	if err != nil {
		return nil, failedIn("compose", err)
	}

	m.setStatus(id, StatusPublishing)
	stageStart = time.Now()
	outputs, err := m.publish(job.ID, rendered)
	metrics.JobStageDuration.WithLabelValues("publish").Observe(time.Since(stageStart).Seconds())
	if err != nil {
		return nil, failedIn("publish", err)
	}
	return outputs, nil
}

// downloadSources fetches every source in order and returns local paths by
// role.
func (m *Manager) downloadSources(ctx context.Context, job Job, scope *staging.Scope) (map[string]string, error) {
	local := make(map[string]string, len(job.Sources))

	for _, s := range job.Sources {
		src, err := download.ParseSource(s.URL)
		if err != nil {
			return nil, fmt.Errorf("%s source: %w", s.Role, err)
		}

		dest := scope.Path(s.Role, ".mp4")
		attempts, err := m.downloader.Download(ctx, src, dest)
		m.update(job.ID, func(j *Job) {
			j.Attempts = append(j.Attempts, attempts...)
		})
		if err != nil {
			return nil, fmt.Errorf("%s source: %w", s.Role, err)
		}
		local[s.Role] = dest
	}

	return local, nil
}

func (m *Manager) compose(ctx context.Context, job Job, local map[string]string, scope *staging.Scope) (map[string]string, error) {
	mainSrc, _ := job.Source(compose.RoleMain)
	bgSrc, _ := job.Source(compose.RoleBackground)

	req := compose.Request{
		Mode:            job.Mode,
		Main:            compose.Input{Path: local[compose.RoleMain], Window: mainSrc.Window},
		Background:      compose.Input{Path: local[compose.RoleBackground]},
		BackgroundStart: bgSrc.Window.Start,
		Outputs:         make(map[string]string),
	}

	for _, in := range []*compose.Input{&req.Main, &req.Background} {
		info, err := m.composer.Probe(ctx, in.Path)
		if err != nil {
			logging.Warn("Job %s: probing %s failed, planning without dimensions: %v", job.ID, filepath.Base(in.Path), err)
			continue
		}
		in.Info = info
	}

	for _, r := range compose.OutputRoles(job.Mode) {
		req.Outputs[r.Role] = scope.Path(r.Role, r.Ext)
	}

	plan, err := compose.NewPlan(req, m.composer.Options())
	if err != nil {
		return nil, &compose.Error{Output: "plan", Err: err}
	}
	logging.Debug("Job %s: plan mode=%s duration=%.3fs canvas=%s audio=%q",
		job.ID, plan.Mode, plan.Duration, plan.Canvas, plan.Combine.AudioRole)

	return m.composer.Execute(ctx, plan)
}

// publish moves rendered files into <OutputDir>/<jobID>/. On failure the
// job's output directory is removed so nothing partial is served.
func (m *Manager) publish(jobID string, rendered map[string]string) (map[string]Output, error) {
	dir := filepath.Join(m.cfg.OutputDir, jobID)
	outputs := make(map[string]Output, len(rendered))

	for role, src := range rendered {
		name := role + filepath.Ext(src)
		dst := filepath.Join(dir, name)

		if err := filesystem.Move(src, dst); err != nil {
			os.RemoveAll(dir)
			return nil, &PublishError{Output: role, Err: err}
		}
		size, err := filesystem.VerifyNonEmpty(dst)
		if err != nil {
			os.RemoveAll(dir)
			return nil, &PublishError{Output: role, Err: err}
		}

		outputs[role] = Output{Path: dst, URL: m.outputURL(jobID, name), Size: size}
	}

	logging.Debug("Job %s: published %s to %s", jobID, strings.Join(sortedRoles(outputs), ","), dir)
	return outputs, nil
}

func (m *Manager) outputURL(jobID, name string) string {
	base := strings.TrimRight(m.cfg.PublicBaseURL, "/")
	return base + path.Join("/outputs", jobID, name)
}
