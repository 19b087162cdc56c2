package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clip-stacker/internal/compose"
	"clip-stacker/internal/download"
	"clip-stacker/internal/logging"
	"clip-stacker/internal/metrics"
)

// Downloader materializes a source at dest.
type Downloader interface {
	Download(ctx context.Context, src download.Source, dest string) ([]download.Attempt, error)
}

// Composer plans and renders outputs.
type Composer interface {
	Options() compose.Options
	Probe(ctx context.Context, path string) (*compose.MediaInfo, error)
	Execute(ctx context.Context, plan *compose.Plan) (map[string]string, error)
}

// Config configures a Manager.
type Config struct {
	// Workers is the number of jobs processed concurrently.
	Workers int
	// WorkDir holds intermediate files.
	WorkDir string
	// OutputDir is the servable directory outputs are published to.
	OutputDir string
	// PublicBaseURL prefixes output URLs; empty yields root-relative URLs.
	PublicBaseURL string
	// MaxClipSeconds bounds the requested window; zero disables the check.
	MaxClipSeconds float64
	// Gate, when set, holds idle workers back from picking up new jobs.
	Gate Gate
}

// Gate applies backpressure to job pickup. Wait blocks while pickup is
// held and returns false if stop closes first.
type Gate interface {
	Wait(stop <-chan struct{}) bool
}

// Stats is a point-in-time view of the job table.
type Stats struct {
	ByStatus   map[Status]int
	Queued     int
	InProgress int
	Total      int
}

// Manager owns the in-memory job table and the worker pool.
type Manager struct {
	cfg        Config
	downloader Downloader
	composer   Composer

	mu         sync.Mutex
	cond       *sync.Cond
	jobs       map[string]*Job
	order      []string
	queue      []string
	subs       map[string][]chan Job
	closed     bool
	stopping   chan struct{}
	inProgress int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a Manager. Call Start to begin processing.
func NewManager(cfg Config, d Downloader, c Composer) *Manager {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:        cfg,
		downloader: d,
		composer:   c,
		jobs:       make(map[string]*Job),
		subs:       make(map[string][]chan Job),
		stopping:   make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Start launches the worker pool.
func (m *Manager) Start() {
	logging.Info("Starting %d job workers", m.cfg.Workers)
	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
}

// Submit validates req, records a queued job and returns its snapshot. It
// never waits for processing.
func (m *Manager) Submit(req Request) (Job, error) {
	s, err := req.normalize(m.cfg.MaxClipSeconds)
	if err != nil {
		if ve, ok := err.(*ValidationError); ok {
			metrics.JobsRejectedTotal.WithLabelValues(ve.Field).Inc()
		}
		return Job{}, err
	}

	now := time.Now()
	job := &Job{
		ID:     uuid.NewString(),
		Status: StatusQueued,
		Mode:   s.mode,
		Sources: []Source{
			{Role: compose.RoleMain, URL: s.main, Window: s.window},
			{Role: compose.RoleBackground, URL: s.background, Window: compose.Window{
				Start: s.backgroundStart,
				End:   s.backgroundStart + s.window.Duration(),
			}},
		},
		History:   []Transition{{Status: StatusQueued, At: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Job{}, ErrShuttingDown
	}
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	m.queue = append(m.queue, job.ID)
	depth := len(m.queue)
	snap := job.clone()
	m.mu.Unlock()
	m.cond.Signal()

	metrics.JobsSubmittedTotal.Inc()
	metrics.JobQueueDepth.Set(float64(depth))
	logging.Info("Job %s queued (mode=%s, window=%.3f-%.3f, queue=%d)",
		job.ID, s.mode, s.window.Start, s.window.End, depth)

	return snap, nil
}

// Get returns a snapshot of job id.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return j.clone(), true
}

// List returns up to limit jobs, newest first. A limit <= 0 returns all.
func (m *Manager) List(limit int) []Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.order)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Job, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.jobs[m.order[i]].clone())
	}
	return out
}

// Stats counts jobs by status.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		ByStatus:   make(map[Status]int, len(Statuses)),
		Queued:     len(m.queue),
		InProgress: m.inProgress,
		Total:      len(m.jobs),
	}
	for _, j := range m.jobs {
		s.ByStatus[j.Status]++
	}
	return s
}

// GetStats adapts Stats for the metrics collector.
func (m *Manager) GetStats() metrics.Stats {
	s := m.Stats()
	byStatus := make(map[string]int, len(s.ByStatus))
	for st, n := range s.ByStatus {
		byStatus[string(st)] = n
	}
	return metrics.Stats{JobsByStatus: byStatus, QueueDepth: s.Queued}
}

// Subscribe returns a channel of snapshots for job id. The channel holds
// only the latest snapshot, so slow readers skip intermediate states; it is
// closed after the terminal snapshot. The returned function unsubscribes.
func (m *Manager) Subscribe(id string) (<-chan Job, func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, func() {}, false
	}

	ch := make(chan Job, 1)
	ch <- j.clone()
	if j.Status.Terminal() {
		close(ch)
		return ch, func() {}, true
	}
	m.subs[id] = append(m.subs[id], ch)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			list := m.subs[id]
			for i, c := range list {
				if c == ch {
					m.subs[id] = append(list[:i], list[i+1:]...)
					close(ch)
					break
				}
			}
			if len(m.subs[id]) == 0 {
				delete(m.subs, id)
			}
		})
	}
	return ch, unsubscribe, true
}

// Shutdown stops accepting jobs and waits for running jobs to finish.
// Jobs still queued are failed. When ctx expires first, running jobs are
// cancelled and ctx's error is returned.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.stopping)
	pending := m.queue
	m.queue = nil
	now := time.Now()
	for _, id := range pending {
		j := m.jobs[id]
		j.Error = "job not started before shutdown"
		if j.advance(StatusFailed, now) {
			m.publishLocked(j)
		}
	}
	m.mu.Unlock()
	m.cond.Broadcast()
	metrics.JobQueueDepth.Set(0)

	if len(pending) > 0 {
		logging.Warn("Failed %d queued jobs on shutdown", len(pending))
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		return nil
	case <-ctx.Done():
		logging.Warn("Shutdown deadline reached, cancelling running jobs")
		m.cancel()
		<-done
		return ctx.Err()
	}
}

func (m *Manager) worker(n int) {
	defer m.wg.Done()
	for {
		if m.cfg.Gate != nil && !m.cfg.Gate.Wait(m.stopping) {
			logging.Debug("Job worker %d stopped while held", n)
			return
		}
		id, ok := m.next()
		if !ok {
			logging.Debug("Job worker %d stopped", n)
			return
		}
		m.process(id)
	}
}

// next blocks until a job is queued or the manager closes.
func (m *Manager) next() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return "", false
	}
	id := m.queue[0]
	m.queue[0] = ""
	m.queue = m.queue[1:]
	m.inProgress++
	metrics.JobQueueDepth.Set(float64(len(m.queue)))
	return id, true
}

// update applies fn to job id under the lock and notifies subscribers.
func (m *Manager) update(id string, fn func(j *Job)) Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	fn(j)
	j.UpdatedAt = time.Now()
	m.publishLocked(j)
	return j.clone()
}

// setStatus advances job id to status.
func (m *Manager) setStatus(id string, status Status) {
	m.update(id, func(j *Job) {
		j.advance(status, time.Now())
	})
}

func (m *Manager) publishLocked(j *Job) {
	list := m.subs[j.ID]
	if len(list) == 0 {
		return
	}
	snap := j.clone()
	for _, ch := range list {
		select {
		case <-ch:
		default:
		}
		ch <- snap
		if j.Status.Terminal() {
			close(ch)
		}
	}
	if j.Status.Terminal() {
		delete(m.subs, j.ID)
	}
}

// sortedRoles returns output roles in a stable order for logging.
func sortedRoles(outputs map[string]Output) []string {
	roles := make([]string, 0, len(outputs))
	for r := range outputs {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}
