package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"clip-stacker/internal/logging"
	"clip-stacker/internal/metrics"
)

// Config holds memory monitor configuration
type Config struct {
	// LimitBytes is the soft limit usage is measured against. Zero uses
	// GOMEMLIMIT, and without one the monitor never holds.
	LimitBytes int64
	// PauseAt is the usage ratio at which job pickup is held.
	PauseAt float64
	// ResumeAt is the usage ratio below which pickup resumes.
	ResumeAt float64
	// CheckInterval is how often usage is sampled.
	CheckInterval time.Duration
}

// DefaultConfig returns the monitor defaults
func DefaultConfig() Config {
	return Config{
		PauseAt:       0.85,
		ResumeAt:      0.7,
		CheckInterval: 5 * time.Second,
	}
}

// Monitor samples heap usage and holds job pickup while it is critical.
type Monitor struct {
	config Config
	limit  int64
	sample func() uint64

	mu      sync.Mutex
	current uint64
	paused  bool
	resumed chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a new memory monitor
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if limit == 0 {
		logging.Info("Memory monitor: no limit configured, job pickup is never held")
	} else {
		logging.Info("Memory monitor: limit %s, hold at %.0f%%, resume at %.0f%%",
			formatBytes(limit), config.PauseAt*100, config.ResumeAt*100)
	}

	return &Monitor{
		config:  config,
		limit:   limit,
		sample:  heapAlloc,
		resumed: make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start begins sampling. It does nothing without a limit.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends sampling and releases anything waiting.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) check() {
	alloc := m.sample()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc

	switch {
	case !m.paused && usage >= m.config.PauseAt:
		logging.Warn("Memory critical (%.1f%% of limit), holding job pickup", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case m.paused && usage < m.config.ResumeAt:
		logging.Info("Memory recovered (%.1f%% of limit), resuming job pickup", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resumed)
		m.resumed = make(chan struct{})
	}
}

// Wait blocks while pickup is held. It returns false if stop or the
// monitor closes first.
func (m *Monitor) Wait(stop <-chan struct{}) bool {
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return true
	}
	resumed := m.resumed
	m.mu.Unlock()

	select {
	case <-resumed:
		return true
	case <-stop:
		return false
	case <-m.stop:
		return false
	}
}

// Paused reports whether pickup is currently held.
func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Usage returns the last sampled heap size and the limit.
func (m *Monitor) Usage() (current uint64, limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.limit
}
