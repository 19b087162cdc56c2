package metrics

import (
	"time"

	"clip-stacker/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// StatsProviderFunc adapts a function to StatsProvider.
type StatsProviderFunc func() Stats

// GetStats calls f.
func (f StatsProviderFunc) GetStats() Stats { return f() }

// Stats holds the current statistics
type Stats struct {
	JobsByStatus      map[string]int
	QueueDepth        int
	CredentialsActive map[string]int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	for _, status := range jobStatuses {
		JobsByStatus.WithLabelValues(status).Set(float64(stats.JobsByStatus[status]))
	}
	JobQueueDepth.Set(float64(stats.QueueDepth))

	for class, n := range stats.CredentialsActive {
		CredentialsActive.WithLabelValues(class).Set(float64(n))
	}

	logging.Debug("Metrics collected: jobs=%v, queue=%d, credentials=%v",
		stats.JobsByStatus, stats.QueueDepth, stats.CredentialsActive)
}
