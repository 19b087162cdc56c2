package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCollect(t *testing.T) {
	provider := StatsProviderFunc(func() Stats {
		return Stats{
			JobsByStatus:      map[string]int{"queued": 3, "completed": 7},
			QueueDepth:        3,
			CredentialsActive: map[string]int{"cookies": 2},
		}
	})

	c := NewCollector(provider, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(JobsByStatus.WithLabelValues("queued")); got != 3 {
		t.Errorf("queued gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(JobsByStatus.WithLabelValues("completed")); got != 7 {
		t.Errorf("completed gauge = %v, want 7", got)
	}
	if got := testutil.ToFloat64(JobsByStatus.WithLabelValues("failed")); got != 0 {
		t.Errorf("failed gauge = %v, want 0", got)
	}
	if got := testutil.ToFloat64(JobQueueDepth); got != 3 {
		t.Errorf("queue depth = %v, want 3", got)
	}
	if got := testutil.ToFloat64(CredentialsActive.WithLabelValues("cookies")); got != 2 {
		t.Errorf("active cookies = %v, want 2", got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	// Must not panic
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	calls := make(chan struct{}, 4)
	provider := StatsProviderFunc(func() Stats {
		select {
		case calls <- struct{}{}:
		default:
		}
		return Stats{}
	})

	c := NewCollector(provider, 10*time.Millisecond)
	c.Start()
	defer c.Stop()

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("collector did not collect on start")
	}
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()

	if n := testutil.CollectAndCount(DownloadAttemptsTotal); n < len(strategies)*len(attemptOutcomes) {
		t.Errorf("DownloadAttemptsTotal series = %d, want at least %d", n, len(strategies)*len(attemptOutcomes))
	}
	if n := testutil.CollectAndCount(JobsByStatus); n < len(jobStatuses) {
		t.Errorf("JobsByStatus series = %d, want at least %d", n, len(jobStatuses))
	}
}
