package memory

import (
	"runtime/debug"
	"testing"
	"time"
)

func newTestMonitor(limit int64, alloc *uint64) *Monitor {
	m := NewMonitor(Config{LimitBytes: limit, PauseAt: 0.8, ResumeAt: 0.5, CheckInterval: time.Hour})
	m.sample = func() uint64 { return *alloc }
	return m
}

func TestMonitorHoldsAndResumes(t *testing.T) {
	alloc := uint64(10)
	m := newTestMonitor(100, &alloc)

	m.check()
	if m.Paused() {
		t.Fatal("should not hold at 10%")
	}

	alloc = 90
	m.check()
	if !m.Paused() {
		t.Fatal("should hold at 90%")
	}

	released := make(chan bool, 1)
	go func() { released <- m.Wait(nil) }()

	// Between the marks the hold stays in place.
	alloc = 60
	m.check()
	select {
	case <-released:
		t.Fatal("released above ResumeAt")
	case <-time.After(20 * time.Millisecond):
	}

	alloc = 40
	m.check()
	select {
	case ok := <-released:
		if !ok {
			t.Error("Wait() = false after resume")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}

	if current, limit := m.Usage(); current != 40 || limit != 100 {
		t.Errorf("Usage() = %d, %d", current, limit)
	}
}

func TestMonitorWaitStops(t *testing.T) {
	alloc := uint64(95)
	m := newTestMonitor(100, &alloc)
	m.check()

	stop := make(chan struct{})
	close(stop)
	if m.Wait(stop) {
		t.Error("Wait() = true after stop closed")
	}

	m.Stop()
	m.Stop()
	if m.Wait(nil) {
		t.Error("Wait() = true after monitor stopped")
	}
}

func TestMonitorWithoutLimitNeverHolds(t *testing.T) {
	previous := debug.SetMemoryLimit(-1)
	debug.SetMemoryLimit(1<<63 - 1)
	defer debug.SetMemoryLimit(previous)

	m := NewMonitor(DefaultConfig())
	m.Start()
	defer m.Stop()
	if !m.Wait(nil) || m.Paused() {
		t.Error("monitor without a limit should never hold")
	}
}

func TestConfigure(t *testing.T) {
	previous := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(previous)

	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	got := configure(env(map[string]string{"MEMORY_LIMIT": "1073741824", "MEMORY_RATIO": "0.5"}))
	if !got.Configured || got.Source != "MEMORY_LIMIT" || got.GoMemLimit != 536870912 {
		t.Errorf("configure() = %+v", got)
	}
	if limit := debug.SetMemoryLimit(-1); limit != 536870912 {
		t.Errorf("runtime limit = %d", limit)
	}

	got = configure(env(map[string]string{"MEMORY_LIMIT": "1000", "MEMORY_RATIO": "7"}))
	if got.Ratio != DefaultMemoryRatio {
		t.Errorf("out of range ratio used: %+v", got)
	}

	for _, raw := range []string{"", "lots", "-5"} {
		if got := configure(env(map[string]string{"MEMORY_LIMIT": raw})); got.Configured || got.Source != "none" {
			t.Errorf("MEMORY_LIMIT=%q configure() = %+v", raw, got)
		}
	}

	if got := configure(env(map[string]string{"GOMEMLIMIT": "1GiB", "MEMORY_LIMIT": "1000"})); got.Source != "GOMEMLIMIT" {
		t.Errorf("explicit GOMEMLIMIT should win, got %+v", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:        "512 B",
		2048:       "2.0 KiB",
		1 << 30:    "1.0 GiB",
		1536 << 20: "1.5 GiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
