package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv names the environment variable that pins the job worker count.
const OverrideEnv = "JOB_WORKERS"

// MinJobWorkers is the smallest pool ForJobs returns without an override,
// so one slow job never stalls the whole queue.
const MinJobWorkers = 2

// Count returns the worker count for a task type, derived from GOMAXPROCS
// (which follows container CPU limits in Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// limit caps the result; 0 means no cap.
func Count(multiplier float64, limit int) int {
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForJobs returns the size of the job worker pool. Jobs spend most of their
// time waiting on downloads and ffmpeg, so the I/O ratio applies, floored
// at MinJobWorkers. A positive JOB_WORKERS value wins, still capped by
// limit.
func ForJobs(limit int) int {
	if n, ok := override(); ok {
		if limit > 0 && n > limit {
			return limit
		}
		return n
	}

	n := ForIO(limit)
	if n < MinJobWorkers {
		n = MinJobWorkers
	}
	return n
}

func override() (int, bool) {
	v := os.Getenv(OverrideEnv)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
