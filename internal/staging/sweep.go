package staging

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"clip-stacker/internal/logging"
	"clip-stacker/internal/metrics"
)

// Sweep removes regular files in dir last modified before now-olderThan.
// It catches work files orphaned by a crash. The number removed is returned.
func Sweep(dir string, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		p := filepath.Join(dir, entry.Name())
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logging.Warn("Sweeper: could not remove %s: %v", p, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		metrics.StagingOrphansSwept.Add(float64(removed))
	}
	return removed, nil
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func StartSweeper(ctx context.Context, dir string, interval, maxAge time.Duration) {
	if interval <= 0 || maxAge <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := Sweep(dir, maxAge)
				if err != nil {
					logging.Warn("Sweeper: %v", err)
					continue
				}
				if n > 0 {
					logging.Info("Sweeper: removed %d orphaned work file(s) from %s", n, dir)
				}
			}
		}
	}()
}
