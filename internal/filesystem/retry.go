package filesystem

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"clip-stacker/internal/logging"
	"clip-stacker/internal/metrics"
	"clip-stacker/internal/retry"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for network-mounted volumes
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c RetryConfig) engine(op string) retry.Config {
	return retry.Config{
		Op:          op,
		MaxAttempts: c.MaxRetries + 1,
		BaseDelay:   c.InitialBackoff,
		MaxDelay:    c.MaxBackoff,
		Retryable: func(err error) bool {
			if isStaleError(err) {
				metrics.FilesystemStaleErrors.WithLabelValues(op).Inc()
				return true
			}
			return false
		},
	}
}

// isStaleError checks if an error is an NFS stale file handle error
func isStaleError(err error) bool {
	if err == nil {
		return false
	}

	// ESTALE is errno 116 on Linux
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// StatWithRetry performs os.Stat, retrying stale file handle errors
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	info, err := retry.DoValue(context.Background(), config.engine("stat"), func(context.Context) (os.FileInfo, error) {
		return os.Stat(path)
	})
	if err != nil && isStaleError(err) {
		logging.Warn("Stat failed after %d retries for %s: %v", config.MaxRetries, path, err)
	}
	return info, err
}
