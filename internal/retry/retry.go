// Package retry runs operations with bounded, jittered exponential backoff.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"clip-stacker/internal/logging"
	"clip-stacker/internal/metrics"
)

// Config configures retry behavior
type Config struct {
	// Op labels metrics and log lines (e.g. "download", "stat").
	Op string
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
	// AttemptTimeout bounds each attempt. A timed out attempt counts
	// against the budget. Zero means no per-attempt bound.
	AttemptTimeout time.Duration
	// Retryable decides whether a failed attempt may be retried.
	// Nil treats every non-permanent error as retryable.
	Retryable func(error) bool
	// NonIdempotent marks operations that are unsafe to repeat. They run
	// once unless AllowNonIdempotentRetry is also set.
	NonIdempotent           bool
	AllowNonIdempotentRetry bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)

	// jitter returns a factor in [0.5, 1.0). Tests replace it.
	jitter func() float64
}

// DefaultConfig returns the defaults used for network operations.
func DefaultConfig() Config {
	return Config{
		Op:          "default",
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Do stops retrying immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Backoff returns the wait after the given failed attempt (1-based):
// base * 2^(attempt-1) * jitter, capped at max when max > 0.
func Backoff(base, max time.Duration, attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if max > 0 && d >= max {
			d = max
			break
		}
	}
	d = time.Duration(float64(d) * jitter)
	if max > 0 && d > max {
		d = max
	}
	return d
}

func defaultJitter() float64 {
	return 0.5 + rand.Float64()*0.5
}

// Do invokes op until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. The last error is returned.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if cfg.NonIdempotent && !cfg.AllowNonIdempotentRetry {
		maxAttempts = 1
	}
	jitter := cfg.jitter
	if jitter == nil {
		jitter = defaultJitter
	}
	label := cfg.Op
	if label == "" {
		label = "default"
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		v, err := runAttempt(ctx, cfg.AttemptTimeout, op)
		if err == nil {
			if attempt > 1 {
				logging.Debug("%s succeeded on attempt %d/%d", label, attempt, maxAttempts)
				metrics.RetrySuccessTotal.WithLabelValues(label).Inc()
			}
			return v, nil
		}

		lastErr = err
		var p *permanentError
		if errors.As(err, &p) {
			return zero, p.err
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		wait := Backoff(cfg.BaseDelay, cfg.MaxDelay, attempt, jitter())
		metrics.RetryAttemptsTotal.WithLabelValues(label).Inc()
		logging.Debug("%s attempt %d/%d failed: %v (retrying in %v)", label, attempt, maxAttempts, err, wait)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}

		if err := sleep(ctx, wait); err != nil {
			return zero, lastErr
		}
	}

	if maxAttempts > 1 {
		metrics.RetryExhaustedTotal.WithLabelValues(label).Inc()
	}
	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := op(attemptCtx)
	if err == nil && attemptCtx.Err() != nil && ctx.Err() == nil {
		// The operation ignored its context and overran the bound.
		var zero T
		return zero, attemptCtx.Err()
	}
	return v, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
