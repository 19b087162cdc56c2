package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"clip-stacker/internal/credentials"
	"clip-stacker/internal/filesystem"
	"clip-stacker/internal/logging"
	"clip-stacker/internal/metrics"
	"clip-stacker/internal/retry"
	"clip-stacker/internal/transcoder"
)

// DefaultOrder is the strategy order used when none is configured.
var DefaultOrder = []string{"direct", "headless", "scrape", "credential", "proxy"}

// Resolver tries strategies in order until one materializes the source.
type Resolver struct {
	strategies []Strategy
	retry      retry.Config
}

// NewResolver creates a resolver. Every strategy attempt is wrapped in the
// retry engine configured by cfg; the classifier is supplied here.
func NewResolver(cfg retry.Config, strategies ...Strategy) *Resolver {
	cfg.Op = "download"
	cfg.Retryable = func(err error) bool { return Classify(err) == KindRetryable }
	return &Resolver{strategies: strategies, retry: cfg}
}

// Strategies returns the configured strategy names in order.
func (r *Resolver) Strategies() []string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Download materializes src at dest. On success dest exists and is
// non-empty. The attempt trail is returned in both cases; when every
// strategy fails the error is a *FatalError.
func (r *Resolver) Download(ctx context.Context, src Source, dest string) ([]Attempt, error) {
	log := logging.With("source", src.String())
	var attempts []Attempt

	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		if reason := s.Prerequisite(src); reason != "" {
			log.Debug("Skipping %s: %s", s.Name(), reason)
			metrics.DownloadStrategySkipped.WithLabelValues(s.Name()).Inc()
			attempts = append(attempts, Attempt{Strategy: s.Name(), Outcome: OutcomeSkipped, Error: reason})
			continue
		}

		rot, rotating := s.(Rotator)
		if !rotating {
			a := r.attempt(ctx, s, src, dest, Lease{})
			attempts = append(attempts, a)
			if a.Outcome == OutcomeSuccess {
				return attempts, nil
			}
			continue
		}

		var tried []string
		for {
			lease, ok := rot.Next(tried)
			if !ok {
				if len(tried) == 0 {
					attempts = append(attempts, Attempt{Strategy: s.Name(), Outcome: OutcomeSkipped, Error: "nothing left to rotate"})
				}
				break
			}
			tried = append(tried, lease.ID)

			a, err := r.attemptErr(ctx, s, src, dest, lease)
			attempts = append(attempts, a)
			if err == nil {
				return attempts, nil
			}
			if ctx.Err() != nil || !rot.Done(ctx, lease, err) {
				break
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return attempts, err
	}
	return attempts, &FatalError{Source: src.String(), Attempts: attempts}
}

func (r *Resolver) attempt(ctx context.Context, s Strategy, src Source, dest string, lease Lease) Attempt {
	a, _ := r.attemptErr(ctx, s, src, dest, lease)
	return a
}

// attemptErr runs one strategy with one lease under the retry engine.
func (r *Resolver) attemptErr(ctx context.Context, s Strategy, src Source, dest string, lease Lease) (Attempt, error) {
	log := logging.With("source", src.String(), "strategy", s.Name())
	if lease.ID != "" {
		log = log.With("lease", shortLease(lease.ID))
	}

	start := time.Now()
	tries := 0
	var size int64

	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		tries++
		removeQuietly(dest)

		if err := s.Fetch(ctx, src, dest, lease); err != nil {
			removeQuietly(dest)
			return err
		}

		n, err := filesystem.VerifyNonEmpty(dest)
		if err != nil {
			removeQuietly(dest)
			if errors.Is(err, filesystem.ErrEmpty) || os.IsNotExist(err) {
				return fmt.Errorf("%s: %w", s.Name(), ErrEmptyOutput)
			}
			return err
		}
		size = n
		return nil
	})

	elapsed := time.Since(start)
	outcome := outcomeFor(err)
	metrics.DownloadAttemptsTotal.WithLabelValues(s.Name(), outcome).Inc()
	metrics.DownloadDuration.WithLabelValues(s.Name()).Observe(elapsed.Seconds())

	a := Attempt{
		Strategy: s.Name(),
		Outcome:  outcome,
		Tries:    tries,
		Duration: elapsed,
	}
	if lease.ID != "" {
		a.CredentialID = shortLease(lease.ID)
	}

	if err != nil {
		a.Error = err.Error()
		log.Info("Download attempt failed (%s, %d tries): %v", outcome, tries, err)
		return a, err
	}

	metrics.DownloadBytes.WithLabelValues(s.Name()).Add(float64(size))
	log.Info("Downloaded %d bytes in %v", size, elapsed.Round(time.Millisecond))
	return a, nil
}

func shortLease(id string) string {
	if strings.Contains(id, "://") || len(id) <= 12 {
		return id
	}
	return id[:12]
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Debug("could not remove %s: %v", path, err)
	}
}

// Toolkit holds the shared clients strategies are built from.
type Toolkit struct {
	Fetcher    *Fetcher
	Runner     transcoder.Runner
	FFmpeg     string
	YTDLP      *YTDLP
	Pool       *credentials.Pool
	Proxies    []string
	ChromePath string
}

// Build returns strategies for the given names in order. Unknown names are
// an error.
func (t Toolkit) Build(names []string) ([]Strategy, error) {
	if len(names) == 0 {
		names = DefaultOrder
	}
	fetcher := t.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher()
	}

	var out []Strategy
	seen := make(map[string]bool)
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "direct":
			out = append(out, &Direct{
				YouTube: NewYouTubeClient(fetcher.Client),
				Fetcher: fetcher,
				Runner:  t.Runner,
				FFmpeg:  t.FFmpeg,
			})
		case "headless":
			out = append(out, NewHeadless(t.ChromePath, fetcher))
		case "scrape":
			out = append(out, NewScrape(fetcher))
		case "credential":
			out = append(out, NewCredentialStrategy(t.YTDLP, t.Pool, credentials.ClassCookies))
		case "proxy":
			out = append(out, NewProxyStrategy(t.YTDLP, t.Proxies))
		default:
			return nil, fmt.Errorf("unknown download strategy %q", raw)
		}
	}
	return out, nil
}
