package download

import (
	"context"

	"clip-stacker/internal/credentials"
)

// CredentialStrategy runs yt-dlp with cookie jars from the credential pool.
// A credential that fails authentication is revoked and the next one is
// tried until the pool is exhausted.
type CredentialStrategy struct {
	ytdlp   *YTDLP
	pool    *credentials.Pool
	classes []string
}

// NewCredentialStrategy creates the credential strategy for class.
// Unclassified credentials are used after class is exhausted.
func NewCredentialStrategy(ytdlp *YTDLP, pool *credentials.Pool, class string) *CredentialStrategy {
	if class == "" {
		class = credentials.ClassCookies
	}
	classes := []string{class}
	if class != credentials.DefaultClass {
		classes = append(classes, credentials.DefaultClass)
	}
	return &CredentialStrategy{ytdlp: ytdlp, pool: pool, classes: classes}
}

// Name implements Strategy.
func (s *CredentialStrategy) Name() string { return "credential" }

// Prerequisite implements Strategy.
func (s *CredentialStrategy) Prerequisite(src Source) string {
	if s.ytdlp == nil || !s.ytdlp.Available {
		return "yt-dlp not available"
	}
	if s.pool == nil {
		return "no active credentials"
	}
	for _, class := range s.classes {
		if s.pool.Active(class) > 0 {
			return ""
		}
	}
	return "no active credentials"
}

// Next implements Rotator.
func (s *CredentialStrategy) Next(tried []string) (Lease, bool) {
	for _, class := range s.classes {
		if rec, ok := s.pool.Acquire(class, tried...); ok {
			return Lease{ID: rec.ID, Value: rec.Payload}, true
		}
	}
	return Lease{}, false
}

// Done implements Rotator. Only authentication failures move on to the
// next credential; anything else falls through to the next strategy.
func (s *CredentialStrategy) Done(ctx context.Context, lease Lease, err error) bool {
	if err == nil || Classify(err) != KindAuth {
		return false
	}
	s.pool.Revoke(ctx, lease.ID)
	return true
}

// Fetch implements Strategy.
func (s *CredentialStrategy) Fetch(ctx context.Context, src Source, dest string, lease Lease) error {
	cookies, err := writeSecret(dest, lease.ID, lease.Value)
	if err != nil {
		return err
	}
	defer removeQuietly(cookies)

	return s.ytdlp.Download(ctx, src, dest, Options{CookiesPath: cookies})
}
