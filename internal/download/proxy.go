package download

import (
	"context"
	"net/url"
	"strings"
	"sync"
)

// ProxyStrategy runs yt-dlp through each configured proxy in turn.
type ProxyStrategy struct {
	ytdlp   *YTDLP
	proxies []string

	mu     sync.Mutex
	cursor int
}

// NewProxyStrategy creates the proxy strategy. Blank and duplicate entries
// are dropped.
func NewProxyStrategy(ytdlp *YTDLP, proxies []string) *ProxyStrategy {
	return &ProxyStrategy{ytdlp: ytdlp, proxies: NormalizeProxyList(proxies)}
}

// NormalizeProxyList trims entries and removes blanks and duplicates while
// keeping order.
func NormalizeProxyList(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, p := range raw {
		v := strings.TrimSpace(p)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Name implements Strategy.
func (s *ProxyStrategy) Name() string { return "proxy" }

// Prerequisite implements Strategy.
func (s *ProxyStrategy) Prerequisite(src Source) string {
	if s.ytdlp == nil || !s.ytdlp.Available {
		return "yt-dlp not available"
	}
	if len(s.proxies) == 0 {
		return "no proxies configured"
	}
	return ""
}

// Next implements Rotator. Proxies are handed out round-robin across
// downloads so load spreads over the list.
func (s *ProxyStrategy) Next(tried []string) (Lease, bool) {
	skip := make(map[string]bool, len(tried))
	for _, t := range tried {
		skip[t] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < len(s.proxies); i++ {
		p := s.proxies[(s.cursor+i)%len(s.proxies)]
		id := redactProxy(p)
		if skip[id] {
			continue
		}
		s.cursor = (s.cursor + i + 1) % len(s.proxies)
		return Lease{ID: id, Value: []byte(p)}, true
	}
	return Lease{}, false
}

// Done implements Rotator. A fatal failure means the source itself is
// unusable, so other proxies are not tried.
func (s *ProxyStrategy) Done(_ context.Context, _ Lease, err error) bool {
	return err != nil && Classify(err) != KindFatal
}

// Fetch implements Strategy.
func (s *ProxyStrategy) Fetch(ctx context.Context, src Source, dest string, lease Lease) error {
	return s.ytdlp.Download(ctx, src, dest, Options{ProxyURL: string(lease.Value)})
}

// redactProxy hides credentials embedded in a proxy URL.
func redactProxy(p string) string {
	u, err := url.Parse(p)
	if err != nil || u.User == nil {
		return p
	}
	return u.Redacted()
}
