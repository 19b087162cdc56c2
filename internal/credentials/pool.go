package credentials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clip-stacker/internal/logging"
	"clip-stacker/internal/metrics"
)

// Pool is the in-memory view of the active credentials. It is safe for
// concurrent use by every download worker.
type Pool struct {
	repo Repository

	mu      sync.Mutex
	records []Record
	revoked map[string]bool
	cursor  map[string]int
}

// NewPool creates an empty pool backed by repo. Call Load to populate it.
func NewPool(repo Repository) *Pool {
	return &Pool{
		repo:    repo,
		revoked: make(map[string]bool),
		cursor:  make(map[string]int),
	}
}

// Load replaces the pool contents with the repository's active credentials.
// Credentials revoked during this process lifetime are never reloaded.
func (p *Pool) Load(ctx context.Context) error {
	records, err := p.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	p.mu.Lock()
	p.records = p.records[:0]
	for _, rec := range records {
		if rec.State == StateRevoked || p.revoked[rec.ID] {
			continue
		}
		rec.State = StateActive
		p.records = append(p.records, rec)
	}
	p.publishLocked()
	count := len(p.records)
	p.mu.Unlock()

	logging.Info("Loaded %d credential(s)", count)
	return nil
}

// Watch reloads the pool every interval and whenever reload fires, until ctx
// is done. A failed reload keeps the previous contents. A zero interval
// disables the ticker.
func (p *Pool) Watch(ctx context.Context, interval time.Duration, reload <-chan struct{}) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-reload:
			logging.Info("Reloading credentials on request")
		}
		if err := p.Load(ctx); err != nil {
			logging.Warn("Credential reload failed, keeping %d loaded: %v", p.Active(""), err)
		}
	}
}

// Acquire returns the next active credential of class in round-robin order,
// skipping the ids in exclude. An empty class matches every credential.
func (p *Pool) Acquire(class string, exclude ...string) (Record, bool) {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var candidates []Record
	for _, rec := range p.records {
		if class != "" && rec.Class != class {
			continue
		}
		if skip[rec.ID] {
			continue
		}
		candidates = append(candidates, rec)
	}
	if len(candidates) == 0 {
		return Record{}, false
	}

	i := p.cursor[class] % len(candidates)
	p.cursor[class] = i + 1

	rec := candidates[i]
	rec.Payload = append([]byte(nil), rec.Payload...)
	return rec, true
}

// Revoke retires id permanently. It is idempotent. The backing record is
// removed best-effort; failures are logged and do not resurrect the
// credential.
func (p *Pool) Revoke(ctx context.Context, id string) {
	p.mu.Lock()
	if p.revoked[id] {
		p.mu.Unlock()
		return
	}
	p.revoked[id] = true

	class := ""
	kept := p.records[:0]
	for _, rec := range p.records {
		if rec.ID == id {
			class = rec.Class
			continue
		}
		kept = append(kept, rec)
	}
	p.records = kept
	p.publishLocked()
	p.mu.Unlock()

	if class != "" {
		metrics.CredentialsRevokedTotal.WithLabelValues(class).Inc()
	}
	logging.Warn("Credential %s revoked after authentication failure", shortID(id))

	if err := p.repo.Revoke(ctx, id); err != nil {
		logging.Error("Failed to remove revoked credential %s from store: %v", shortID(id), err)
	}
}

// IsRevoked reports whether id has been revoked by this pool.
func (p *Pool) IsRevoked(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revoked[id]
}

// Active returns the number of active credentials of class ("" for all).
func (p *Pool) Active(class string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, rec := range p.records {
		if class == "" || rec.Class == class {
			n++
		}
	}
	return n
}

// Stats returns active counts by class.
func (p *Pool) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.countsLocked()
}

func (p *Pool) countsLocked() map[string]int {
	counts := make(map[string]int)
	for _, rec := range p.records {
		counts[rec.Class]++
	}
	return counts
}

func (p *Pool) publishLocked() {
	metrics.CredentialsActive.Reset()
	for class, n := range p.countsLocked() {
		metrics.CredentialsActive.WithLabelValues(class).Set(float64(n))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
