// Package staging names and tracks the intermediate files a job creates in
// the shared work directory, and removes them when the job ends.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"clip-stacker/internal/logging"
	"clip-stacker/internal/metrics"
)

// Scope owns the intermediate files of one job.
type Scope struct {
	dir   string
	jobID string

	mu      sync.Mutex
	counter int
	paths   []string
}

// NewScope returns a scope that allocates paths in dir for jobID.
func NewScope(dir, jobID string) *Scope {
	return &Scope{dir: dir, jobID: jobID}
}

// Dir returns the work directory.
func (s *Scope) Dir() string { return s.dir }

// Path allocates a collision-free path for role with extension ext
// (including the dot) and records it for cleanup. The file is not created.
func (s *Scope) Path(role, ext string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	name := fmt.Sprintf("%s-%d-%d-%s%s", s.jobID, time.Now().UnixNano(), s.counter, sanitize(role), ext)
	p := filepath.Join(s.dir, name)
	s.paths = append(s.paths, p)
	return p
}

// Track records an externally created path for cleanup.
func (s *Scope) Track(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
}

// Paths returns the recorded paths.
func (s *Scope) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Cleanup removes every recorded path together with sibling files sharing
// its stem (partial downloads, per-format fragments). Failures are logged.
// Calling Cleanup more than once is harmless.
func (s *Scope) Cleanup() {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	removed := 0
	for _, p := range paths {
		for _, candidate := range siblings(p) {
			err := os.Remove(candidate)
			switch {
			case err == nil:
				removed++
				metrics.StagingFilesRemoved.Inc()
			case os.IsNotExist(err):
			default:
				metrics.StagingCleanupErrors.Inc()
				logging.Warn("Failed to remove intermediate file %s: %v", candidate, err)
			}
		}
	}

	if removed > 0 {
		logging.Debug("Removed %d intermediate file(s) for job %s", removed, s.jobID)
	}
}

// siblings returns path plus every file whose name starts with the path
// without its extension followed by a dot.
func siblings(path string) []string {
	out := []string{path}
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	matches, err := filepath.Glob(globEscape(stem) + ".*")
	if err != nil {
		return out
	}
	for _, m := range matches {
		if m != path {
			out = append(out, m)
		}
	}
	return out
}

func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sanitize(role string) string {
	role = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, role)
	if role == "" {
		return "file"
	}
	return role
}
