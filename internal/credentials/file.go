package credentials

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"clip-stacker/internal/logging"
)

// FileRepository reads credentials from a directory. Files directly inside
// the directory belong to DefaultClass; files in a subdirectory belong to the
// class named after it. Revoking a credential deletes its file.
type FileRepository struct {
	dir string

	mu    sync.Mutex
	paths map[string][]string
}

// NewFileRepository creates a repository rooted at dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir, paths: make(map[string][]string)}
}

// List implements Repository.
func (r *FileRepository) List(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials directory: %w", err)
	}

	paths := make(map[string][]string)
	seen := make(map[string]bool)
	var records []Record

	add := func(class, path string) {
		payload, err := os.ReadFile(path)
		if err != nil {
			logging.Warn("Skipping unreadable credential %s: %v", path, err)
			return
		}
		if len(bytes.TrimSpace(payload)) == 0 {
			return
		}
		id := Fingerprint(payload)
		paths[id] = append(paths[id], path)
		if seen[id] {
			return
		}
		seen[id] = true
		records = append(records, Record{ID: id, Class: class, Payload: payload, Source: path, State: StateActive})
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(r.dir, name)

		switch {
		case entry.Type().IsRegular():
			add(DefaultClass, full)
		case entry.IsDir():
			children, err := os.ReadDir(full)
			if err != nil {
				logging.Warn("Skipping credential class %s: %v", name, err)
				continue
			}
			for _, child := range children {
				if strings.HasPrefix(child.Name(), ".") || !child.Type().IsRegular() {
					continue
				}
				add(name, filepath.Join(full, child.Name()))
			}
		}
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Source < records[j].Source })

	r.mu.Lock()
	r.paths = paths
	r.mu.Unlock()

	return records, nil
}

// Revoke implements Repository by deleting every file holding the payload.
func (r *FileRepository) Revoke(ctx context.Context, id string) error {
	r.mu.Lock()
	paths := r.paths[id]
	delete(r.paths, id)
	r.mu.Unlock()

	var firstErr error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("failed to delete credential file: %w", err)
		}
	}
	return firstErr
}
