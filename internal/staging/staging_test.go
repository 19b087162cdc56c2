package staging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScopePathIsUnique(t *testing.T) {
	dir := t.TempDir()
	s := NewScope(dir, "job1")

	a := s.Path("main", ".mp4")
	b := s.Path("main", ".mp4")

	if a == b {
		t.Fatalf("Path returned the same name twice: %s", a)
	}
	if filepath.Dir(a) != dir {
		t.Errorf("Path() dir = %s, want %s", filepath.Dir(a), dir)
	}
	base := filepath.Base(a)
	if !strings.HasPrefix(base, "job1-") || !strings.HasSuffix(base, "-main.mp4") {
		t.Errorf("unexpected name %q", base)
	}
	if len(s.Paths()) != 2 {
		t.Errorf("Paths() = %d entries, want 2", len(s.Paths()))
	}
}

func TestScopePathSanitizesRole(t *testing.T) {
	s := NewScope(t.TempDir(), "job")
	p := s.Path("../evil role", ".mp4")
	if strings.Contains(filepath.Base(p), "/") || !strings.HasSuffix(p, "-___evil_role.mp4") {
		t.Errorf("role not sanitized: %s", p)
	}
}

func TestScopeCleanupRemovesTrackedAndSiblings(t *testing.T) {
	dir := t.TempDir()
	s := NewScope(dir, "job2")

	video := s.Path("main", ".mp4")
	touch(t, video)
	touch(t, strings.TrimSuffix(video, ".mp4")+".mp4.part")
	touch(t, strings.TrimSuffix(video, ".mp4")+".f137.mp4")

	never := s.Path("background", ".mp4") // allocated but never created

	external := filepath.Join(dir, "cookies.txt")
	touch(t, external)
	s.Track(external)

	unrelated := filepath.Join(dir, "other-job.mp4")
	touch(t, unrelated)

	s.Cleanup()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "other-job.mp4" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("remaining files = %v, want only other-job.mp4", names)
	}
	if _, err := os.Stat(never); !os.IsNotExist(err) {
		t.Error("never-created path should not exist")
	}

	// Second call is a no-op.
	s.Cleanup()
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "old.mp4")
	fresh := filepath.Join(dir, "fresh.mp4")
	touch(t, old)
	touch(t, fresh)
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	n, err := Sweep(dir, time.Hour)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old file should be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh file should remain")
	}
	if _, err := os.Stat(filepath.Join(dir, "sub")); err != nil {
		t.Error("directories are left alone")
	}
}

func TestSweepMissingDir(t *testing.T) {
	n, err := Sweep(filepath.Join(t.TempDir(), "missing"), time.Hour)
	if err != nil || n != 0 {
		t.Errorf("Sweep(missing) = %d, %v; want 0, nil", n, err)
	}
}
