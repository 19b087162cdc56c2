package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clip-stacker/internal/database"
)

type memoryRepo struct {
	mu        sync.Mutex
	records   []Record
	revoked   []string
	revokeErr error
	listErr   error
}

func (m *memoryRepo) List(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memoryRepo) Revoke(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked = append(m.revoked, id)
	return m.revokeErr
}

func records(ids ...string) []Record {
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, Record{ID: id, Class: ClassCookies, Payload: []byte("payload-" + id), State: StateActive})
	}
	return out
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("cookie jar"))
	b := Fingerprint([]byte("cookie jar"))
	c := Fingerprint([]byte("other jar"))

	if a != b {
		t.Error("identical payloads should share a fingerprint")
	}
	if a == c {
		t.Error("different payloads should not collide")
	}
	if len(a) != 32 {
		t.Errorf("fingerprint length = %d, want 32 hex chars", len(a))
	}
}

func TestPoolAcquireRoundRobin(t *testing.T) {
	pool := NewPool(&memoryRepo{records: records("a", "b", "c")})
	if err := pool.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	var got []string
	for i := 0; i < 4; i++ {
		rec, ok := pool.Acquire(ClassCookies)
		if !ok {
			t.Fatal("Acquire() returned false")
		}
		got = append(got, rec.ID)
	}

	want := []string{"a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("acquire order = %v, want %v", got, want)
		}
	}
}

func TestPoolAcquireClassAndExclude(t *testing.T) {
	recs := records("a", "b")
	recs = append(recs, Record{ID: "x", Class: "tokens", Payload: []byte("t")})
	pool := NewPool(&memoryRepo{records: recs})
	_ = pool.Load(context.Background())

	if _, ok := pool.Acquire("missing"); ok {
		t.Error("Acquire(missing class) should fail")
	}

	rec, ok := pool.Acquire("tokens")
	if !ok || rec.ID != "x" {
		t.Errorf("Acquire(tokens) = %v, %v", rec.ID, ok)
	}

	rec, ok = pool.Acquire(ClassCookies, "a")
	if !ok || rec.ID != "b" {
		t.Errorf("Acquire with exclude = %v, %v; want b", rec.ID, ok)
	}

	if _, ok := pool.Acquire(ClassCookies, "a", "b"); ok {
		t.Error("Acquire should fail when all candidates are excluded")
	}

	if pool.Active("") != 3 {
		t.Errorf("Active(\"\") = %d, want 3", pool.Active(""))
	}
}

func TestPoolRevoke(t *testing.T) {
	repo := &memoryRepo{records: records("a", "b")}
	pool := NewPool(repo)
	_ = pool.Load(context.Background())

	pool.Revoke(context.Background(), "a")
	pool.Revoke(context.Background(), "a")

	if !pool.IsRevoked("a") {
		t.Error("IsRevoked(a) = false")
	}
	if len(repo.revoked) != 1 {
		t.Errorf("repository Revoke called %d times, want 1", len(repo.revoked))
	}
	for i := 0; i < 3; i++ {
		rec, ok := pool.Acquire(ClassCookies)
		if !ok || rec.ID != "b" {
			t.Fatalf("Acquire() = %v, %v; want b", rec.ID, ok)
		}
	}

	// Revoked credentials stay out even if the store still lists them.
	_ = pool.Load(context.Background())
	if pool.Active(ClassCookies) != 1 {
		t.Errorf("Active() after reload = %d, want 1", pool.Active(ClassCookies))
	}
}

func TestPoolRevokeStoreFailureKeepsRevoked(t *testing.T) {
	repo := &memoryRepo{records: records("a"), revokeErr: errors.New("read-only")}
	pool := NewPool(repo)
	_ = pool.Load(context.Background())

	pool.Revoke(context.Background(), "a")

	if _, ok := pool.Acquire(ClassCookies); ok {
		t.Error("credential should stay revoked despite store failure")
	}
}

func waitActive(t *testing.T, p *Pool, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.Active("") != want {
		if time.Now().After(deadline) {
			t.Fatalf("Active() = %d, want %d", p.Active(""), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPoolWatchReloads(t *testing.T) {
	repo := &memoryRepo{records: records("a", "b")}
	p := NewPool(repo)
	if err := p.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.Revoke(context.Background(), "a")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reload := make(chan struct{})
	go p.Watch(ctx, 0, reload)

	repo.mu.Lock()
	repo.records = append(repo.records, records("c")...)
	repo.mu.Unlock()
	reload <- struct{}{}
	waitActive(t, p, 2)

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		rec, ok := p.Acquire(ClassCookies)
		if !ok {
			t.Fatal("Acquire() found nothing")
		}
		seen[rec.ID] = true
	}
	if seen["a"] || !seen["b"] || !seen["c"] {
		t.Errorf("acquired %v, want b and c only", seen)
	}

	repo.mu.Lock()
	repo.listErr = errors.New("store offline")
	repo.mu.Unlock()
	reload <- struct{}{}
	// The second send is received only after the first reload finished.
	reload <- struct{}{}
	if n := p.Active(""); n != 2 {
		t.Errorf("Active() after failed reload = %d, want 2", n)
	}

	repo.mu.Lock()
	repo.listErr = nil
	repo.records = records("b")
	repo.mu.Unlock()
	reload <- struct{}{}
	waitActive(t, p, 1)
}

func TestPoolWatchTicker(t *testing.T) {
	repo := &memoryRepo{}
	p := NewPool(repo)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Watch(ctx, 10*time.Millisecond, nil)

	repo.mu.Lock()
	repo.records = records("x")
	repo.mu.Unlock()
	waitActive(t, p, 1)
}

func TestPoolConcurrentRevoke(t *testing.T) {
	repo := &memoryRepo{records: records("a", "b", "c")}
	pool := NewPool(repo)
	_ = pool.Load(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Revoke(context.Background(), "b")
			pool.Acquire(ClassCookies)
		}()
	}
	wg.Wait()

	if len(repo.revoked) != 1 {
		t.Errorf("repository Revoke called %d times, want 1", len(repo.revoked))
	}
	if pool.Stats()[ClassCookies] != 2 {
		t.Errorf("Stats() = %v, want 2 cookies", pool.Stats())
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFileRepository(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.txt"), "default secret")
	writeFile(t, filepath.Join(dir, "cookies", "one.cookies"), "jar one")
	writeFile(t, filepath.Join(dir, "cookies", "two.cookies"), "jar two")
	writeFile(t, filepath.Join(dir, "cookies", "dup.cookies"), "jar one")
	writeFile(t, filepath.Join(dir, "cookies", "empty.cookies"), "  \n")
	writeFile(t, filepath.Join(dir, ".hidden"), "ignored")

	repo := NewFileRepository(dir)
	recs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	classes := map[string]int{}
	for _, r := range recs {
		classes[r.Class]++
	}
	if classes[DefaultClass] != 1 || classes[ClassCookies] != 2 || len(recs) != 3 {
		t.Fatalf("unexpected records by class: %v (%d total)", classes, len(recs))
	}

	id := Fingerprint([]byte("jar one"))
	if err := repo.Revoke(context.Background(), id); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	for _, name := range []string{"one.cookies", "dup.cookies"} {
		if _, err := os.Stat(filepath.Join(dir, "cookies", name)); !os.IsNotExist(err) {
			t.Errorf("%s should be deleted on revoke", name)
		}
	}
	if err := repo.Revoke(context.Background(), id); err != nil {
		t.Errorf("second Revoke() error = %v", err)
	}

	recs, _ = repo.List(context.Background())
	if len(recs) != 2 {
		t.Errorf("records after revoke = %d, want 2", len(recs))
	}
}

func TestFileRepositoryMissingDir(t *testing.T) {
	recs, err := NewFileRepository(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	if err != nil || len(recs) != 0 {
		t.Errorf("List(missing) = %v, %v; want empty, nil", recs, err)
	}
}

func TestSQLiteRepository(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(t.TempDir(), "credentials.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	repo := NewSQLiteRepository(db)

	rec, added, err := repo.Add(ctx, ClassCookies, []byte("jar"))
	if err != nil || !added {
		t.Fatalf("Add() = %v, %v", added, err)
	}
	if _, added, _ := repo.Add(ctx, ClassCookies, []byte("jar")); added {
		t.Error("duplicate Add should report false")
	}
	if _, _, err := repo.Add(ctx, "", []byte("other")); err != nil {
		t.Fatal(err)
	}

	pool := NewPool(repo)
	if err := pool.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if pool.Active(ClassCookies) != 1 || pool.Active(DefaultClass) != 1 {
		t.Errorf("pool stats = %v", pool.Stats())
	}

	pool.Revoke(ctx, rec.ID)

	active, _ := repo.List(ctx)
	if len(active) != 1 {
		t.Errorf("active after revoke = %d, want 1", len(active))
	}
	all, _ := repo.ListAll(ctx)
	if len(all) != 2 {
		t.Errorf("all records = %d, want 2", len(all))
	}

	if err := repo.Revoke(ctx, "unknown"); err != nil {
		t.Errorf("Revoke(unknown) = %v, want nil", err)
	}
	if err := repo.RevokeStrict(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RevokeStrict(unknown) = %v, want ErrNotFound", err)
	}
}
