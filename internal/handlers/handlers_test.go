package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"clip-stacker/internal/jobs"
)

// fakeJobs is an in-memory JobService.
type fakeJobs struct {
	mu        sync.Mutex
	jobs      map[string]jobs.Job
	submitted []jobs.Request
	submitErr error
	updates   chan jobs.Job
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]jobs.Job)}
}

func (f *fakeJobs) Submit(req jobs.Request) (jobs.Job, error) {
	if err := req.Validate(300); err != nil {
		return jobs.Job{}, err
	}
	if f.submitErr != nil {
		return jobs.Job{}, f.submitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	j := jobs.Job{ID: "job-1", Status: jobs.StatusQueued}
	f.jobs[j.ID] = j
	return j, nil
}

func (f *fakeJobs) Get(id string) (jobs.Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	return j, ok
}

func (f *fakeJobs) List(limit int) []jobs.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []jobs.Job
	for _, j := range f.jobs {
		if len(out) == limit {
			break
		}
		out = append(out, j)
	}
	return out
}

func (f *fakeJobs) Stats() jobs.Stats {
	return jobs.Stats{ByStatus: map[jobs.Status]int{jobs.StatusQueued: 2, jobs.StatusCompleted: 1}, Queued: 2, Total: 3}
}

func (f *fakeJobs) Subscribe(id string) (<-chan jobs.Job, func(), bool) {
	if _, ok := f.Get(id); !ok || f.updates == nil {
		return nil, func() {}, false
	}
	return f.updates, func() {}, true
}

func (f *fakeJobs) put(j jobs.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = j
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
}

func TestCreateJob(t *testing.T) {
	svc := newFakeJobs()
	h := New(svc, Options{})

	body := `{"mainSource":"https://a.test/A.mp4","backgroundSource":"https://b.test/B.mp4","startSeconds":30,"endSeconds":"45"}`
	rec := httptest.NewRecorder()
	h.CreateJob(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp CreateJobResponse
	decodeBody(t, rec, &resp)
	if resp.JobID != "job-1" || resp.Status != jobs.StatusQueued || resp.StatusURL != "/api/jobs/job-1" {
		t.Errorf("response = %+v", resp)
	}
	if got := svc.submitted[0].EndSeconds.Value; got != 45 {
		t.Errorf("numeric string not parsed, EndSeconds = %v", got)
	}
}

func TestCreateJobValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{name: "start after end", body: `{"mainSource":"A","backgroundSource":"B","startSeconds":50,"endSeconds":40}`, wantError: "startSeconds must be less than endSeconds"},
		{name: "missing source", body: `{"mainSource":"A","startSeconds":1,"endSeconds":4}`, wantError: "backgroundSource is required"},
		{name: "not a number", body: `{"mainSource":"A","backgroundSource":"B","startSeconds":"abc","endSeconds":4}`, wantError: "startSeconds must be a number"},
		{name: "malformed JSON", body: `{"mainSource":`, wantError: "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeJobs()
			rec := httptest.NewRecorder()
			New(svc, Options{}).CreateJob(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(tt.body)))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var resp map[string]string
			decodeBody(t, rec, &resp)
			if !strings.Contains(resp["error"], tt.wantError) {
				t.Errorf("error = %q, want %q", resp["error"], tt.wantError)
			}
			if len(svc.jobs) != 0 {
				t.Error("no job should be created")
			}
		})
	}
}

func TestCreateJobShuttingDown(t *testing.T) {
	svc := newFakeJobs()
	svc.submitErr = jobs.ErrShuttingDown
	body := `{"mainSource":"A","backgroundSource":"B","startSeconds":1,"endSeconds":4}`

	rec := httptest.NewRecorder()
	New(svc, Options{}).CreateJob(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	svc.submitErr = errors.New("disk on fire")
	rec = httptest.NewRecorder()
	New(svc, Options{}).CreateJob(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body)))
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "fire") {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetJob(t *testing.T) {
	svc := newFakeJobs()
	svc.put(jobs.Job{
		ID:      "abc",
		Status:  jobs.StatusCompleted,
		Outputs: map[string]jobs.Output{"combined": {Path: "/secret/combined.mp4", URL: "/outputs/abc/combined.mp4", Size: 10}},
	})
	h := New(svc, Options{})

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/jobs/abc", nil), map[string]string{"id": "abc"})
	rec := httptest.NewRecorder()
	h.GetJob(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]interface{}
	decodeBody(t, rec, &got)
	if got["status"] != "completed" {
		t.Errorf("status = %v", got["status"])
	}
	outputs := got["outputs"].(map[string]interface{})
	combined := outputs["combined"].(map[string]interface{})
	if combined["url"] != "/outputs/abc/combined.mp4" {
		t.Errorf("combined = %v", combined)
	}
	if strings.Contains(rec.Body.String(), "/secret/") {
		t.Error("local paths must not be exposed")
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), map[string]string{"id": "nope"})
	rec = httptest.NewRecorder()
	h.GetJob(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown job status = %d, want 404", rec.Code)
	}
}

func TestListJobs(t *testing.T) {
	svc := newFakeJobs()
	h := New(svc, Options{})

	rec := httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	var resp ListJobsResponse
	decodeBody(t, rec, &resp)
	if resp.Count != 0 || resp.Jobs == nil {
		t.Errorf("empty list = %+v (jobs must encode as [])", resp)
	}

	svc.put(jobs.Job{ID: "a"})
	svc.put(jobs.Job{ID: "b"})
	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=1", nil))
	decodeBody(t, rec, &resp)
	if resp.Count != 1 {
		t.Errorf("Count = %d, want 1", resp.Count)
	}

	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
}

func TestDownloadOutput(t *testing.T) {
	outputDir := t.TempDir()
	path := filepath.Join(outputDir, "abc", "combined.mp4")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("video bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := newFakeJobs()
	svc.put(jobs.Job{ID: "abc", Status: jobs.StatusCompleted, Outputs: map[string]jobs.Output{
		"combined": {Path: path},
		"audio":    {Path: "/etc/passwd"},
	}})
	svc.put(jobs.Job{ID: "busy", Status: jobs.StatusComposing})
	h := New(svc, Options{OutputDir: outputDir})

	serve := func(id, role string) *httptest.ResponseRecorder {
		req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/jobs/"+id+"/download/"+role, nil),
			map[string]string{"id": id, "role": role})
		rec := httptest.NewRecorder()
		h.DownloadOutput(rec, req)
		return rec
	}

	rec := serve("abc", "combined")
	if rec.Code != http.StatusOK || rec.Body.String() != "video bytes" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="abc-combined.mp4"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	tests := []struct {
		id, role string
		want     int
	}{
		{"missing", "combined", http.StatusNotFound},
		{"busy", "combined", http.StatusConflict},
		{"abc", "thumbnail", http.StatusNotFound},
		{"abc", "audio", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := serve(tt.id, tt.role); rec.Code != tt.want {
			t.Errorf("%s/%s status = %d, want %d", tt.id, tt.role, rec.Code, tt.want)
		}
	}
}

func TestIsSubPath(t *testing.T) {
	tests := []struct {
		parent, child string
		want          bool
	}{
		{"/data/outputs", "/data/outputs/a/b.mp4", true},
		{"/data/outputs", "/data/outputs", true},
		{"/data/outputs", "/data/outputs-evil/x", false},
		{"/data/outputs", "/data/outputs/../secret", false},
		{"/data/outputs", "/etc/passwd", false},
	}
	for _, tt := range tests {
		if got := isSubPath(tt.parent, tt.child); got != tt.want {
			t.Errorf("isSubPath(%q, %q) = %v, want %v", tt.parent, tt.child, got, tt.want)
		}
	}
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSONError(rec, "bad things", http.StatusTeapot)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"error":"bad things"`)) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
