package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"clip-stacker/internal/jobs"
)

func TestJobEventsStreamsUntilTerminal(t *testing.T) {
	svc := newFakeJobs()
	svc.put(jobs.Job{ID: "abc", Status: jobs.StatusQueued})
	svc.updates = make(chan jobs.Job, 3)
	svc.updates <- jobs.Job{ID: "abc", Status: jobs.StatusDownloading}
	svc.updates <- jobs.Job{ID: "abc", Status: jobs.StatusCompleted}
	close(svc.updates)

	r := mux.NewRouter()
	r.HandleFunc("/api/jobs/{id}/ws", New(svc, Options{}).JobEvents)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/jobs/abc/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var got []jobs.Status
	for {
		var j jobs.Job
		if err := conn.ReadJSON(&j); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("expected normal closure, got %v", err)
			}
			break
		}
		got = append(got, j.Status)
	}

	if len(got) != 2 || got[0] != jobs.StatusDownloading || got[1] != jobs.StatusCompleted {
		t.Errorf("statuses = %v", got)
	}
}

func TestJobEventsUnknownJob(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/jobs/{id}/ws", New(newFakeJobs(), Options{}).JobEvents)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/jobs/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("response = %v", resp)
	}
}
