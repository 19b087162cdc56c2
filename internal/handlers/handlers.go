package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"clip-stacker/internal/jobs"
)

// JobService is the job manager as seen by the HTTP layer.
type JobService interface {
	Submit(req jobs.Request) (jobs.Job, error)
	Get(id string) (jobs.Job, bool)
	List(limit int) []jobs.Job
	Stats() jobs.Stats
	Subscribe(id string) (<-chan jobs.Job, func(), bool)
}

// CredentialStats reports active credentials by class.
type CredentialStats interface {
	Stats() map[string]int
}

// Options configures Handlers.
type Options struct {
	// OutputDir is the publish directory; downloads outside it are refused.
	OutputDir string
	// Credentials is optional and only feeds the health report.
	Credentials CredentialStats
	// Ready reports why the service cannot run jobs, nil when it can.
	Ready func() error
}

// Handlers serves the job API.
type Handlers struct {
	jobs        JobService
	credentials CredentialStats
	outputDir   string
	ready       func() error
	started     time.Time
	upgrader    websocket.Upgrader
}

// New creates Handlers backed by svc.
func New(svc JobService, opts Options) *Handlers {
	ready := opts.Ready
	if ready == nil {
		ready = func() error { return nil }
	}
	return &Handlers{
		jobs:        svc,
		credentials: opts.Credentials,
		outputDir:   opts.OutputDir,
		ready:       ready,
		started:     time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}
