package jobs

import (
	"time"

	"clip-stacker/internal/compose"
	"clip-stacker/internal/download"
)

// Status is the lifecycle state of a job.
type Status string

// Job statuses, in lifecycle order.
const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusComposing   Status = "composing"
	StatusPublishing  Status = "publishing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusQueued, StatusDownloading, StatusComposing, StatusPublishing, StatusCompleted, StatusFailed}

func (s Status) rank() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanAdvance reports whether moving from s to next is a forward transition.
// Failed is reachable from every non-terminal status.
func (s Status) CanAdvance(next Status) bool {
	if s.Terminal() || next.rank() < 0 {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return next.rank() > s.rank()
}

// Source is one input of a job.
type Source struct {
	Role   string         `json:"role"`
	URL    string         `json:"url"`
	Window compose.Window `json:"window"`
}

// Output is one published artifact.
type Output struct {
	Path string `json:"-"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Transition records when a job entered a status.
type Transition struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}

// Job is the record of one submission. Values handed out by the Manager
// are snapshots; mutating them has no effect.
type Job struct {
	ID         string             `json:"id"`
	Status     Status             `json:"status"`
	Mode       compose.Mode       `json:"mode"`
	Sources    []Source           `json:"sources"`
	Outputs    map[string]Output  `json:"outputs,omitempty"`
	Error      string             `json:"error,omitempty"`
	Attempts   []download.Attempt `json:"attempts,omitempty"`
	History    []Transition       `json:"history"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
	StartedAt  *time.Time         `json:"startedAt,omitempty"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
}

// Source returns the source with role.
func (j *Job) Source(role string) (Source, bool) {
	for _, s := range j.Sources {
		if s.Role == role {
			return s, true
		}
	}
	return Source{}, false
}

func (j *Job) clone() Job {
	c := *j
	c.Sources = append([]Source(nil), j.Sources...)
	c.Attempts = append([]download.Attempt(nil), j.Attempts...)
	c.History = append([]Transition(nil), j.History...)
	if j.Outputs != nil {
		c.Outputs = make(map[string]Output, len(j.Outputs))
		for k, v := range j.Outputs {
			c.Outputs[k] = v
		}
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return c
}

// advance moves the job to next when the transition is allowed.
func (j *Job) advance(next Status, now time.Time) bool {
	if !j.Status.CanAdvance(next) {
		return false
	}
	j.Status = next
	j.UpdatedAt = now
	j.History = append(j.History, Transition{Status: next, At: now})
	switch {
	case next == StatusDownloading:
		j.StartedAt = &now
	case next.Terminal():
		j.FinishedAt = &now
	}
	return true
}
