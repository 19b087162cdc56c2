package jobs

import (
	"context"
	"errors"
	"fmt"

	"clip-stacker/internal/download"
)

// ErrShuttingDown is returned by Submit after Shutdown has begun.
var ErrShuttingDown = errors.New("job manager is shutting down")

// PublishError is returned when an output cannot be moved to the servable
// directory.
type PublishError struct {
	Output string
	Err    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing %s failed: %v", e.Output, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// stageError tags a pipeline failure with the stage it happened in.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func failedIn(stage string, err error) error {
	return &stageError{stage: stage, err: err}
}

func stageOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return "unknown"
}

// summarize turns a pipeline failure into the message stored on the job.
func summarize(err error) string {
	var fatal *download.FatalError
	switch {
	case errors.Is(err, context.Canceled):
		return "job interrupted by shutdown"
	case errors.As(err, &fatal):
		return "download failed: " + err.Error()
	default:
		return err.Error()
	}
}
