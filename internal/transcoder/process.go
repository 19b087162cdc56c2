package transcoder

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"clip-stacker/internal/logging"
	"clip-stacker/internal/metrics"
)

// maxStderr bounds how much diagnostic output is kept per process.
const maxStderr = 8192

// Runner starts external programs. Tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// Result holds the captured output of a finished process.
type Result struct {
	Stdout []byte
	Stderr string
}

// ExitError is returned when a process exits with a non-zero status.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
	if line := lastLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// Exec runs processes on the host and tracks them so they can be killed
// on shutdown.
type Exec struct {
	// Timeout bounds every process. Zero leaves only the caller's context.
	Timeout time.Duration

	mu        sync.Mutex
	processes map[int]*exec.Cmd
	nextID    int
}

// NewExec creates a process runner with the given per-process timeout.
func NewExec(timeout time.Duration) *Exec {
	return &Exec{
		Timeout:   timeout,
		processes: make(map[int]*exec.Cmd),
	}
}

// Run executes name with args and waits for it to exit. A timeout is
// reported as an error wrapping context.DeadlineExceeded.
func (e *Exec) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 5 * time.Second

	var stdout bytes.Buffer
	stderr := &tailBuffer{max: maxStderr}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	logging.Debug("exec: %s %s", name, strings.Join(args, " "))

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("failed to start %s: %w", name, err)
	}

	id := e.track(cmd)
	defer e.untrack(id)

	err := cmd.Wait()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, fmt.Errorf("%s timed out: %w", name, context.DeadlineExceeded)
	case errors.Is(ctx.Err(), context.Canceled):
		return res, fmt.Errorf("%s cancelled: %w", name, context.Canceled)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{Name: name, Code: exitErr.ExitCode(), Stderr: res.Stderr, Err: err}
	}
	return res, fmt.Errorf("%s failed: %w", name, err)
}

func (e *Exec) track(cmd *exec.Cmd) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.processes == nil {
		e.processes = make(map[int]*exec.Cmd)
	}
	e.nextID++
	e.processes[e.nextID] = cmd
	metrics.TranscoderProcessesActive.Inc()
	return e.nextID
}

func (e *Exec) untrack(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.processes[id]; ok {
		delete(e.processes, id)
		metrics.TranscoderProcessesActive.Dec()
	}
}

// Active returns the number of running processes.
func (e *Exec) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.processes)
}

// Cleanup kills all running processes.
func (e *Exec) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, cmd := range e.processes {
		if cmd.Process != nil {
			logging.Info("Killing process %d (%s)", cmd.Process.Pid, cmd.Path)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill process %d: %v", cmd.Process.Pid, err)
			}
		}
	}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string { return string(b.buf) }

// lastLine returns the last non-empty line of s. Progress output that uses
// carriage returns is split as well.
func lastLine(s string) string {
	var last string
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 4096), maxStderr*2)
	sc.Split(splitByNewlineOrCR)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	return last
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
