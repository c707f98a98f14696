// Package task runs the external automation tools the desktop layer relies
// on (wmctrl, osascript, xdg-open) and keeps a short record of recent runs.
package task

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Status is the lifecycle state of one run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

const defaultKeep = 32

// Run records one invocation of an external tool.
type Run struct {
	ID        string
	Name      string
	Args      []string
	Status    Status
	StartTime time.Time
	EndTime   time.Time
	ExitCode  int
	Stdout    string
	Stderr    string
	Error     error
}

// CommandLine renders the invocation for logs.
func (r Run) CommandLine() string {
	return strings.TrimSpace(r.Name + " " + strings.Join(r.Args, " "))
}

// ExitError is returned when a tool ran but exited non-zero.
type ExitError struct {
	Run Run
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Run.Stderr)
	if msg == "" {
		msg = "no output"
	}
	return fmt.Sprintf("%s exited with %d: %s", e.Run.Name, e.Run.ExitCode, msg)
}

// Runner executes tools synchronously. It is safe for concurrent use.
type Runner struct {
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.RWMutex
	history []Run
	keep    int

	// lookPath is swapped in tests.
	lookPath func(string) (string, error)
}

// NewRunner creates a runner whose invocations time out after timeout
// (zero means no limit beyond the caller's context).
func NewRunner(logger *zap.Logger, timeout time.Duration) *Runner {
	return &Runner{
		logger:   logger,
		timeout:  timeout,
		keep:     defaultKeep,
		lookPath: exec.LookPath,
	}
}

// Available reports whether a tool is on PATH.
func (r *Runner) Available(name string) bool {
	_, err := r.lookPath(name)
	return err == nil
}

// Run executes name with args and returns its trimmed stdout. A non-zero
// exit is an *ExitError carrying the captured stderr.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	run := Run{
		ID:        uuid.New().String(),
		Name:      name,
		Args:      args,
		Status:    StatusRunning,
		StartTime: time.Now(),
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	run.EndTime = time.Now()
	run.Stdout = stdout.String()
	run.Stderr = stderr.String()
	run.Error = err

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		run.Status = StatusCancelled
		run.ExitCode = -1
		err = errors.Wrapf(ctx.Err(), "%s", name)
	case errors.As(err, &exitErr):
		run.Status = StatusFailed
		run.ExitCode = exitErr.ExitCode()
		err = &ExitError{Run: run}
	case err != nil:
		run.Status = StatusFailed
		run.ExitCode = -1
		err = errors.Wrapf(err, "run %s", name)
	default:
		run.Status = StatusSuccess
	}
	r.remember(run)

	r.logger.Debug("tool finished",
		zap.String("id", run.ID),
		zap.String("cmd", run.CommandLine()),
		zap.String("status", string(run.Status)),
		zap.Int("exit", run.ExitCode),
		zap.Duration("took", run.EndTime.Sub(run.StartTime)))

	if err != nil {
		return "", err
	}
	return strings.TrimSpace(run.Stdout), nil
}

func (r *Runner) remember(run Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, run)
	if over := len(r.history) - r.keep; over > 0 {
		r.history = append([]Run(nil), r.history[over:]...)
	}
}

// Recent returns up to the last n runs, oldest first.
func (r *Runner) Recent(n int) []Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.history) {
		n = len(r.history)
	}
	out := make([]Run, n)
	copy(out, r.history[len(r.history)-n:])
	return out
}

// FailureSummary lists recent failed runs, for diagnostics.
func (r *Runner) FailureSummary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var failed []string
	for _, run := range r.history {
		if run.Status != StatusFailed && run.Status != StatusCancelled {
			continue
		}
		cmd := run.CommandLine()
		if len(cmd) > 40 {
			cmd = cmd[:40] + "..."
		}
		failed = append(failed, fmt.Sprintf("[%s: %s]", run.Status, cmd))
	}
	if len(failed) == 0 {
		return ""
	}
	return "Failed tools: " + strings.Join(failed, ", ")
}
