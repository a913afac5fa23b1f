// Package execwatch runs shell-level commands and reports their completion,
// so a finished command can wake the agent (reason "exec") even when the
// task list is empty.
package execwatch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// defaultTimeout bounds a single command execution.
const defaultTimeout = 5 * time.Minute

// Result is the outcome of one command execution.
type Result struct {
	// Name labels the command for wake notes and logging.
	Name string

	// Command is the shell command that ran.
	Command string

	// ExitCode is the process exit code (-1 if it never started).
	ExitCode int

	// Output is combined stdout+stderr, truncated for reporting.
	Output string

	// Err is non-nil when the command failed to start or exited non-zero.
	Err error

	// Duration is how long the command ran.
	Duration time.Duration
}

// NotifyFunc is called when a command completes, success or failure.
type NotifyFunc func(res Result)

// Runner executes commands through the shell with a timeout and notifies
// on completion.
type Runner struct {
	timeout time.Duration
	notify  NotifyFunc
	logger  *slog.Logger
}

// NewRunner creates a runner. A non-positive timeout uses the default.
func NewRunner(timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		timeout: timeout,
		logger:  logger.With("component", "execwatch"),
	}
}

// SetNotify registers the completion callback.
func (r *Runner) SetNotify(fn NotifyFunc) {
	r.notify = fn
}

// Run executes command via the shell and blocks until it finishes, then
// fires the completion callback. The returned Result is also the callback's
// argument.
func (r *Runner) Run(ctx context.Context, name, command string) Result {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	r.logger.Info("running command", "name", name, "command", command)

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Name:     name,
		Command:  command,
		ExitCode: -1,
		Output:   truncateOutput(buf.String(), 4096),
		Err:      err,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		r.logger.Warn("command failed", "name", name, "exit_code", res.ExitCode, "error", err)
	} else {
		r.logger.Info("command completed", "name", name, "duration", res.Duration)
	}

	if r.notify != nil {
		r.notify(res)
	}
	return res
}

// Summary renders a one-line description for wake notes.
func (res Result) Summary() string {
	status := "ok"
	if res.Err != nil {
		status = fmt.Sprintf("failed (exit %d)", res.ExitCode)
	}
	return fmt.Sprintf("%s: %s in %s", res.Name, status, res.Duration.Round(time.Millisecond))
}

func truncateOutput(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}
