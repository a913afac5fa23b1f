package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avelis/wakeclaw/pkg/wakeclaw/tasks"
)

// RunStatus is the agent-run callback's verdict.
type RunStatus string

const (
	RunOK    RunStatus = "ok"
	RunError RunStatus = "error"
)

// RunResult is what the external agent-run callback produced.
type RunResult struct {
	Status RunStatus

	// Tasks optionally reports the task list after the run.
	Tasks []tasks.Task

	// Message is an optional user-visible message to deliver.
	Message string
}

// RunFunc is the external agent-run callback consumed by a cycle. It may
// take arbitrarily long; the lanes stay occupied for the whole duration.
type RunFunc func(ctx context.Context, list []tasks.Task, req WakeRequest) (RunResult, error)

// Outcome classifies how a cycle ended. Outcomes are observability events
// only; no error from a cycle is surfaced to an end user.
type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeSkippedInactive Outcome = "skipped:inactive-hours"
	OutcomeSkippedEmpty    Outcome = "skipped:empty"
	OutcomeSuppressed      Outcome = "suppressed"
	OutcomeError           Outcome = "error"
)

// cycleResult is what one dispatcher cycle yields.
type cycleResult struct {
	Outcome Outcome
	Tasks   []tasks.Task
}

// deliverFunc sends a user-visible message downstream.
type deliverFunc func(ctx context.Context, content string) error

// dispatcher executes one gated heartbeat cycle. It is always invoked under
// the session+global lane nesting, so a cycle is exclusive with every other
// agent run, heartbeat- or user-triggered.
type dispatcher struct {
	hours    *ActiveHours
	guard    *DuplicateGuard
	provider tasks.Provider
	deliver  deliverFunc
	callback func() RunFunc
	logger   *slog.Logger
}

// runOnce performs the gated sequence: active-hours gate, task load,
// empty-content gate, dispatch, duplicate suppression. Every short-circuit
// still counts as a completed cycle for rescheduling purposes.
func (d *dispatcher) runOnce(ctx context.Context, req WakeRequest) cycleResult {
	runID := uuid.New().String()
	started := time.Now()
	logger := d.logger.With("run_id", runID, "reason", req.Reason)

	if !d.hours.IsActive(started) {
		logger.Debug("cycle skipped: outside active hours", "window", d.hours.String())
		return cycleResult{Outcome: OutcomeSkippedInactive}
	}

	// Provider errors degrade to an empty list; the next scheduled cycle is
	// the retry mechanism.
	list, err := d.provider.LoadTasks()
	if err != nil {
		logger.Warn("task load failed, treating as empty", "error", err)
		list = nil
	}

	// Cost-avoidance rule: nothing to do means no agent invocation — unless
	// an explicitly completed command asked for this wake.
	if len(list) == 0 && req.Reason != ReasonExec {
		logger.Debug("cycle skipped: no pending tasks")
		return cycleResult{Outcome: OutcomeSkippedEmpty}
	}

	cb := d.callback()
	if cb == nil {
		logger.Warn("no agent callback registered")
		return cycleResult{Outcome: OutcomeCompleted, Tasks: list}
	}

	result, err := d.invoke(ctx, cb, list, req)
	if err != nil {
		logger.Error("agent run failed", "error", err, "duration", time.Since(started))
		return cycleResult{Outcome: OutcomeError, Tasks: list}
	}

	out := list
	if result.Tasks != nil {
		out = result.Tasks
	}

	if result.Message != "" {
		if d.guard.ShouldSuppress(result.Message) {
			logger.Info("message suppressed: duplicate within window", "duration", time.Since(started))
			return cycleResult{Outcome: OutcomeSuppressed, Tasks: out}
		}
		if err := d.deliver(ctx, result.Message); err != nil {
			logger.Error("message delivery failed", "error", err)
		}
	}

	logger.Info("cycle completed",
		"status", result.Status,
		"tasks", len(out),
		"delivered", result.Message != "",
		"duration", time.Since(started),
	)
	return cycleResult{Outcome: OutcomeCompleted, Tasks: out}
}

// invoke calls the callback with panic isolation: one bad run must not crash
// the scheduler.
func (d *dispatcher) invoke(ctx context.Context, cb RunFunc, list []tasks.Task, req WakeRequest) (res RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent callback panicked: %v", r)
		}
	}()

	res, err = cb(ctx, list, req)
	if err == nil && res.Status == RunError {
		err = fmt.Errorf("agent run reported error status")
	}
	return res, err
}
