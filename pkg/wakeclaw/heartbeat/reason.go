// Package heartbeat implements the autonomous-wake scheduler: it decides
// when the agent pipeline may run on its own initiative and guarantees that
// no two runs for the same session (or across sessions) execute concurrently.
//
// Four signal sources can ask for a wake: the steady-state interval timer,
// completion of a scheduled cron job, completion of a shell command, and an
// explicit manual request. The coalescer merges bursts of such signals into
// single cycles; the dispatcher runs each cycle under the lane queue.
package heartbeat

import "time"

// WakeReason identifies the source of a wake request.
type WakeReason string

const (
	// ReasonInterval is the steady-state cadence timer.
	ReasonInterval WakeReason = "interval"

	// ReasonCron is the completion of a scheduled job.
	ReasonCron WakeReason = "cron"

	// ReasonExec is the completion of a shell-level command.
	ReasonExec WakeReason = "exec"

	// ReasonRequested is an explicit manual wake.
	ReasonRequested WakeReason = "requested"
)

// Priority orders reasons for merge-window reporting: when several requests
// collapse into one cycle, the highest-priority reason seen in the window is
// the one reported to the dispatcher. Exec outranks everything because an
// explicitly completed command may warrant a report even with no pending
// tasks.
func (r WakeReason) Priority() int {
	switch r {
	case ReasonExec:
		return 3
	case ReasonCron:
		return 2
	case ReasonInterval:
		return 1
	default:
		return 0
	}
}

// WakeRequest is a signal asking the scheduler to consider running the agent
// pipeline soon. It is consumed immediately by the coalescer and never
// persisted.
type WakeRequest struct {
	Reason WakeReason
	At     time.Time
	Note   string
}
