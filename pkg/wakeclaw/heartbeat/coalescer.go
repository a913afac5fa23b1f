package heartbeat

import (
	"log/slog"
	"sync"
	"time"
)

// cycleFunc runs one dispatcher cycle for the merged request. It is invoked
// on the timer goroutine and may take arbitrarily long. seq is the cycle's
// sequence number, matching what Request returned to the callers whose
// requests were merged into this cycle.
type cycleFunc func(seq uint64, req WakeRequest)

// coalescer merges incoming wake requests into scheduled executions. It owns
// the single mutable scheduling state and is the only code that mutates it:
// exactly one of three things happens to every request — it extends the
// effect of an already-armed merge window, it sets the double-buffer flag
// while a cycle is running, or it arms a fresh merge-window timer.
//
// Rescheduling is drift-free: the steady-state timer is re-armed from
// lastRunAt + interval, never from "now", so cycle duration is not added on
// top of the cadence.
type coalescer struct {
	interval    time.Duration
	mergeWindow time.Duration
	run         cycleFunc
	logger      *slog.Logger

	mu         sync.Mutex
	timer      *time.Timer
	timerArmed bool
	running    bool
	scheduled  bool
	stopped    bool
	lastRunAt  time.Time
	cycles     uint64      // sequence number of the latest promoted cycle
	pending    WakeRequest // reported when the armed window fires
	buffered   WakeRequest // carried into the follow-up cycle when scheduled
}

func newCoalescer(interval, mergeWindow time.Duration, run cycleFunc, logger *slog.Logger) *coalescer {
	return &coalescer{
		interval:    interval,
		mergeWindow: mergeWindow,
		run:         run,
		logger:      logger,
		stopped:     true,
	}
}

// resume re-enables scheduling after construction or a Stop.
func (c *coalescer) resume() {
	c.mu.Lock()
	c.stopped = false
	c.mu.Unlock()
}

// Request feeds one wake signal into the state machine. It returns the
// sequence number of the cycle that will report this request — always the
// next promotion, since at most one pending cycle exists at a time: the
// armed window's, or the follow-up buffered behind a running cycle. Returns
// 0 when the coalescer is stopped and the request was dropped.
func (c *coalescer) Request(req WakeRequest) uint64 {
	if req.At.IsZero() {
		req.At = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return 0
	}

	switch {
	case c.running:
		// Double-buffer: the wake is not lost, one more cycle is guaranteed
		// to follow the in-flight one.
		if !c.scheduled {
			c.scheduled = true
			c.buffered = req
		} else {
			c.buffered = mergeRequests(c.buffered, req)
		}
		c.logger.Debug("wake buffered behind running cycle", "reason", req.Reason)

	case c.timerArmed:
		// Window already open; a higher-priority reason upgrades what the
		// pending cycle will report.
		c.pending = mergeRequests(c.pending, req)
		c.logger.Debug("wake merged into armed window", "reason", req.Reason, "reported", c.pending.Reason)

	default:
		c.pending = req
		c.armLocked(c.mergeWindow)
		c.logger.Debug("wake armed merge window", "reason", req.Reason, "window", c.mergeWindow)
	}

	return c.cycles + 1
}

// Stop cancels any armed timer and disables all future scheduling. An
// in-flight cycle runs to completion but does not reschedule afterwards.
// Idempotent.
func (c *coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	c.scheduled = false
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerArmed = false
}

// armLocked arms the one-shot timer. Caller holds c.mu.
func (c *coalescer) armLocked(delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	c.timerArmed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(delay, c.fire)
}

// fire is the timer callback: it promotes the pending request into a running
// cycle, executes it, and lets completion bookkeeping decide the next arm.
func (c *coalescer) fire() {
	c.mu.Lock()
	c.timerArmed = false
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.cycles++
	seq := c.cycles
	req := c.pending
	// The synthesized steady-state request carries no arrival time until its
	// timer actually fires.
	if req.At.IsZero() {
		req.At = time.Now()
	}
	c.mu.Unlock()

	c.run(seq, req)

	c.complete()
}

// complete records the cycle end and arms the next wake: immediately (merge
// window) when a request arrived mid-cycle, otherwise at lastRunAt+interval.
func (c *coalescer) complete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running = false
	c.lastRunAt = time.Now()

	if c.stopped {
		return
	}

	if c.scheduled {
		c.scheduled = false
		c.pending = c.buffered
		c.buffered = WakeRequest{}
		c.armLocked(c.mergeWindow)
		return
	}

	c.pending = WakeRequest{Reason: ReasonInterval}
	c.armLocked(time.Until(c.lastRunAt.Add(c.interval)))
}

// mergeRequests keeps the first arrival time and upgrades to the
// higher-priority reason.
func mergeRequests(a, b WakeRequest) WakeRequest {
	if b.Reason.Priority() > a.Reason.Priority() {
		a.Reason = b.Reason
		a.Note = b.Note
	}
	return a
}
