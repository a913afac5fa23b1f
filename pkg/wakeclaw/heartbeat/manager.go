package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avelis/wakeclaw/pkg/wakeclaw/channels"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/lane"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/tasks"
)

// ErrNotRunning is returned by Trigger when the manager has not been started.
var ErrNotRunning = fmt.Errorf("heartbeat: manager is not running")

// Manager is the public facade composing the wake coalescer, the dispatcher
// and the lane queue. Every cycle runs under the session lane nested inside
// the shared global lane, so heartbeat cycles are serialized against each
// other and against user-triggered runs process-wide.
type Manager struct {
	cfg    Config
	logger *slog.Logger
	lanes  *lane.Queue
	co     *coalescer
	disp   *dispatcher

	mu       sync.Mutex
	callback RunFunc
	waiters  []waiter
	started  bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// waiter is a pending Trigger call. seq is the cycle that absorbed its wake
// request; only that cycle (or a later one) may fulfill it, so a Trigger
// issued mid-cycle is answered by the buffered follow-up rather than the
// stale in-flight run. A closed channel means the manager stopped before
// the cycle could run.
type waiter struct {
	seq uint64
	ch  chan []tasks.Task
}

// New builds a manager. Malformed active-hours configuration is rejected
// here — it is a static mistake, not a runtime condition. The lane queue is
// shared with whatever else serializes agent runs in the process; pass nil
// to get a private one.
func New(cfg Config, provider tasks.Provider, chans *channels.Manager, lanes *lane.Queue, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "heartbeat")

	hours, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	if provider == nil {
		return nil, fmt.Errorf("heartbeat: task provider is required")
	}
	if lanes == nil {
		lanes = lane.New()
	}

	m := &Manager{
		cfg:    cfg,
		logger: logger,
		lanes:  lanes,
	}

	deliver := func(ctx context.Context, content string) error {
		if chans == nil || cfg.Channel == "" || cfg.ChatID == "" {
			logger.Info("no delivery channel configured, dropping message", "len", len(content))
			return nil
		}
		return chans.Send(ctx, cfg.Channel, cfg.ChatID, content)
	}

	m.disp = &dispatcher{
		hours:    hours,
		guard:    NewDuplicateGuard(cfg.DuplicateWindow),
		provider: provider,
		deliver:  deliver,
		callback: m.currentCallback,
		logger:   logger,
	}
	m.co = newCoalescer(cfg.Interval, cfg.MergeWindow, m.runCycle, logger)

	return m, nil
}

// OnTasks registers the external agent-run callback. At most one callback is
// active; registering a new one replaces the old.
func (m *Manager) OnTasks(cb RunFunc) {
	m.mu.Lock()
	m.callback = cb
	m.mu.Unlock()
}

func (m *Manager) currentCallback() RunFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callback
}

// Start marks the manager active and arms the steady-state interval wake.
// Idempotent.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.co.resume()
	m.logger.Info("heartbeat started",
		"interval", m.cfg.Interval.String(),
		"merge_window", m.cfg.MergeWindow.String(),
		"active_hours", m.disp.hours.String(),
		"session", m.cfg.Session,
	)
	m.Request(ReasonInterval, "startup")
}

// Stop cancels future scheduling. An in-flight cycle runs to completion but
// does not reschedule afterwards. Pending Trigger calls fail with
// ErrNotRunning; their cycles will never be armed. Idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	cancel := m.cancel
	waiters := m.waiters
	m.waiters = nil
	m.mu.Unlock()

	m.co.Stop()
	if cancel != nil {
		cancel()
	}
	for _, w := range waiters {
		close(w.ch)
	}
	m.logger.Info("heartbeat stopped")
}

// Request asks for a wake soon. Bursts inside one merge window collapse into
// a single cycle; a request during a running cycle guarantees exactly one
// follow-up cycle.
func (m *Manager) Request(reason WakeReason, note string) {
	m.co.Request(WakeRequest{Reason: reason, At: time.Now(), Note: note})
}

// Trigger requests a manual wake and blocks until the cycle that absorbed
// the request has completed, returning that cycle's task list. A trigger
// issued while a cycle is in flight waits for the guaranteed follow-up
// cycle, not the one already running.
func (m *Manager) Trigger(ctx context.Context) ([]tasks.Task, error) {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil, ErrNotRunning
	}
	// Registration and request happen under one lock so a completing cycle
	// cannot slip between them. Lock order is manager then coalescer; the
	// fire path releases the coalescer lock before calling back into the
	// manager.
	ch := make(chan []tasks.Task, 1)
	seq := m.co.Request(WakeRequest{Reason: ReasonRequested, At: time.Now(), Note: "manual trigger"})
	m.waiters = append(m.waiters, waiter{seq: seq, ch: ch})
	m.mu.Unlock()

	select {
	case list, ok := <-ch:
		if !ok {
			return nil, ErrNotRunning
		}
		return list, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runCycle executes one dispatcher cycle under the nested lanes and fans the
// result out to the Trigger waiters this cycle's merged request covers.
// Waiters registered after the cycle was promoted stay queued for the
// follow-up cycle their request guaranteed.
func (m *Manager) runCycle(seq uint64, req WakeRequest) {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := lane.Run(m.lanes, lane.SessionKey(m.cfg.Session), func() (cycleResult, error) {
		return lane.Run(m.lanes, lane.Global, func() (cycleResult, error) {
			return m.disp.runOnce(ctx, req), nil
		})
	})
	if err != nil {
		// Only a recovered panic reaches here; runOnce itself never errors.
		m.logger.Error("cycle aborted", "error", err)
	}

	m.mu.Lock()
	var served []waiter
	remaining := m.waiters[:0]
	for _, w := range m.waiters {
		if w.seq <= seq {
			served = append(served, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	m.waiters = remaining
	m.mu.Unlock()
	for _, w := range served {
		w.ch <- res.Tasks
	}
}
