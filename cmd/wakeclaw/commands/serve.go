package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/avelis/wakeclaw/pkg/wakeclaw/channels"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/channels/discord"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/execwatch"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/heartbeat"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/lane"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/scheduler"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/tasks"
)

// newServeCmd creates the `wakeclaw serve` command that starts the daemon.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the wake scheduler daemon",
		Long: `Start wakeclaw as a daemon: the heartbeat wakes on its interval,
scheduled jobs run and request wakes on completion, and edits to the
HEARTBEAT.md checklist trigger an immediate wake.

Examples:
  wakeclaw serve
  wakeclaw serve --config ./wakeclaw.yaml`,
		RunE: runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// ── Channels ──
	chanMgr := channels.NewManager(logger)
	if err := chanMgr.Register(channels.NewConsole()); err != nil {
		return err
	}
	if cfg.Channels.Discord.Token != "" {
		if err := chanMgr.Register(discord.New(cfg.Channels.Discord, logger)); err != nil {
			logger.Error("failed to register Discord", "error", err)
		}
	}
	chanMgr.ConnectAll(ctx)
	defer chanMgr.DisconnectAll()

	// ── Heartbeat ──
	provider := tasks.NewFileProvider(cfg.WorkspaceDir)
	lanes := lane.New()

	mgr, err := heartbeat.New(cfg.Heartbeat, provider, chanMgr, lanes, logger)
	if err != nil {
		return fmt.Errorf("building heartbeat: %w", err)
	}
	mgr.OnTasks(reportTasks)

	// ── Scheduler ──
	db, err := scheduler.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	runner := execwatch.NewRunner(cfg.ExecTimeout, logger)
	// Every finished command requests an exec wake. When the scheduler's own
	// completion hook fires in the same window the two merge into one cycle
	// and exec wins the reason, so the empty-checklist gate stays open.
	runner.SetNotify(func(res execwatch.Result) {
		mgr.Request(heartbeat.ReasonExec, res.Summary())
	})
	sched := scheduler.New(scheduler.NewSQLiteJobStorage(db), func(ctx context.Context, job *scheduler.Job) (string, error) {
		res := runner.Run(ctx, job.ID, job.Command)
		if res.Err != nil {
			return res.Summary(), res.Err
		}
		return res.Summary(), nil
	}, logger)

	// A finished job wakes the heartbeat so it can pick up any follow-up work.
	sched.SetWakeHook(func(jobID string) {
		mgr.Request(heartbeat.ReasonCron, "job "+jobID+" completed")
	})

	// ── Checklist watcher ──
	watcher := tasks.NewWatcher(provider.Path(), func() {
		mgr.Request(heartbeat.ReasonRequested, "checklist changed")
	}, logger)

	// ── Start ──
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("checklist watcher unavailable", "error", err)
	} else {
		defer watcher.Stop()
	}

	if cfg.Heartbeat.Enabled {
		mgr.Start(ctx)
	} else {
		logger.Info("heartbeat disabled in config; only scheduled jobs will run")
	}

	logger.Info("wakeclaw running. Press Ctrl+C to stop.",
		"name", cfg.Name,
		"workspace", cfg.WorkspaceDir,
		"jobs", len(sched.List()),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	done := make(chan struct{})
	go func() {
		mgr.Stop()
		cancel()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}

// reportTasks is the default agent callback: it summarizes the pending
// checklist (or the exec result that requested the wake) as the outgoing
// message. A real agent integration replaces this via Manager.OnTasks.
func reportTasks(_ context.Context, list []tasks.Task, req heartbeat.WakeRequest) (heartbeat.RunResult, error) {
	var b strings.Builder
	if req.Reason == heartbeat.ReasonExec && req.Note != "" {
		b.WriteString(req.Note)
		b.WriteString("\n")
	}
	if len(list) > 0 {
		fmt.Fprintf(&b, "%d pending task(s):\n", len(list))
		for _, t := range list {
			b.WriteString("- ")
			b.WriteString(t.Description)
			b.WriteString("\n")
		}
	}
	return heartbeat.RunResult{
		Status:  heartbeat.RunOK,
		Tasks:   list,
		Message: strings.TrimRight(b.String(), "\n"),
	}, nil
}
