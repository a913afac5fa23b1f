package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/avelis/wakeclaw/pkg/wakeclaw/channels"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/execwatch"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/heartbeat"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/tasks"
)

// newRunCmd creates the `wakeclaw run` command: execute a shell command and
// wake the agent with the result. The completion wake runs even when the
// checklist is empty.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <command...>",
		Short: "Run a command and wake the agent with its result",
		Long: `Execute a shell command, capture its output, and report the completion
to the agent through an exec wake. The wake cycle runs even when
HEARTBEAT.md has no pending tasks.

Examples:
  wakeclaw run "make test"
  wakeclaw run -- git pull --rebase`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRun,
	}

	cmd.Flags().Duration("timeout", 5*time.Minute, "command execution timeout")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	timeout, _ := cmd.Flags().GetDuration("timeout")
	command := strings.Join(args, " ")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout+30*time.Second)
	defer cancel()

	chanMgr := channels.NewManager(logger)
	if err := chanMgr.Register(channels.NewConsole()); err != nil {
		return err
	}

	hb := cfg.Heartbeat
	hb.Channel = "console"
	hb.ChatID = "run"

	mgr, err := heartbeat.New(hb, tasks.NewFileProvider(cfg.WorkspaceDir), chanMgr, nil, logger)
	if err != nil {
		return fmt.Errorf("building heartbeat: %w", err)
	}
	mgr.OnTasks(reportTasks)

	mgr.Start(ctx)
	defer mgr.Stop()

	runner := execwatch.NewRunner(timeout, logger)
	// The completion hook requests the exec wake; it merges with Trigger's
	// into one cycle, exec wins the reason, so the empty-checklist gate does
	// not skip it.
	runner.SetNotify(func(res execwatch.Result) {
		mgr.Request(heartbeat.ReasonExec, res.Summary())
	})

	res := runner.Run(ctx, "cli", command)
	fmt.Println(res.Summary())

	if _, err := mgr.Trigger(ctx); err != nil {
		return fmt.Errorf("completion wake: %w", err)
	}

	if res.Err != nil {
		return fmt.Errorf("command failed: %w", res.Err)
	}
	return nil
}
