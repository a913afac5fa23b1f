package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/avelis/wakeclaw/pkg/wakeclaw/channels"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/heartbeat"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/tasks"
)

// newWakeCmd creates the `wakeclaw wake` command: a one-shot manual wake
// that runs a single cycle and prints the resulting task list.
func newWakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wake",
		Short: "Run a single wake cycle now",
		Long: `Run one heartbeat cycle immediately: load the HEARTBEAT.md checklist,
run the cycle, and print the pending tasks.

Examples:
  wakeclaw wake
  wakeclaw wake --timeout 10s`,
		RunE: runWake,
	}

	cmd.Flags().Duration("timeout", 30*time.Second, "how long to wait for the cycle")
	return cmd
}

func runWake(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	chanMgr := channels.NewManager(logger)
	if err := chanMgr.Register(channels.NewConsole()); err != nil {
		return err
	}

	provider := tasks.NewFileProvider(cfg.WorkspaceDir)

	// One-shot runs always use the console, whatever the config says.
	hb := cfg.Heartbeat
	hb.Channel = "console"
	hb.ChatID = "wake"

	mgr, err := heartbeat.New(hb, provider, chanMgr, nil, logger)
	if err != nil {
		return fmt.Errorf("building heartbeat: %w", err)
	}
	mgr.OnTasks(reportTasks)

	mgr.Start(ctx)
	defer mgr.Stop()

	list, err := mgr.Trigger(ctx)
	if err != nil {
		return fmt.Errorf("wake cycle: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No pending tasks.")
		return nil
	}
	fmt.Printf("%d pending task(s):\n", len(list))
	for _, t := range list {
		fmt.Printf("  - %s\n", t.Description)
	}
	return nil
}
