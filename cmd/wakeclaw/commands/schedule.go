package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/avelis/wakeclaw/pkg/wakeclaw/scheduler"
)

// newScheduleCmd creates the `wakeclaw schedule` command for managing
// scheduled jobs.
func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled jobs",
		Long: `Manage the jobs that run automatically while the daemon is up.
Schedules can be cron expressions or natural language.

Examples:
  wakeclaw schedule list
  wakeclaw schedule add "every weekday 9am" "git fetch --all"
  wakeclaw schedule add "in 30 minutes" "make test"
  wakeclaw schedule remove <id>`,
	}

	cmd.AddCommand(
		newScheduleListCmd(),
		newScheduleAddCmd(),
		newScheduleRemoveCmd(),
	)

	return cmd
}

func newScheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all scheduled jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			storage, closeDB, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			jobs, err := storage.LoadAll()
			if err != nil {
				return fmt.Errorf("loading jobs: %w", err)
			}
			if len(jobs) == 0 {
				fmt.Println("No scheduled jobs.")
				return nil
			}

			for _, job := range jobs {
				state := "enabled"
				if !job.Enabled {
					state = "disabled"
				}
				fmt.Printf("%s  [%s/%s]  %q → %q  (runs: %d)\n",
					job.ID, job.Type, state, job.Schedule, job.Command, job.RunCount)
				if job.LastRunAt != nil {
					fmt.Printf("    last run: %s", job.LastRunAt.Format(time.RFC3339))
					if job.LastError != "" {
						fmt.Printf("  error: %s", job.LastError)
					}
					fmt.Println()
				}
			}
			return nil
		},
	}
}

func newScheduleAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <schedule> <command>",
		Short: "Add a scheduled job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduleStr, jobType, ok := scheduler.ParseHumanSchedule(args[0])
			if !ok {
				// Fall through as a raw cron expression.
				scheduleStr, jobType = args[0], "cron"
			}

			storage, closeDB, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			job := &scheduler.Job{
				ID:        uuid.New().String()[:8],
				Schedule:  scheduleStr,
				Type:      jobType,
				Command:   args[1],
				Enabled:   true,
				CreatedAt: time.Now(),
			}
			if err := storage.Save(job); err != nil {
				return fmt.Errorf("saving job: %w", err)
			}

			fmt.Printf("Job %s added: %q → %q\n", job.ID, job.Schedule, job.Command)
			fmt.Println("The daemon picks it up on its next start.")
			return nil
		},
	}
}

func newScheduleRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, closeDB, err := openStorage(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := storage.Delete(args[0]); err != nil {
				return fmt.Errorf("removing job: %w", err)
			}
			fmt.Printf("Job %s removed.\n", args[0])
			return nil
		},
	}
}

// openStorage opens the configured SQLite store for job management.
func openStorage(cmd *cobra.Command) (*scheduler.SQLiteJobStorage, func(), error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := scheduler.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return scheduler.NewSQLiteJobStorage(db), func() { _ = db.Close() }, nil
}
