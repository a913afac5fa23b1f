// Package commands implements the wakeclaw CLI commands using cobra.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/avelis/wakeclaw/pkg/wakeclaw/config"
)

// NewRootCmd creates the root CLI command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wakeclaw",
		Short: "Wakeclaw - autonomous wake scheduler",
		Long: `Wakeclaw keeps a long-running agent alive: it wakes it on a steady
interval, coalesces bursts of wake signals into single cycles, checks a
HEARTBEAT.md checklist for pending work, and delivers results to a channel.

Examples:
  wakeclaw serve
  wakeclaw wake --note "check deploy status"
  wakeclaw schedule add "every weekday 9am" "git fetch --all"
  wakeclaw run "make test"`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newWakeCmd(),
		newScheduleCmd(),
		newRunCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

// resolveConfig loads config from the --config flag or standard locations.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	if found := config.FindFile(); found != "" {
		cfg, err := config.LoadFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		return cfg, nil
	}

	// No config file — run on defaults with the console channel.
	return config.Default(), nil
}

// newLogger builds a slog.Logger per the config and --verbose flag.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	level := slog.LevelInfo
	switch {
	case verbose || cfg.Logging.Level == "debug":
		level = slog.LevelDebug
	case cfg.Logging.Level == "warn":
		level = slog.LevelWarn
	case cfg.Logging.Level == "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
