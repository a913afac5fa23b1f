// Package config loads the wakeclaw YAML configuration with .env support,
// environment variable expansion and fail-fast validation.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/avelis/wakeclaw/pkg/wakeclaw/channels/discord"
	"github.com/avelis/wakeclaw/pkg/wakeclaw/heartbeat"
)

// envVarPattern matches ${VAR_NAME} references in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Config holds all wakeclaw configuration.
type Config struct {
	// Name is the agent name used in logs and delivery.
	Name string `yaml:"name"`

	// WorkspaceDir is where HEARTBEAT.md lives.
	WorkspaceDir string `yaml:"workspace_dir"`

	// DatabasePath is the SQLite file for scheduled jobs.
	DatabasePath string `yaml:"database_path"`

	// ExecTimeout bounds scheduled command execution. Zero uses the
	// runner default.
	ExecTimeout time.Duration `yaml:"exec_timeout"`

	// Heartbeat configures the autonomous-wake scheduler.
	Heartbeat heartbeat.Config `yaml:"heartbeat"`

	// Channels configures outbound delivery.
	Channels ChannelsConfig `yaml:"channels"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// ChannelsConfig groups per-channel settings.
type ChannelsConfig struct {
	Discord discord.Config `yaml:"discord"`
}

// LoggingConfig controls log level and format.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Name:         "wakeclaw",
		WorkspaceDir: ".",
		DatabasePath: "wakeclaw.db",
		Heartbeat:    heartbeat.DefaultConfig(),
		Logging:      LoggingConfig{Level: "info", Format: "text"},
	}
}

// LoadFile reads and parses a YAML configuration file. .env files are
// loaded first (never overwriting real env vars) and ${VAR} references in
// the YAML are expanded before parsing. Malformed configuration — including
// a bad active-hours window — fails here.
func LoadFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse([]byte(expandEnvVars(string(data))))
	if err != nil {
		return nil, err
	}

	resolveSecrets(cfg)
	return cfg, nil
}

// Parse parses YAML bytes into a Config, overlaying the defaults, and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if _, err := cfg.Heartbeat.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML with restricted permissions.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// FindFile searches standard locations for a config file.
func FindFile() string {
	candidates := []string{
		"wakeclaw.yaml",
		"wakeclaw.yml",
		"config.yaml",
		"config.yml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ---------- Internal ----------

// loadEnvFiles loads .env files from standard locations.
// godotenv.Load does not overwrite existing env vars.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} references with environment values; unset
// variables keep the literal placeholder.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}
