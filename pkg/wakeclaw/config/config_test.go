package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseOverlaysDefaults(t *testing.T) {
	yaml := `
name: myagent
heartbeat:
  enabled: true
  interval: 15m
  active_start: 9
  active_end: 22
  timezone: UTC
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Name != "myagent" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Heartbeat.Interval != 15*time.Minute {
		t.Errorf("Interval = %s, want 15m", cfg.Heartbeat.Interval)
	}
	// Untouched fields keep their defaults.
	if cfg.DatabasePath != "wakeclaw.db" {
		t.Errorf("DatabasePath = %q, want default", cfg.DatabasePath)
	}
	if cfg.Heartbeat.MergeWindow != 250*time.Millisecond {
		t.Errorf("MergeWindow = %s, want default 250ms", cfg.Heartbeat.MergeWindow)
	}
}

func TestParseRejectsBadActiveHours(t *testing.T) {
	yaml := `
heartbeat:
  active_start: 9
  active_end: 40
  timezone: UTC
`
	if _, err := Parse([]byte(yaml)); err == nil {
		t.Error("expected error for out-of-range active hour")
	}
}

func TestParseRejectsBadTimezone(t *testing.T) {
	yaml := `
heartbeat:
  active_start: 9
  active_end: 18
  timezone: Nowhere/Atlantis
`
	if _, err := Parse([]byte(yaml)); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("name: [unterminated")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("WAKECLAW_TEST_CHAT", "channel-42")

	got := expandEnvVars("chat_id: ${WAKECLAW_TEST_CHAT}")
	if got != "chat_id: channel-42" {
		t.Errorf("expanded = %q", got)
	}

	// Unset variables keep the placeholder for later diagnosis.
	got = expandEnvVars("token: ${WAKECLAW_TEST_UNSET_VAR}")
	if got != "token: ${WAKECLAW_TEST_UNSET_VAR}" {
		t.Errorf("unset expansion = %q, want placeholder kept", got)
	}
}

func TestLoadFileExpandsEnv(t *testing.T) {
	t.Setenv("WAKECLAW_TEST_NAME", "envname")

	path := filepath.Join(t.TempDir(), "wakeclaw.yaml")
	if err := os.WriteFile(path, []byte("name: ${WAKECLAW_TEST_NAME}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Name != "envname" {
		t.Errorf("Name = %q, want env-expanded value", cfg.Name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")

	cfg := Default()
	cfg.Name = "saved"
	cfg.Heartbeat.Enabled = true
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if loaded.Name != "saved" || !loaded.Heartbeat.Enabled {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
