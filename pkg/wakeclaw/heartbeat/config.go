package heartbeat

import (
	"fmt"
	"time"
)

// Config configures the heartbeat manager.
type Config struct {
	// Enabled turns the heartbeat on/off.
	Enabled bool `yaml:"enabled"`

	// Interval is the baseline cadence between autonomous cycles.
	// Default: 30 minutes.
	Interval time.Duration `yaml:"interval"`

	// MergeWindow is how long the coalescer waits after a wake request so
	// near-simultaneous signals collapse into one cycle. Default: 250ms.
	MergeWindow time.Duration `yaml:"merge_window"`

	// ActiveStart is the earliest hour a cycle may do work (e.g. 9 for 9 AM).
	ActiveStart int `yaml:"active_start"`

	// ActiveEnd is the latest hour a cycle may do work (e.g. 22 for 10 PM).
	ActiveEnd int `yaml:"active_end"`

	// Timezone is the IANA timezone for the active-hours window
	// (e.g. "America/Sao_Paulo"). Empty means local time.
	Timezone string `yaml:"timezone"`

	// DuplicateWindow is how long an emitted message suppresses identical
	// re-sends. Default: 24h.
	DuplicateWindow time.Duration `yaml:"duplicate_window"`

	// Session is the session key the heartbeat runs under. Cycles share this
	// session's lane with user-triggered runs for the same session.
	Session string `yaml:"session"`

	// Channel is the default channel to deliver proactive messages to.
	Channel string `yaml:"channel"`

	// ChatID is the default chat to deliver proactive messages to.
	ChatID string `yaml:"chat_id"`
}

// DefaultConfig returns sensible defaults for the heartbeat.
func DefaultConfig() Config {
	return Config{
		Enabled:         false,
		Interval:        30 * time.Minute,
		MergeWindow:     250 * time.Millisecond,
		ActiveStart:     0,
		ActiveEnd:       0,
		DuplicateWindow: defaultDuplicateWindow,
		Session:         "heartbeat:main",
	}
}

// Validate checks static configuration and resolves the active-hours window.
// Returns the window (nil when the config leaves it wide open) or an error
// for malformed values; the error is fatal at construction time.
func (c Config) Validate() (*ActiveHours, error) {
	if c.Interval < 0 {
		return nil, fmt.Errorf("heartbeat: negative interval %s", c.Interval)
	}
	if c.MergeWindow < 0 {
		return nil, fmt.Errorf("heartbeat: negative merge window %s", c.MergeWindow)
	}

	// 0–0 with no timezone means no restriction at all.
	if c.ActiveStart == 0 && c.ActiveEnd == 0 && c.Timezone == "" {
		return nil, nil
	}
	return NewActiveHours(c.ActiveStart, c.ActiveEnd, c.Timezone)
}

// withDefaults fills zero values with the defaults.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.MergeWindow <= 0 {
		c.MergeWindow = def.MergeWindow
	}
	if c.DuplicateWindow <= 0 {
		c.DuplicateWindow = def.DuplicateWindow
	}
	if c.Session == "" {
		c.Session = def.Session
	}
	return c
}
