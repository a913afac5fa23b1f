package heartbeat

import (
	"testing"
	"time"
)

func at(hour int) time.Time {
	return time.Date(2026, 3, 14, hour, 30, 0, 0, time.UTC)
}

func TestActiveHoursNormalWindow(t *testing.T) {
	h, err := NewActiveHours(9, 22, "UTC")
	if err != nil {
		t.Fatalf("NewActiveHours failed: %v", err)
	}

	cases := []struct {
		hour int
		want bool
	}{
		{8, false},
		{9, true}, // inclusive start
		{15, true},
		{21, true},
		{22, false}, // exclusive end
		{23, false},
		{0, false},
	}
	for _, c := range cases {
		if got := h.IsActive(at(c.hour)); got != c.want {
			t.Errorf("hour %d: IsActive = %v, want %v", c.hour, got, c.want)
		}
	}
}

func TestActiveHoursWrapsMidnight(t *testing.T) {
	h, err := NewActiveHours(22, 6, "UTC")
	if err != nil {
		t.Fatalf("NewActiveHours failed: %v", err)
	}

	cases := []struct {
		hour int
		want bool
	}{
		{21, false},
		{22, true},
		{23, true},
		{0, true},
		{5, true},
		{6, false},
		{12, false},
	}
	for _, c := range cases {
		if got := h.IsActive(at(c.hour)); got != c.want {
			t.Errorf("hour %d: IsActive = %v, want %v", c.hour, got, c.want)
		}
	}
}

func TestActiveHoursEqualBoundsAlwaysActive(t *testing.T) {
	h, err := NewActiveHours(7, 7, "UTC")
	if err != nil {
		t.Fatalf("NewActiveHours failed: %v", err)
	}
	for hour := 0; hour < 24; hour++ {
		if !h.IsActive(at(hour)) {
			t.Errorf("hour %d: expected active with equal bounds", hour)
		}
	}
}

func TestActiveHoursNilAlwaysActive(t *testing.T) {
	var h *ActiveHours
	if !h.IsActive(time.Now()) {
		t.Error("nil window should always be active")
	}
	if h.String() != "always" {
		t.Errorf("nil window String = %q", h.String())
	}
}

func TestActiveHoursTimezoneConversion(t *testing.T) {
	// 9-18 in São Paulo (UTC-3): 14:00 UTC is 11:00 local → active,
	// 23:00 UTC is 20:00 local → inactive.
	h, err := NewActiveHours(9, 18, "America/Sao_Paulo")
	if err != nil {
		t.Fatalf("NewActiveHours failed: %v", err)
	}
	if !h.IsActive(at(14)) {
		t.Error("14:00 UTC should be inside 9-18 São Paulo window")
	}
	if h.IsActive(at(23)) {
		t.Error("23:00 UTC should be outside 9-18 São Paulo window")
	}
}

func TestActiveHoursRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name     string
		start    int
		end      int
		timezone string
	}{
		{"start too high", 24, 6, ""},
		{"negative start", -1, 6, ""},
		{"end too high", 9, 25, ""},
		{"unknown timezone", 9, 18, "Mars/Olympus_Mons"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := NewActiveHours(c.start, c.end, c.timezone); err == nil {
				t.Errorf("expected error for start=%d end=%d tz=%q", c.start, c.end, c.timezone)
			}
		})
	}
}
