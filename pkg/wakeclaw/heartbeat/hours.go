package heartbeat

import (
	"fmt"
	"time"
)

// ActiveHours restricts heartbeat cycles to a daily window so the agent does
// not wake a user at the wrong hour. Hours are on the 24h local clock in the
// configured timezone. The window is inclusive at Start and exclusive at
// End; Start > End means the window wraps midnight (e.g. 22:00–06:00).
//
// A nil *ActiveHours means "always active".
type ActiveHours struct {
	start int
	end   int
	loc   *time.Location
}

// NewActiveHours validates the window and resolves the timezone. A bad hour
// or unknown timezone is a static configuration mistake and fails here, not
// at runtime. An empty timezone means the system's local time.
func NewActiveHours(startHour, endHour int, timezone string) (*ActiveHours, error) {
	if startHour < 0 || startHour > 23 {
		return nil, fmt.Errorf("active hours: start hour %d out of range 0-23", startHour)
	}
	if endHour < 0 || endHour > 23 {
		return nil, fmt.Errorf("active hours: end hour %d out of range 0-23", endHour)
	}

	loc := time.Local
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("active hours: invalid timezone %q: %w", timezone, err)
		}
	}

	return &ActiveHours{start: startHour, end: endHour, loc: loc}, nil
}

// IsActive reports whether now falls inside the allowed window. Start == End
// is treated as a full-day window (always active).
func (a *ActiveHours) IsActive(now time.Time) bool {
	if a == nil {
		return true
	}
	hour := now.In(a.loc).Hour()

	switch {
	case a.start == a.end:
		return true
	case a.start < a.end:
		return hour >= a.start && hour < a.end
	default:
		// Wraps midnight: union of [start, 24) and [0, end).
		return hour >= a.start || hour < a.end
	}
}

// String describes the window for logging.
func (a *ActiveHours) String() string {
	if a == nil {
		return "always"
	}
	return fmt.Sprintf("%02d:00-%02d:00 %s", a.start, a.end, a.loc)
}
