// Package scheduler – humanize.go turns human phrasing like "every 5
// minutes" or "daily at 9am" into the schedule/type pair the scheduler
// understands. Callers fall back to the raw input when nothing matches.
package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reEveryN   = regexp.MustCompile(`^every\s+(\d+)\s+(second|minute|hour|day|sec|min)s?$`)
	reEveryOne = regexp.MustCompile(`^every\s+(second|minute|hour|day)$`)
	reDailyAt  = regexp.MustCompile(`^daily\s+at\s+(.+)$`)
	reWeekday  = regexp.MustCompile(`^every\s+weekday(?:\s+at)?\s+(.+)$`)
	reWeeklyOn = regexp.MustCompile(`^weekly\s+on\s+(\w+)(?:\s+at\s+(.+))?$`)
	reInN      = regexp.MustCompile(`^in\s+(\d+)\s+(second|minute|hour|sec|min)s?$`)
)

// ParseHumanSchedule interprets a natural language schedule expression,
// returning the schedule string, the job type ("cron", "every" or "at") and
// whether anything matched.
func ParseHumanSchedule(input string) (schedule, jobType string, ok bool) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return "", "", false
	}

	switch s {
	case "daily":
		return "0 0 * * *", "cron", true
	case "hourly":
		return "@every 1h", "every", true
	}

	if m := reEveryN.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if unit := durationSuffix(m[2]); n > 0 && unit != "" {
			// time.ParseDuration has no "d"; express days in hours.
			if unit == "d" {
				n *= 24
				unit = "h"
			}
			return fmt.Sprintf("@every %d%s", n, unit), "every", true
		}
	}

	if m := reEveryOne.FindStringSubmatch(s); m != nil {
		switch durationSuffix(m[1]) {
		case "s":
			return "@every 1s", "every", true
		case "m":
			return "@every 1m", "every", true
		case "h":
			return "@every 1h", "every", true
		case "d":
			return "@every 24h", "every", true
		}
	}

	if m := reDailyAt.FindStringSubmatch(s); m != nil {
		if hour, minute := clockComponents(m[1]); hour >= 0 {
			return fmt.Sprintf("%d %d * * *", minute, hour), "cron", true
		}
	}

	if m := reWeekday.FindStringSubmatch(s); m != nil {
		if hour, minute := clockComponents(m[1]); hour >= 0 {
			return fmt.Sprintf("%d %d * * 1-5", minute, hour), "cron", true
		}
	}

	if m := reWeeklyOn.FindStringSubmatch(s); m != nil {
		if dow := dayOfWeek(m[1]); dow >= 0 {
			hour, minute := 0, 0
			if m[2] != "" {
				if h, mm := clockComponents(m[2]); h >= 0 {
					hour, minute = h, mm
				}
			}
			return fmt.Sprintf("%d %d * * %d", minute, hour, dow), "cron", true
		}
	}

	if m := reInN.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if unit := durationSuffix(m[2]); n > 0 && unit != "" {
			return fmt.Sprintf("%d%s", n, unit), "at", true
		}
	}

	return "", "", false
}

// durationSuffix converts a time unit word to its Go duration suffix.
func durationSuffix(unit string) string {
	switch strings.TrimSuffix(strings.ToLower(unit), "s") {
	case "second", "sec":
		return "s"
	case "minute", "min":
		return "m"
	case "hour":
		return "h"
	case "day":
		return "d"
	default:
		return ""
	}
}

// clockComponents parses "9:00", "14:30", "9am", "3:30pm" into hour/minute.
// Returns (-1, 0) on failure.
func clockComponents(s string) (int, int) {
	s = strings.TrimSpace(strings.ToLower(s))

	isPM := strings.HasSuffix(s, "pm")
	isAM := strings.HasSuffix(s, "am")
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "pm"), "am"))

	parts := strings.SplitN(s, ":", 2)
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 || hour > 23 {
		return -1, 0
	}

	minute := 0
	if len(parts) == 2 {
		minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || minute < 0 || minute > 59 {
			return -1, 0
		}
	}

	if isPM && hour < 12 {
		hour += 12
	}
	if isAM && hour == 12 {
		hour = 0
	}
	return hour, minute
}

// dayOfWeek converts a day name to the cron day-of-week number (0=Sunday).
func dayOfWeek(day string) int {
	switch strings.ToLower(day) {
	case "sunday", "sun":
		return 0
	case "monday", "mon":
		return 1
	case "tuesday", "tue":
		return 2
	case "wednesday", "wed":
		return 3
	case "thursday", "thu":
		return 4
	case "friday", "fri":
		return 5
	case "saturday", "sat":
		return 6
	default:
		return -1
	}
}
