// Package schedule computes reminder fire times, owns the wake-up timer
// registry and runs the periodic due-reminder poller.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrValidation marks a caller mistake (bad schedule, missing field) that
// tool-style callers surface as a structured failure, not a fault.
var ErrValidation = errors.New("validation failed")

// Fixed standard-time offsets in hours from UTC. Daylight saving is not
// modeled: recurring reminders drift by an hour across DST transitions.
// The agent asks for the user's timezone during onboarding.
var timezoneOffsets = map[string]int{
	// US timezones
	"America/Los_Angeles": -8, // PST (PDT is -7)
	"America/Denver":      -7, // MST
	"America/Chicago":     -6, // CST
	"America/New_York":    -5, // EST
	// Aliases
	"PST": -8, "PDT": -7,
	"MST": -7, "MDT": -6,
	"CST": -6, "CDT": -5,
	"EST": -5, "EDT": -4,
	"UTC": 0, "GMT": 0,
}

const defaultOffsetHours = -8 // PST

// TimezoneOffset returns the fixed UTC offset for a timezone identifier.
// Empty and unknown identifiers fall back to Pacific standard time.
func TimezoneOffset(timezone string) time.Duration {
	hours := defaultOffsetHours
	if timezone != "" {
		if h, ok := timezoneOffsets[timezone]; ok {
			hours = h
		}
	}
	return time.Duration(hours) * time.Hour
}

// KnownTimezone reports whether the identifier is in the offset table.
func KnownTimezone(timezone string) bool {
	_, ok := timezoneOffsets[timezone]
	return ok
}

var cronValidator = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

var dayNames = map[string]time.Weekday{
	"SUN": time.Sunday, "MON": time.Monday, "TUE": time.Tuesday,
	"WED": time.Wednesday, "THU": time.Thursday, "FRI": time.Friday,
	"SAT": time.Saturday,
	"0":   time.Sunday, "1": time.Monday, "2": time.Tuesday,
	"3": time.Wednesday, "4": time.Thursday, "5": time.Friday,
	"6": time.Saturday,
}

// NextCronTime computes the next fire instant for a 5-field schedule
// "minute hour dayOfMonth month dayOfWeek", interpreted as wall-clock time
// in the given timezone. dayOfMonth and month are accepted syntactically
// but always treated as "every"; minute and hour must be exact numeric
// values (or "*", meaning 0); dayOfWeek may be "*", a name or a number.
// The result is always strictly after from: a schedule matching the
// current minute exactly fires the next day, not now.
func NextCronTime(schedule, timezone string, from time.Time) (time.Time, error) {
	parts := strings.Fields(strings.TrimSpace(schedule))
	if len(parts) != 5 {
		return time.Time{}, fmt.Errorf("%w: expected 5 cron fields (minute hour dayOfMonth month dayOfWeek), got %d", ErrValidation, len(parts))
	}
	if _, err := cronValidator.Parse(schedule); err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid cron schedule %q: %v", ErrValidation, schedule, err)
	}

	minute, err := cronField(parts[0], 0, 59)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: minute field %q: only exact values are supported", ErrValidation, parts[0])
	}
	hour, err := cronField(parts[1], 0, 23)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: hour field %q: only exact values are supported", ErrValidation, parts[1])
	}

	var weekday *time.Weekday
	if parts[4] != "*" {
		wd, ok := dayNames[strings.ToUpper(parts[4])]
		if !ok {
			return time.Time{}, fmt.Errorf("%w: unknown day of week %q", ErrValidation, parts[4])
		}
		weekday = &wd
	}

	// Shift "now" into the user's wall clock, do all calendar math there,
	// then shift back. Offsets are fixed, so the shift is symmetric.
	offset := TimezoneOffset(timezone)
	local := from.UTC().Add(offset)

	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, time.UTC)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	if weekday != nil {
		for candidate.Weekday() != *weekday {
			candidate = candidate.AddDate(0, 0, 1)
		}
	}

	return candidate.Add(-offset), nil
}

// cronField parses an exact numeric cron field; "*" maps to zero.
func cronField(s string, min, max int) (int, error) {
	if s == "*" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, fmt.Errorf("value %d out of range [%d,%d]", n, min, max)
	}
	return n, nil
}
