// Package sessionwindow derives the advisory 5-hour session window
// from the human reset label the quota service reports, e.g. "7pm" or
// "2:59pm" in a named timezone.
package sessionwindow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Duration is the fixed length of a session window.
const Duration = 5 * time.Hour

var labelPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)$`)

// ParseLabel parses a clock label like "7pm" or "2:59pm" into a
// 24-hour clock. The hour must be 1-12 and minutes, when present,
// 00-59.
func ParseLabel(label string) (hour, minute int, err error) {
	m := labelPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(label)))
	if m == nil {
		return 0, 0, fmt.Errorf("unrecognized reset label %q", label)
	}

	hour, _ = strconv.Atoi(m[1])
	if hour < 1 || hour > 12 {
		return 0, 0, fmt.Errorf("reset label hour out of range: %q", label)
	}
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
		if minute > 59 {
			return 0, 0, fmt.Errorf("reset label minute out of range: %q", label)
		}
	}

	// Convert 12-hour clock to 24-hour
	if m[3] == "pm" && hour != 12 {
		hour += 12
	} else if m[3] == "am" && hour == 12 {
		hour = 0
	}
	return hour, minute, nil
}

// FormatLabel renders a time as the service's clock label form:
// lowercase meridiem, minutes elided on the hour.
func FormatLabel(t time.Time) string {
	if t.Minute() == 0 {
		return strings.ToLower(t.Format("3pm"))
	}
	return strings.ToLower(t.Format("3:04pm"))
}

// ResetInstant resolves a reset label to today's concrete instant in
// the given zone. Unknown zones fall back to UTC.
func ResetInstant(label, tz string, now time.Time) (time.Time, error) {
	hour, minute, err := ParseLabel(label)
	if err != nil {
		return time.Time{}, err
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}

	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc), nil
}

// WindowStart estimates when the current session window opened, given
// the advertised reset label. When the reset is still ahead today the
// window runs up to it, so it started five hours earlier; once the
// reset has passed, a fresh window is assumed to have opened at the
// reset instant. The result is advisory and returned in UTC.
func WindowStart(label, tz string, now time.Time) (time.Time, error) {
	reset, err := ResetInstant(label, tz, now)
	if err != nil {
		return time.Time{}, err
	}

	if now.Before(reset) {
		return reset.Add(-Duration).UTC(), nil
	}
	return reset.UTC(), nil
}
