// Package canonical formats and parses the canonical absolute-datetime
// string form every resolver stage exchanges: "Month DD, YYYY HH:MM am/pm".
package canonical

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Format renders t in the canonical absolute form, e.g. "October 22,
// 2025 02:00 pm".
func Format(t time.Time) string {
	hour := t.Hour()
	ampm := "am"
	if hour >= 12 {
		ampm = "pm"
	}
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%s %02d, %04d %02d:%02d %s", t.Month().String(), t.Day(), t.Year(), hour12, t.Minute(), ampm)
}

var (
	canonicalRe = regexp.MustCompile(`(?i)^([A-Za-z]+)\s+(\d{2}),\s+(\d{4})\s+(\d{2}):(\d{2})\s+(am|pm)$`)
	extendedRe  = regexp.MustCompile(`(?i)^[A-Za-z]+,\s+([A-Za-z]+)\s+(\d{2}),\s+(\d{4})\s+(\d{2}):(\d{2})\s+(am|pm)$`)
)

var monthByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// Parse accepts the canonical form, the extended "Weekday, Month DD,
// YYYY HH:MM am/pm" form, or falls back to RFC3339 — matching the Time
// Standardizer's documented fallback chain — and returns a time in loc
// (an RFC3339 input keeps the offset it carries).
func Parse(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)

	if m := canonicalRe.FindStringSubmatch(s); m != nil {
		return buildTime(m, loc)
	}
	if m := extendedRe.FindStringSubmatch(s); m != nil {
		return buildTime(m, loc)
	}
	if t, err := time.ParseInLocation(time.RFC3339, s, loc); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("could not parse canonical datetime: %q", s)
}

func buildTime(m []string, loc *time.Location) (time.Time, error) {
	month, ok := monthByName[strings.ToLower(m[1])]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month name: %q", m[1])
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])

	ampm := strings.ToLower(m[6])
	if ampm == "pm" && hour != 12 {
		hour += 12
	} else if ampm == "am" && hour == 12 {
		hour = 0
	}

	return time.Date(year, month, day, hour, minute, 0, 0, loc), nil
}
