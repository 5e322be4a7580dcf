// Package standardize implements the Time Standardizer (TS) stage: a
// pure function turning a canonical-string Resolution into timezone-aware
// instants and a normalized ISO-8601 duration. No hidden clock — "now"
// is always an explicit parameter, matching this module's existing
// date-handling packages.
package standardize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nlevents/calpipe/internal/canonical"
	"github.com/nlevents/calpipe/internal/types"
)

// Standardize runs the TS stage against res, in loc, relative to now.
// Returns an error when either start_text or end_text fails to parse
// under every accepted format (canonical, extended, RFC3339) — callers
// are expected to fall back to Safe on that error.
func Standardize(res types.Resolution, loc *time.Location, now time.Time) (types.Standardized, error) {
	start, err := canonical.Parse(res.StartText, loc)
	if err != nil {
		return types.Standardized{}, fmt.Errorf("parsing start_text: %w", err)
	}
	end, err := canonical.Parse(res.EndText, loc)
	if err != nil {
		return types.Standardized{}, fmt.Errorf("parsing end_text: %w", err)
	}

	isEOD := strings.HasSuffix(strings.TrimSpace(res.EndText), "11:59 pm")
	start = withSeconds(start, false)
	end = withSeconds(end, isEOD)

	now = now.In(loc)
	start, end = adjustPastTimes(start, end, now)
	start, end = enforceInvariant(start, end)

	return types.Standardized{
		Start:    start,
		End:      end,
		Duration: normalizeDuration(res.Duration),
	}, nil
}

// Safe is TS's fallback for when Standardize's input is irrecoverable:
// start=now, end=end-of-today, duration normalized as in Standardize.
func Safe(res types.Resolution, loc *time.Location, now time.Time) types.Standardized {
	now = now.In(loc)
	endOfToday := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, loc)
	return types.Standardized{
		Start:    now,
		End:      endOfToday,
		Duration: normalizeDuration(res.Duration),
	}
}

func withSeconds(t time.Time, isEOD bool) time.Time {
	sec := 0
	if isEOD && t.Hour() == 23 && t.Minute() == 59 {
		sec = 59
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), sec, 0, t.Location())
}

// adjustPastTimes applies the three past-time adjustment rules relative
// to now, timezone-aware.
func adjustPastTimes(start, end, now time.Time) (time.Time, time.Time) {
	startPast := start.Before(now)
	endPast := end.Before(now)

	switch {
	case !startPast && !endPast:
		return start, end
	case startPast && endPast:
		return start.AddDate(0, 0, 1), end.AddDate(0, 0, 1)
	case startPast && !endPast:
		return now, end
	default: // !startPast && endPast
		adjustedEnd := time.Date(start.Year(), start.Month(), start.Day(), end.Hour(), end.Minute(), end.Second(), end.Nanosecond(), end.Location())
		return start, adjustedEnd
	}
}

// enforceInvariant repairs start>end by pinning end to 23:59:59 on
// start's date.
func enforceInvariant(start, end time.Time) (time.Time, time.Time) {
	if !start.After(end) {
		return start, end
	}
	repaired := time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 59, 0, start.Location())
	return start, repaired
}

var (
	minutesRe  = regexp.MustCompile(`^(\d+)\s*(m|min|mins|minute|minutes)$`)
	hoursRe    = regexp.MustCompile(`^(\d+)\s*(h|hr|hrs|hour|hours)$`)
	compoundRe = regexp.MustCompile(`^(\d+)\s*(h|hr|hrs|hour|hours)\s*(\d+)\s*(m|min|mins|minute|minutes)$`)
	decimalRe  = regexp.MustCompile(`^(\d+\.\d+)\s*(h|hr|hrs|hour|hours)$`)
)

// normalizeDuration converts a free-text duration phrase to ISO-8601
// PT[nH][nM]. Returns nil for anything it cannot confidently parse —
// this stage is strict, not best-effort.
func normalizeDuration(d *string) *string {
	if d == nil {
		return nil
	}
	s := strings.ToLower(strings.TrimSpace(*d))
	if s == "" {
		return nil
	}

	if s == "half an hour" || s == "half hour" {
		return iso("PT30M")
	}
	if s == "an hour" || s == "one hour" {
		return iso("PT1H")
	}

	if m := minutesRe.FindStringSubmatch(s); m != nil {
		return iso(fmt.Sprintf("PT%sM", m[1]))
	}
	if m := hoursRe.FindStringSubmatch(s); m != nil {
		return iso(fmt.Sprintf("PT%sH", m[1]))
	}
	if m := compoundRe.FindStringSubmatch(s); m != nil {
		return iso(fmt.Sprintf("PT%sH%sM", m[1], m[3]))
	}
	if m := decimalRe.FindStringSubmatch(s); m != nil {
		hoursFloat, _ := strconv.ParseFloat(m[1], 64)
		hours := int(hoursFloat)
		minutes := int((hoursFloat - float64(hours)) * 60)
		return iso(fmt.Sprintf("PT%dH%dM", hours, minutes))
	}

	return nil
}

func iso(s string) *string { return &s }
