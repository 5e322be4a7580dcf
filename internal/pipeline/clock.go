package pipeline

import "time"

// ClockContext carries the deterministic instants the Absolute Resolver
// needs to turn relative phrases ("tomorrow", "next Friday", "EOM") into
// canonical absolute datetimes. It is captured once at UQ and threaded
// unchanged to AR; nothing downstream re-derives "now".
type ClockContext struct {
	Now       time.Time
	Timezone  *time.Location
	EndOfToday,
	EndOfWeek,
	EndOfMonth,
	NextMonday time.Time
	// NextOccurrence maps a lowercase weekday name to the date of its
	// next occurrence on or after Now (today's own weekday maps to today).
	NextOccurrence map[string]time.Time
}

var weekdayNames = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// NewClockContext builds a ClockContext anchored at now, in loc.
func NewClockContext(now time.Time, loc *time.Location) ClockContext {
	now = now.In(loc)

	endOfToday := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 0, 0, loc)

	daysUntilSunday := (int(time.Sunday) - int(now.Weekday()) + 7) % 7
	endOfWeekDay := now.AddDate(0, 0, daysUntilSunday)
	endOfWeek := time.Date(endOfWeekDay.Year(), endOfWeekDay.Month(), endOfWeekDay.Day(), 23, 59, 0, 0, loc)

	firstOfNextMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
	endOfMonth := firstOfNextMonth.Add(-time.Minute).Truncate(time.Minute)
	endOfMonth = time.Date(endOfMonth.Year(), endOfMonth.Month(), endOfMonth.Day(), 23, 59, 0, 0, loc)

	daysUntilMonday := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if daysUntilMonday == 0 {
		daysUntilMonday = 7
	}
	nextMondayDay := now.AddDate(0, 0, daysUntilMonday)
	nextMonday := time.Date(nextMondayDay.Year(), nextMondayDay.Month(), nextMondayDay.Day(), 9, 0, 0, 0, loc)

	occurrences := make(map[string]time.Time, len(weekdayNames))
	for wd, name := range weekdayNames {
		daysUntil := (wd - int(now.Weekday()) + 7) % 7
		day := now.AddDate(0, 0, daysUntil)
		occurrences[name] = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	}

	return ClockContext{
		Now:            now,
		Timezone:       loc,
		EndOfToday:     endOfToday,
		EndOfWeek:      endOfWeek,
		EndOfMonth:     endOfMonth,
		NextMonday:     nextMonday,
		NextOccurrence: occurrences,
	}
}
