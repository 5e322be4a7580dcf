package schedule

import "time"

// Blackout is a recurring (weekday-based) or date-specific time-of-day
// range subtracted from a day's availability, per spec.md §4.7.2.
// Exactly one of Weekday or Date is set; StartClock/EndClock are
// minutes since midnight.
type Blackout struct {
	Weekday     time.Weekday
	HasWeekday  bool
	Date        time.Time // truncated to day; only meaningful if !HasWeekday
	StartClock  int       // minutes since midnight
	EndClock    int       // minutes since midnight
}

// NewWeeklyBlackout creates a recurring blackout for the given weekday.
func NewWeeklyBlackout(weekday time.Weekday, startClock, endClock int) Blackout {
	return Blackout{Weekday: weekday, HasWeekday: true, StartClock: startClock, EndClock: endClock}
}

// NewDateBlackout creates a one-off blackout for the given calendar date.
func NewDateBlackout(date time.Time, startClock, endClock int) Blackout {
	return Blackout{Date: dayStartOf(date), StartClock: startClock, EndClock: endClock}
}

// appliesTo reports whether b applies to the calendar day starting at
// dayStart.
func (b Blackout) appliesTo(dayStart time.Time) bool {
	if b.HasWeekday {
		return dayStart.Weekday() == b.Weekday
	}
	y, m, d := b.Date.Date()
	dy, dm, dd := dayStart.Date()
	return y == dy && m == dm && d == dd
}

// interval returns the absolute [start,end) blackout interval for the
// given day.
func (b Blackout) interval(dayStart time.Time) interval {
	return interval{
		start: dayStart.Add(time.Duration(b.StartClock) * time.Minute),
		end:   dayStart.Add(time.Duration(b.EndClock) * time.Minute),
	}
}

// applyBlackouts subtracts every applicable blackout from each day's
// availability, in place.
func applyBlackouts(dayWindows map[time.Time][]interval, blackouts []Blackout) {
	for day, intervals := range dayWindows {
		for _, b := range blackouts {
			if !b.appliesTo(day) {
				continue
			}
			bi := b.interval(day)
			intervals = subtractBlock(intervals, bi.start, bi.end)
		}
		dayWindows[day] = intervals
	}
}
