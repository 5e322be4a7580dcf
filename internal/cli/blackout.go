package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/nlevents/calpipe/internal/config"
	"github.com/nlevents/calpipe/internal/schedule"
)

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// blackoutsFromConfig converts validated BlackoutConfig entries into
// scheduler blackouts. Entries that fail to parse are skipped rather
// than aborting startup — config.Validate already rejected malformed
// entries before this point, so this is defense in depth, not the
// primary validation path.
func blackoutsFromConfig(entries []config.BlackoutConfig) []schedule.Blackout {
	blackouts := make([]schedule.Blackout, 0, len(entries))
	for _, e := range entries {
		startMin, ok := clockMinutes(e.Start)
		if !ok {
			continue
		}
		endMin, ok := clockMinutes(e.End)
		if !ok {
			continue
		}

		if e.Weekday != "" {
			wd, ok := weekdayByName[strings.ToLower(e.Weekday)]
			if !ok {
				continue
			}
			blackouts = append(blackouts, schedule.NewWeeklyBlackout(wd, startMin, endMin))
			continue
		}

		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			continue
		}
		blackouts = append(blackouts, schedule.NewDateBlackout(date, startMin, endMin))
	}
	return blackouts
}

// workdayBlackouts turns every weekday absent from workdays into a
// recurring all-day blackout, so TA never places a slot on a
// non-workday without a dedicated blackouts entry for it.
func workdayBlackouts(workdays []string) []schedule.Blackout {
	configured := make(map[time.Weekday]bool, len(workdays))
	for _, d := range workdays {
		if wd, ok := weekdayByName[strings.ToLower(d)]; ok {
			configured[wd] = true
		}
	}

	var blackouts []schedule.Blackout
	for _, wd := range weekdayByName {
		if !configured[wd] {
			blackouts = append(blackouts, schedule.NewWeeklyBlackout(wd, 0, 24*60))
		}
	}
	return blackouts
}

func clockMinutes(hhmm string) (int, bool) {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0, false
	}
	hour, err := strconv.Atoi(hhmm[0:2])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(hhmm[3:5])
	if err != nil {
		return 0, false
	}
	return hour*60 + minute, true
}
