// Package schedule implements the Time Allotment Agent (TA) stage: free-
// slot computation against the calendar bridge, constrained ordered
// placement of one or more task durations into a window, anti-bunching
// even spread across eligible days, and output validation.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nlevents/calpipe/internal/calendarbridge"
	"github.com/nlevents/calpipe/internal/types"
)

// ErrNoFreeSlots means the bridge returned a window with no free time
// at all once busy events were subtracted.
var ErrNoFreeSlots = errors.New("no free time slots available within window")

// ErrInfeasible means the sum of required durations exceeds total
// available minutes before placement is even attempted.
var ErrInfeasible = errors.New("infeasible: required durations exceed available time in window")

// CannotPlaceError reports that task Index could not be placed under
// the current constraints.
type CannotPlaceError struct {
	Index int
}

func (e *CannotPlaceError) Error() string {
	return fmt.Sprintf("cannot place task index %d before window end with current constraints", e.Index)
}

// Options configures placement constraints beyond the bare window.
type Options struct {
	WorkStartHour  int // default 6 (6am)
	WorkEndHour    int // default 23 (11pm)
	MaxTasksPerDay int // 0 means unlimited
	MinGapMinutes  int // cooldown after each placement, same day
	Blackouts      []Blackout
}

// DefaultOptions returns the documented default work-hour window with no
// blackouts, no cap, no cooldown.
func DefaultOptions() Options {
	return Options{WorkStartHour: 6, WorkEndHour: 23}
}

// Scheduler runs the TA stage against the calendar bridge.
type Scheduler struct {
	bridge *calendarbridge.Client
	opts   Options
}

// New creates a Scheduler bound to bridge with the given Options.
func New(bridge *calendarbridge.Client, opts Options) *Scheduler {
	return &Scheduler{bridge: bridge, opts: opts}
}

// ScheduleSimple places a single task of the given duration within
// window on calendar, returning a fully validated ScheduledSimple.
func (s *Scheduler) ScheduleSimple(ctx context.Context, calendar, title string, duration time.Duration, window types.Window) (types.ScheduledSimple, error) {
	free, busy, err := s.freeSlots(ctx, calendar, window)
	if err != nil {
		return types.ScheduledSimple{}, err
	}

	assignments, err := placeOrdered([]time.Duration{duration}, free, window, s.opts)
	if err != nil {
		return types.ScheduledSimple{}, err
	}

	slot := types.Slot{Start: assignments[0].start, End: assignments[0].end}
	if err := validateSlot(slot, duration, window, busy); err != nil {
		return types.ScheduledSimple{}, fmt.Errorf("validating scheduled slot: %w", err)
	}

	return types.ScheduledSimple{
		ID:       uuid.NewString(),
		Calendar: calendar,
		Title:    title,
		Slot:     slot,
		ParentID: nil,
	}, nil
}

// ScheduleComplex places len(subtasks) ordered durations within window
// on calendar, enforcing precedence between consecutive subtasks.
func (s *Scheduler) ScheduleComplex(ctx context.Context, calendar, title string, subtasks []types.Subtask, durations []time.Duration, window types.Window) (types.ScheduledComplex, error) {
	if len(subtasks) != len(durations) {
		return types.ScheduledComplex{}, fmt.Errorf("subtasks/durations length mismatch: %d vs %d", len(subtasks), len(durations))
	}

	free, busy, err := s.freeSlots(ctx, calendar, window)
	if err != nil {
		return types.ScheduledComplex{}, err
	}

	assignments, err := placeOrdered(durations, free, window, s.opts)
	if err != nil {
		return types.ScheduledComplex{}, err
	}

	parentID := uuid.NewString()
	scheduled := make([]types.ScheduledSubtask, len(subtasks))
	for i, st := range subtasks {
		slot := types.Slot{Start: assignments[i].start, End: assignments[i].end}
		if err := validateSlot(slot, durations[i], window, busy); err != nil {
			return types.ScheduledComplex{}, fmt.Errorf("validating subtask %d slot: %w", i, err)
		}
		if i > 0 && slot.Start.Before(scheduled[i-1].Slot.End) {
			return types.ScheduledComplex{}, fmt.Errorf("precedence violation: subtask %d starts before subtask %d ends", i, i-1)
		}
		scheduled[i] = types.ScheduledSubtask{
			ID:       uuid.NewString(),
			Title:    st.Title,
			Slot:     slot,
			ParentID: parentID,
		}
	}

	if err := validateNoOverlap(scheduled); err != nil {
		return types.ScheduledComplex{}, err
	}

	return types.ScheduledComplex{
		ID:       parentID,
		Calendar: calendar,
		Title:    title,
		Subtasks: scheduled,
	}, nil
}

// freeSlots fetches busy events for calendar within window, excludes
// holiday-calendar events, and returns the complementary free intervals
// alongside the busy events (needed later for overlap validation).
func (s *Scheduler) freeSlots(ctx context.Context, calendar string, window types.Window) ([]interval, []calendarbridge.Event, error) {
	days := daysSpan(window.Start, window.End)
	events, err := s.bridge.Events(ctx, calendarbridge.EventsQuery{Days: days, CalendarID: calendar})
	if err != nil {
		return nil, nil, fmt.Errorf("fetching calendar events: %w", err)
	}

	busy := make([]calendarbridge.Event, 0, len(events))
	for _, ev := range events {
		if isHoliday(ev) {
			continue
		}
		busy = append(busy, ev)
	}

	free, err := freeIntervals(busy, window)
	if err != nil {
		return nil, nil, err
	}
	if len(free) == 0 {
		return nil, nil, ErrNoFreeSlots
	}
	return free, busy, nil
}

func isHoliday(ev calendarbridge.Event) bool {
	return containsFold(ev.Calendar, "holiday")
}

func containsFold(s, substr string) bool {
	return len(s) >= len(substr) && indexFold(s, substr) >= 0
}

// indexFold is a tiny case-insensitive substring search, avoiding a
// dependency on strings.ToLower allocating for every event on the hot
// path of a long calendar fetch.
func indexFold(s, substr string) int {
	n, m := len(s), len(substr)
	for i := 0; i+m <= n; i++ {
		match := true
		for j := 0; j < m; j++ {
			a, b := s[i+j], substr[j]
			if 'A' <= a && a <= 'Z' {
				a += 'a' - 'A'
			}
			if 'A' <= b && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// freeIntervals computes the gaps in busy within [window.Start, window.End),
// walking a cursor across busy events sorted by start, per spec.md §4.7.1.
func freeIntervals(busy []calendarbridge.Event, window types.Window) ([]interval, error) {
	type busyIv struct{ start, end time.Time }
	ivs := make([]busyIv, 0, len(busy))
	for _, ev := range busy {
		start, err := time.Parse(time.RFC3339, ev.StartISO)
		if err != nil {
			return nil, fmt.Errorf("parsing event start_iso %q: %w", ev.StartISO, err)
		}
		end, err := time.Parse(time.RFC3339, ev.EndISO)
		if err != nil {
			return nil, fmt.Errorf("parsing event end_iso %q: %w", ev.EndISO, err)
		}
		ivs = append(ivs, busyIv{start: start, end: end})
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].start.Before(ivs[j].start) })

	var free []interval
	cursor := window.Start
	for _, iv := range ivs {
		if !iv.end.After(cursor) {
			continue
		}
		if cursor.Before(iv.start) {
			slotEnd := iv.start
			if window.End.Before(slotEnd) {
				slotEnd = window.End
			}
			if cursor.Before(slotEnd) {
				free = append(free, interval{start: cursor, end: slotEnd})
			}
		}
		if iv.end.After(cursor) {
			cursor = iv.end
		}
	}
	if cursor.Before(window.End) {
		free = append(free, interval{start: cursor, end: window.End})
	}
	return free, nil
}

func daysSpan(start, end time.Time) int {
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	if days > calendarbridge.MaxDays {
		days = calendarbridge.MaxDays
	}
	return days
}

// placeOrdered runs the constrained ordered placement + anti-bunching
// algorithm of spec.md §4.7.2/§4.7.3 over free, honoring opts.
func placeOrdered(durations []time.Duration, free []interval, window types.Window, opts Options) ([]interval, error) {
	startHour, endHour := opts.WorkStartHour, opts.WorkEndHour
	if startHour == 0 && endHour == 0 {
		startHour, endHour = 6, 23
	}

	var pieces []interval
	for _, iv := range free {
		pieces = append(pieces, splitByMidnight(iv.start, iv.end)...)
	}

	dayWindows := map[time.Time][]interval{}
	for _, p := range pieces {
		capped := p
		if capped.end.After(window.End) {
			capped.end = window.End
		}
		if !capped.start.Before(capped.end) {
			continue
		}

		d0 := dayStartOf(capped.start)
		workWindow := interval{
			start: d0.Add(time.Duration(startHour) * time.Hour),
			end:   d0.Add(time.Duration(endHour) * time.Hour),
		}
		if iv, ok := intersect(capped, workWindow); ok {
			dayWindows[d0] = append(dayWindows[d0], iv)
		}
	}

	applyBlackouts(dayWindows, opts.Blackouts)

	for d, ivs := range dayWindows {
		merged := mergeIntervals(ivs)
		if len(merged) == 0 {
			delete(dayWindows, d)
			continue
		}
		dayWindows[d] = merged
	}

	eligibleDays := make([]time.Time, 0, len(dayWindows))
	for d := range dayWindows {
		eligibleDays = append(eligibleDays, d)
	}
	sort.Slice(eligibleDays, func(i, j int) bool { return eligibleDays[i].Before(eligibleDays[j]) })
	if len(eligibleDays) == 0 {
		return nil, ErrNoFreeSlots
	}

	totalAvail := time.Duration(0)
	for _, d := range eligibleDays {
		for _, iv := range dayWindows[d] {
			totalAvail += iv.end.Sub(iv.start)
		}
	}
	totalNeed := time.Duration(0)
	for _, dur := range durations {
		totalNeed += dur
	}
	if opts.MinGapMinutes > 0 && len(durations) > 1 {
		totalNeed += time.Duration(len(durations)-1) * time.Duration(opts.MinGapMinutes) * time.Minute
	}
	if totalAvail < totalNeed {
		return nil, ErrInfeasible
	}

	targets := evenSpreadTargets(len(durations), len(eligibleDays))
	perDayCount := make(map[time.Time]int, len(eligibleDays))
	dayIndex := make(map[time.Time]int, len(eligibleDays))
	for i, d := range eligibleDays {
		dayIndex[d] = i
	}

	assignments := make([]interval, len(durations))
	for idx, dur := range durations {
		target := targets[idx]

		ranked := make([]time.Time, len(eligibleDays))
		copy(ranked, eligibleDays)
		sort.SliceStable(ranked, func(i, j int) bool {
			di, dj := abs(dayIndex[ranked[i]]-target), abs(dayIndex[ranked[j]]-target)
			if di != dj {
				return di < dj
			}
			return perDayCount[ranked[i]] < perDayCount[ranked[j]]
		})

		placed := false
		for _, day := range ranked {
			if opts.MaxTasksPerDay > 0 && perDayCount[day] >= opts.MaxTasksPerDay {
				continue
			}
			block, ok := findEarliestBlock(dayWindows[day], dur)
			if !ok {
				continue
			}

			assignments[idx] = block
			dayWindows[day] = subtractBlock(dayWindows[day], block.start, block.end)
			if opts.MinGapMinutes > 0 {
				gapEnd := block.end.Add(time.Duration(opts.MinGapMinutes) * time.Minute)
				dayWindows[day] = subtractBlock(dayWindows[day], block.end, gapEnd)
			}
			perDayCount[day]++
			placed = true
			break
		}
		if !placed {
			return nil, &CannotPlaceError{Index: idx}
		}
	}

	return assignments, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// validateSlot enforces spec.md §4.7.5's per-slot checks.
func validateSlot(slot types.Slot, required time.Duration, window types.Window, busy []calendarbridge.Event) error {
	if slot.Start.Before(window.Start) {
		return fmt.Errorf("slot starts before window: %v < %v", slot.Start, window.Start)
	}
	if slot.End.After(window.End) {
		return fmt.Errorf("slot ends after window: %v > %v", slot.End, window.End)
	}
	if !slot.Start.Before(slot.End) {
		return fmt.Errorf("invalid slot: start %v not before end %v", slot.Start, slot.End)
	}
	if slot.Duration() != required {
		return fmt.Errorf("duration mismatch: expected %v, got %v", required, slot.Duration())
	}
	for _, ev := range busy {
		evStart, err := time.Parse(time.RFC3339, ev.StartISO)
		if err != nil {
			continue
		}
		evEnd, err := time.Parse(time.RFC3339, ev.EndISO)
		if err != nil {
			continue
		}
		if slot.Start.Before(evEnd) && slot.End.After(evStart) {
			return fmt.Errorf("overlaps busy event %q", ev.Title)
		}
	}
	return nil
}

func validateNoOverlap(subtasks []types.ScheduledSubtask) error {
	for i := 0; i < len(subtasks); i++ {
		for j := i + 1; j < len(subtasks); j++ {
			a, b := subtasks[i].Slot, subtasks[j].Slot
			if a.Start.Before(b.End) && a.End.After(b.Start) {
				return fmt.Errorf("overlap detected between subtasks %d and %d", i, j)
			}
		}
	}
	return nil
}
