package schedule

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nlevents/calpipe/internal/calendarbridge"
	"github.com/nlevents/calpipe/internal/types"
)

func newBridgeServer(t *testing.T, events []calendarbridge.Event) *calendarbridge.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/events" {
			_ = json.NewEncoder(w).Encode(events)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return calendarbridge.New(srv.URL)
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parsing %q: %v", s, err)
	}
	return tm
}

func TestScheduleSimple_HappyPathAvoidsBusyEvent(t *testing.T) {
	bridge := newBridgeServer(t, []calendarbridge.Event{
		{Title: "Standup", Calendar: "Work", StartISO: "2025-10-24T09:00:00Z", EndISO: "2025-10-24T09:30:00Z"},
	})
	window := types.Window{
		Start: mustParse(t, "2025-10-24T06:00:00Z"),
		End:   mustParse(t, "2025-10-24T23:00:00Z"),
	}
	s := New(bridge, DefaultOptions())

	got, err := s.ScheduleSimple(context.Background(), "work-1", "Call mom", 30*time.Minute, window)
	if err != nil {
		t.Fatalf("ScheduleSimple() error = %v", err)
	}
	if got.Slot.Duration() != 30*time.Minute {
		t.Errorf("Duration = %v, want 30m", got.Slot.Duration())
	}
	busyStart := mustParse(t, "2025-10-24T09:00:00Z")
	busyEnd := mustParse(t, "2025-10-24T09:30:00Z")
	if got.Slot.Start.Before(busyEnd) && got.Slot.End.After(busyStart) {
		t.Errorf("scheduled slot %v-%v overlaps the busy event", got.Slot.Start, got.Slot.End)
	}
	if got.ParentID != nil {
		t.Error("ParentID should be nil for a simple task")
	}
}

func TestScheduleSimple_NoFreeSlotsWhenFullyBooked(t *testing.T) {
	bridge := newBridgeServer(t, []calendarbridge.Event{
		{Title: "All day", Calendar: "Work", StartISO: "2025-10-24T06:00:00Z", EndISO: "2025-10-24T23:00:00Z"},
	})
	window := types.Window{
		Start: mustParse(t, "2025-10-24T06:00:00Z"),
		End:   mustParse(t, "2025-10-24T23:00:00Z"),
	}
	s := New(bridge, DefaultOptions())

	_, err := s.ScheduleSimple(context.Background(), "work-1", "Call mom", 30*time.Minute, window)
	if err != ErrNoFreeSlots {
		t.Errorf("err = %v, want ErrNoFreeSlots", err)
	}
}

func TestScheduleSimple_HolidayCalendarEventsDoNotBlock(t *testing.T) {
	bridge := newBridgeServer(t, []calendarbridge.Event{
		{Title: "Thanksgiving", Calendar: "US Holidays", StartISO: "2025-10-24T06:00:00Z", EndISO: "2025-10-24T23:00:00Z"},
	})
	window := types.Window{
		Start: mustParse(t, "2025-10-24T06:00:00Z"),
		End:   mustParse(t, "2025-10-24T23:00:00Z"),
	}
	s := New(bridge, DefaultOptions())

	_, err := s.ScheduleSimple(context.Background(), "work-1", "Call mom", 30*time.Minute, window)
	if err != nil {
		t.Fatalf("ScheduleSimple() error = %v, want nil (holiday events are excluded)", err)
	}
}

func TestScheduleSimple_Infeasible(t *testing.T) {
	bridge := newBridgeServer(t, nil)
	window := types.Window{
		Start: mustParse(t, "2025-10-24T06:00:00Z"),
		End:   mustParse(t, "2025-10-24T06:30:00Z"),
	}
	s := New(bridge, DefaultOptions())

	_, err := s.ScheduleSimple(context.Background(), "work-1", "Long task", 2*time.Hour, window)
	if err != ErrInfeasible {
		t.Errorf("err = %v, want ErrInfeasible", err)
	}
}

func TestScheduleComplex_PreservesOrderAndPrecedence(t *testing.T) {
	bridge := newBridgeServer(t, nil)
	window := types.Window{
		Start: mustParse(t, "2025-10-24T06:00:00Z"),
		End:   mustParse(t, "2025-10-25T23:00:00Z"),
	}
	s := New(bridge, DefaultOptions())

	subtasks := []types.Subtask{
		{Title: "Research (trip)", Duration: "PT1H"},
		{Title: "Book flights (trip)", Duration: "PT2H"},
		{Title: "Finalize (trip)", Duration: "PT30M"},
	}
	durations := []time.Duration{time.Hour, 2 * time.Hour, 30 * time.Minute}

	got, err := s.ScheduleComplex(context.Background(), "home-1", "Plan trip", subtasks, durations, window)
	if err != nil {
		t.Fatalf("ScheduleComplex() error = %v", err)
	}
	if len(got.Subtasks) != 3 {
		t.Fatalf("len(Subtasks) = %d, want 3", len(got.Subtasks))
	}
	for i, st := range got.Subtasks {
		if st.ParentID != got.ID {
			t.Errorf("Subtasks[%d].ParentID = %q, want parent ID %q", i, st.ParentID, got.ID)
		}
		if st.Title != subtasks[i].Title {
			t.Errorf("Subtasks[%d].Title = %q, want %q (order not preserved)", i, st.Title, subtasks[i].Title)
		}
		if i > 0 && st.Slot.Start.Before(got.Subtasks[i-1].Slot.End) {
			t.Errorf("precedence violated: subtask %d starts before subtask %d ends", i, i-1)
		}
	}
}

func TestScheduleComplex_MinGapEnforcesCooldown(t *testing.T) {
	bridge := newBridgeServer(t, nil)
	window := types.Window{
		Start: mustParse(t, "2025-10-24T06:00:00Z"),
		End:   mustParse(t, "2025-10-24T23:00:00Z"),
	}
	opts := DefaultOptions()
	opts.MinGapMinutes = 15
	s := New(bridge, opts)

	subtasks := []types.Subtask{
		{Title: "Step one (x)", Duration: "PT1H"},
		{Title: "Step two (x)", Duration: "PT1H"},
	}
	durations := []time.Duration{time.Hour, time.Hour}

	got, err := s.ScheduleComplex(context.Background(), "work-1", "Do x", subtasks, durations, window)
	if err != nil {
		t.Fatalf("ScheduleComplex() error = %v", err)
	}
	gap := got.Subtasks[1].Slot.Start.Sub(got.Subtasks[0].Slot.End)
	if gap < 15*time.Minute {
		t.Errorf("gap between subtasks = %v, want >= 15m cooldown", gap)
	}
}

func TestEvenSpreadTargets(t *testing.T) {
	tests := []struct {
		numTasks, numDays int
		want              []int
	}{
		{1, 5, []int{2}},
		{2, 5, []int{0, 4}},
		{3, 5, []int{0, 2, 4}},
		{5, 5, []int{0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		got := evenSpreadTargets(tt.numTasks, tt.numDays)
		if len(got) != len(tt.want) {
			t.Fatalf("evenSpreadTargets(%d,%d) = %v, want %v", tt.numTasks, tt.numDays, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("evenSpreadTargets(%d,%d)[%d] = %d, want %d", tt.numTasks, tt.numDays, i, got[i], tt.want[i])
			}
		}
	}
}
