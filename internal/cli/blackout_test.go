package cli

import (
	"testing"
	"time"

	"github.com/nlevents/calpipe/internal/config"
)

func TestBlackoutsFromConfig(t *testing.T) {
	entries := []config.BlackoutConfig{
		{Weekday: "saturday", Start: "00:00", End: "23:59"},
		{Date: "2025-12-25", Start: "00:00", End: "23:59"},
		{Weekday: "bogus", Start: "00:00", End: "01:00"}, // skipped: unknown weekday
	}

	got := blackoutsFromConfig(entries)
	if len(got) != 2 {
		t.Fatalf("expected 2 blackouts, got %d", len(got))
	}
}

func TestWorkdayBlackouts_FullWeek(t *testing.T) {
	got := workdayBlackouts([]string{"monday", "tuesday", "wednesday", "thursday", "friday"})
	if len(got) != 2 {
		t.Fatalf("expected 2 weekend blackouts, got %d", len(got))
	}

	weekdays := map[time.Weekday]bool{}
	for _, b := range got {
		if !b.HasWeekday {
			t.Errorf("expected weekday blackout, got date blackout")
		}
		if b.StartClock != 0 || b.EndClock != 24*60 {
			t.Errorf("expected all-day blackout, got %d-%d", b.StartClock, b.EndClock)
		}
		weekdays[b.Weekday] = true
	}
	if !weekdays[time.Saturday] || !weekdays[time.Sunday] {
		t.Error("expected saturday and sunday to be blacked out")
	}
}

func TestWorkdayBlackouts_EverydayWorkday(t *testing.T) {
	got := workdayBlackouts([]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"})
	if len(got) != 0 {
		t.Errorf("expected no blackouts when every day is a workday, got %d", len(got))
	}
}

func TestWorkdayBlackouts_IgnoresUnknownNames(t *testing.T) {
	got := workdayBlackouts([]string{"monday", "bogus"})
	// "bogus" is silently ignored; every real weekday except monday is blacked out
	if len(got) != 6 {
		t.Fatalf("expected 6 blackouts, got %d", len(got))
	}
}
