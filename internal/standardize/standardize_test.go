package standardize

import (
	"testing"
	"time"

	"github.com/nlevents/calpipe/internal/canonical"
	"github.com/nlevents/calpipe/internal/types"
)

func strPtr(s string) *string { return &s }

func TestStandardize_RangeSameDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, time.October, 1, 8, 0, 0, 0, loc)
	res := types.Resolution{
		StartText: "October 24, 2025 02:00 pm",
		EndText:   "October 24, 2025 04:00 pm",
		Duration:  strPtr("30m"),
	}

	got, err := Standardize(res, loc, now)
	if err != nil {
		t.Fatalf("Standardize() error = %v", err)
	}
	if got.Start.After(got.End) {
		t.Errorf("invariant violated: start %v after end %v", got.Start, got.End)
	}
	if got.Duration == nil || *got.Duration != "PT30M" {
		t.Errorf("Duration = %v, want PT30M", got.Duration)
	}
}

func TestStandardize_PastStartOnlyUsesNow(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, time.October, 24, 15, 0, 0, 0, loc)
	res := types.Resolution{
		StartText: "October 24, 2025 09:00 am", // before now
		EndText:   "October 24, 2025 11:59 pm", // after now
	}

	got, err := Standardize(res, loc, now)
	if err != nil {
		t.Fatalf("Standardize() error = %v", err)
	}
	if !got.Start.Equal(now) {
		t.Errorf("Start = %v, want now %v", got.Start, now)
	}
}

func TestStandardize_BothPastAdvancesOneDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, time.October, 24, 15, 0, 0, 0, loc)
	res := types.Resolution{
		StartText: "October 24, 2025 09:00 am",
		EndText:   "October 24, 2025 10:00 am",
	}

	got, err := Standardize(res, loc, now)
	if err != nil {
		t.Fatalf("Standardize() error = %v", err)
	}
	if got.Start.Day() != 25 || got.End.Day() != 25 {
		t.Errorf("expected both start and end advanced by one day, got start=%v end=%v", got.Start, got.End)
	}
}

func TestStandardize_EndPastPreservesEndTimeOfDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, time.October, 24, 15, 0, 0, 0, loc)
	res := types.Resolution{
		StartText: "October 25, 2025 09:00 am", // future
		EndText:   "October 24, 2025 11:00 am", // past
	}

	got, err := Standardize(res, loc, now)
	if err != nil {
		t.Fatalf("Standardize() error = %v", err)
	}
	if got.End.Day() != 25 || got.End.Hour() != 11 {
		t.Errorf("expected end date moved to start's date with time preserved, got %v", got.End)
	}
}

func TestStandardize_BadOrderingRepaired(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, time.October, 1, 8, 0, 0, 0, loc)
	res := types.Resolution{
		StartText: "October 24, 2025 08:00 pm",
		EndText:   "October 24, 2025 06:00 pm",
	}

	got, err := Standardize(res, loc, now)
	if err != nil {
		t.Fatalf("Standardize() error = %v", err)
	}
	if got.Start.After(got.End) {
		t.Errorf("invariant violated after repair: start %v after end %v", got.Start, got.End)
	}
	if got.End.Hour() != 23 || got.End.Minute() != 59 {
		t.Errorf("expected repaired end at 23:59, got %v", got.End)
	}
}

func TestStandardize_IdempotentOnOwnOutput(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, time.October, 1, 8, 0, 0, 0, loc)
	res := types.Resolution{
		StartText: "October 24, 2025 02:00 pm",
		EndText:   "October 24, 2025 04:00 pm",
		Duration:  strPtr("1.5h"),
	}

	first, err := Standardize(res, loc, now)
	if err != nil {
		t.Fatalf("first Standardize() error = %v", err)
	}

	roundTripped := types.Resolution{
		StartText: canonical.Format(first.Start),
		EndText:   canonical.Format(first.End),
		Duration:  first.Duration,
	}
	second, err := Standardize(roundTripped, loc, now)
	if err != nil {
		t.Fatalf("second Standardize() error = %v", err)
	}

	if !first.Start.Equal(second.Start) || !first.End.Equal(second.End) {
		t.Errorf("TS is not idempotent: first=%+v second=%+v", first, second)
	}
}

func TestNormalizeDuration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"30m", "PT30M"},
		{"2h", "PT2H"},
		{"2h 30m", "PT2H30M"},
		{"1.5h", "PT1H30M"},
		{"half an hour", "PT30M"},
		{"an hour", "PT1H"},
		{"banana", ""},
	}
	for _, tt := range tests {
		got := normalizeDuration(strPtr(tt.in))
		if tt.want == "" {
			if got != nil {
				t.Errorf("normalizeDuration(%q) = %v, want nil", tt.in, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("normalizeDuration(%q) = %v, want %q", tt.in, got, tt.want)
		}
	}
}

