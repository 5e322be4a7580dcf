// Package resolve implements the Absolute Resolver (AR) stage: turning
// verbatim start/end/duration phrases into canonical absolute datetimes
// using a clock context captured once at ingress. On LLM failure it
// falls back to NOW/END_OF_TODAY, matching the original agent's
// documented safe-degradation behavior.
package resolve

import (
	"context"
	"time"

	"github.com/nlevents/calpipe/internal/canonical"
	"github.com/nlevents/calpipe/internal/llm"
	"github.com/nlevents/calpipe/internal/pipeline"
	"github.com/nlevents/calpipe/internal/types"
)

// Resolver resolves Slots to a Resolution via the LLM bridge.
type Resolver struct {
	client llm.Client
}

// New creates a Resolver bound to the given LLM bridge client.
func New(client llm.Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve runs the AR stage. clock must be the same ClockContext
// captured at UQ for this request.
func (r *Resolver) Resolve(ctx context.Context, slots types.Slots, clock pipeline.ClockContext) types.Resolution {
	messages := llm.BuildAbsoluteResolverMessages(
		canonical.Format(clock.Now),
		canonical.Format(clock.EndOfToday),
		canonical.Format(clock.EndOfWeek),
		canonical.Format(clock.EndOfMonth),
		canonical.Format(clock.NextMonday),
		clock.Timezone.String(),
		slots.StartText, slots.EndText, slots.Duration,
	)

	var raw struct {
		StartText string  `json:"start_text"`
		EndText   string  `json:"end_text"`
		Duration  *string `json:"duration"`
	}

	if err := r.client.ChatJSON(ctx, messages, llm.ChatOptions{Temperature: llm.TemperatureAbsoluteResolver}, &raw); err != nil {
		return safeFallback(clock, slots.Duration)
	}
	if raw.StartText == "" || raw.EndText == "" {
		return safeFallback(clock, slots.Duration)
	}

	startDT, errStart := canonical.Parse(raw.StartText, clock.Timezone)
	endDT, errEnd := canonical.Parse(raw.EndText, clock.Timezone)
	if errStart != nil || errEnd != nil {
		return safeFallback(clock, slots.Duration)
	}

	// Rule 1 cross-midnight repair: if end ended up before start, advance
	// end by one day before falling through to the general repair rule.
	if endDT.Before(startDT) {
		endDT = endDT.AddDate(0, 0, 1)
	}
	// Rule 8 repair: if still inverted, pin end to 23:59 on start's date.
	if endDT.Before(startDT) {
		endDT = endOfDayOf(startDT)
	}

	return types.Resolution{
		StartText: canonical.Format(startDT),
		EndText:   canonical.Format(endDT),
		Duration:  raw.Duration,
	}
}

// safeFallback implements rule 4 (neither stated) as the degradation
// path for LLM failure/malformed output: start=NOW, end=END_OF_TODAY,
// duration copied through verbatim.
func safeFallback(clock pipeline.ClockContext, duration *string) types.Resolution {
	return types.Resolution{
		StartText: canonical.Format(clock.Now),
		EndText:   canonical.Format(clock.EndOfToday),
		Duration:  duration,
	}
}

func endOfDayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, t.Location())
}
