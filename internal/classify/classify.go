// Package classify implements the Task Difficulty Analyzer (TD) stage:
// LLM classification of a query into simple/complex, calendar selection
// against the bridge's Work/Home calendars, and a set of hard rules that
// override whatever the LLM proposes.
package classify

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nlevents/calpipe/internal/calendarbridge"
	"github.com/nlevents/calpipe/internal/llm"
	"github.com/nlevents/calpipe/internal/types"
)

// workKeywords and homeKeywords back the calendar-substitution rule when
// the LLM's chosen calendar doesn't match a resolved Work/Home ID.
var (
	workKeywords = []string{"client", "manager", "team", "meeting", "deck", "proposal", "report", "prd", "sprint", "code", "repo", "deploy", "invoice", "expense", "contract", "nda", "design", "marketing", "sales", "finance", "legal", "roadmap", "okr"}
	homeKeywords = []string{"mom", "dad", "family", "friend", "groceries", "laundry", "gym", "workout", "dentist", "doctor", "birthday", "rent", "clean", "apartment", "house"}
)

var titleCaser = cases.Title(language.English)

// Classifier runs the TD stage.
type Classifier struct {
	llm    llm.Client
	bridge *calendarbridge.Client
}

// New creates a Classifier bound to the given LLM and calendar bridge
// clients.
func New(llmClient llm.Client, bridge *calendarbridge.Client) *Classifier {
	return &Classifier{llm: llmClient, bridge: bridge}
}

// calendarIDs holds the resolved Work/Home calendar IDs, empty string if
// not found.
type calendarIDs struct {
	workID string
	homeID string
}

// resolveCalendars finds Work and Home calendars by case-insensitive
// title match, preferring writable (allows_modifications) calendars,
// exact match before substring match.
func resolveCalendars(calendars []calendarbridge.Calendar) calendarIDs {
	var ids calendarIDs

	for _, cal := range calendars {
		title := strings.ToLower(strings.TrimSpace(cal.Title))
		if !cal.AllowsModifications {
			continue
		}
		switch {
		case title == "work" && ids.workID == "":
			ids.workID = cal.ID
		case title == "home" && ids.homeID == "":
			ids.homeID = cal.ID
		}
	}

	for _, cal := range calendars {
		title := strings.ToLower(strings.TrimSpace(cal.Title))
		if !cal.AllowsModifications {
			continue
		}
		if ids.workID == "" && strings.Contains(title, "work") {
			ids.workID = cal.ID
		} else if ids.homeID == "" && strings.Contains(title, "home") {
			ids.homeID = cal.ID
		}
	}

	return ids
}

// Classify runs the TD stage for query with the duration carried over
// from TS. On any failure to fetch calendars it proceeds with no
// calendar IDs resolved; on LLM failure it falls back to a heuristic
// classification using only the hard rules.
func (c *Classifier) Classify(ctx context.Context, query string, duration *string) types.Classification {
	calendars, err := c.bridge.Calendars(ctx)
	if err != nil {
		calendars = nil
	}
	ids := resolveCalendars(calendars)

	messages := llm.BuildDifficultyAnalyzerMessages(query, describeCalendars(ids), duration)

	var raw struct {
		Calendar *string `json:"calendar"`
		Type     string  `json:"type"`
		Title    string  `json:"title"`
		Duration *string `json:"duration"`
	}

	if err := c.llm.ChatJSON(ctx, messages, llm.ChatOptions{Temperature: llm.TemperatureDifficultyAnalyzer}, &raw); err != nil {
		return heuristicFallback(query, duration, ids)
	}

	return applyHardRules(query, duration, ids, raw.Calendar, raw.Type, raw.Title)
}

// applyHardRules enforces the rules TD never delegates to the LLM: the
// duration-implies-simple rule, calendar substitution when the LLM's
// pick matches neither resolved ID, verbatim duration pass-through, and
// title normalization.
func applyHardRules(query string, duration *string, ids calendarIDs, llmCalendar *string, llmType, llmTitle string) types.Classification {
	taskType := types.TypeComplex
	if duration != nil {
		taskType = types.TypeSimple
	} else if llmType == string(types.TypeSimple) {
		taskType = types.TypeSimple
	}

	calendar := selectCalendar(query, ids, llmCalendar)

	title := normalizeTitle(llmTitle)
	if title == "" {
		title = normalizeTitle(query)
	}

	return types.Classification{
		Calendar: calendar,
		Type:     taskType,
		Title:    title,
		Duration: duration,
	}
}

// selectCalendar validates llmCalendar against the resolved IDs and
// substitutes via keyword match when it matches neither.
func selectCalendar(query string, ids calendarIDs, llmCalendar *string) string {
	if llmCalendar != nil && *llmCalendar != "" {
		if *llmCalendar == ids.workID || *llmCalendar == ids.homeID {
			return *llmCalendar
		}
	}

	queryLower := strings.ToLower(query)
	hasWork := containsAny(queryLower, workKeywords)
	hasHome := containsAny(queryLower, homeKeywords)

	switch {
	case hasWork && ids.workID != "":
		return ids.workID
	case hasHome && ids.homeID != "":
		return ids.homeID
	case ids.workID != "":
		return ids.workID
	case ids.homeID != "":
		return ids.homeID
	default:
		return ""
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// normalizeTitle capitalizes the first word (the rest keep their casing)
// and clamps to the 3-7 word budget by truncating (never padding — a
// short LLM title is left as-is).
func normalizeTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > 7 {
		words = words[:7]
	}
	words[0] = titleCaser.String(words[0])
	return strings.Join(words, " ")
}

// heuristicFallback is TD's degradation path for LLM failure: type from
// the duration-presence rule alone, calendar from keyword matching only,
// title from the truncated query.
func heuristicFallback(query string, duration *string, ids calendarIDs) types.Classification {
	taskType := types.TypeComplex
	if duration != nil {
		taskType = types.TypeSimple
	}
	return types.Classification{
		Calendar: selectCalendar(query, ids, nil),
		Type:     taskType,
		Title:    normalizeTitle(query),
		Duration: duration,
	}
}

func describeCalendars(ids calendarIDs) string {
	work := "null"
	if ids.workID != "" {
		work = ids.workID
	}
	home := "null"
	if ids.homeID != "" {
		home = ids.homeID
	}
	return "Work: " + work + ", Home: " + home
}
