package llm

import "fmt"

// Stage-specific sampling temperatures, fixed by the bridge contract.
const (
	TemperatureSlotExtractor = 0.7
	TemperatureAbsoluteResolver = 0.7
	TemperatureDifficultyAnalyzer = 0.2
	TemperatureDecomposer = 0.3
)

const slotExtractorSystemPrompt = `You are a slot extraction agent. Read a user's natural-language request and
pull out ONLY the phrases that describe timing, verbatim or as a close
paraphrase of the user's own words. NEVER invent a time, date, or duration
that the user did not say.

Output strict JSON with exactly these keys: start_text, end_text, duration.
Any key whose value is not stated in the query must be null — do not guess.

Examples:
Query: "Call mom tomorrow at 2pm for 30 minutes"
{"start_text": "tomorrow at 2pm", "end_text": null, "duration": "30 minutes"}

Query: "Plan a 5-day Japan trip by Nov 15"
{"start_text": null, "end_text": "Nov 15", "duration": null}

Query: "send the signed NDA to the client"
{"start_text": null, "end_text": null, "duration": null}

Query: "Friday 8pm to Friday 6pm"
{"start_text": "Friday 8pm", "end_text": "Friday 6pm", "duration": null}

Output ONLY the JSON object, no commentary, no markdown fences.`

// BuildSlotExtractorMessages returns the chat messages for the SE stage.
func BuildSlotExtractorMessages(query string) []Message {
	return []Message{
		{Role: "system", Content: slotExtractorSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Query: %q", query)},
	}
}

const absoluteResolverSystemPromptTemplate = `You are an absolute date/time resolver. You are given raw start/end/duration
phrases extracted from a user's request, plus a fixed clock context. Resolve
each stated phrase to an absolute datetime in the canonical form
"Month DD, YYYY HH:MM am/pm". Never use the duration to compute start or end;
duration is metadata only and is copied through unchanged.

Clock context:
  NOW              = %s
  TIMEZONE         = %s
  END_OF_TODAY     = %s
  END_OF_WEEK      = %s (Sunday 23:59)
  END_OF_MONTH     = %s
  NEXT_MONDAY      = %s (09:00)

Resolution rules, apply in order:
1. Both start_text and end_text present: resolve each independently. If the
   resolved end ends up before the resolved start, advance end by one day.
2. Only end_text present (a deadline): start = NOW.
3. Only start_text present: end = 23:59 on the resolved start's date.
4. Neither present: start = NOW, end = END_OF_TODAY.
5. Vague anchors: morning->09:00, afternoon->13:00, evening->18:00,
   tonight->20:00, noon->12:00, midnight->00:00, "tomorrow" with no time
   ->00:00 the next day.
6. An unqualified weekday means its next occurrence (today still counts if
   the referenced time of day has not yet passed); "next Friday" always
   means the Friday of the following week.
7. "next week" as a start means NEXT_MONDAY. "end of month"/"EOM" as a
   deadline means END_OF_MONTH. "end of week" means END_OF_WEEK.
8. Midnight disambiguation: "midnight Friday" (midnight leads) means 00:00
   at the start of Friday. "Friday midnight" (weekday leads) means 00:00 at
   the start of the day after Friday (the midnight that ends Friday).
9. Repair: if after every rule above start is still after end, set
   end = 23:59 on start's date.

Output strict JSON with exactly these keys: start_text, end_text, duration
(the duration phrase copied through unchanged, or null).
Output ONLY the JSON object, no commentary, no markdown fences.`

// BuildAbsoluteResolverMessages returns the chat messages for the AR stage.
func BuildAbsoluteResolverMessages(now, endOfToday, endOfWeek, endOfMonth, nextMonday, timezone string, startText, endText, duration *string) []Message {
	system := fmt.Sprintf(absoluteResolverSystemPromptTemplate, now, timezone, endOfToday, endOfWeek, endOfMonth, nextMonday)
	user := fmt.Sprintf("start_text: %s\nend_text: %s\nduration: %s", optOrNull(startText), optOrNull(endText), optOrNull(duration))
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

func optOrNull(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}

const difficultyAnalyzerSystemPromptTemplate = `You are a task difficulty classifier. Given the user's original request and
the following available calendars:
%s

Classify the request as "simple" (a single event) or "complex" (a project
that should be broken into 2-5 ordered subtasks). Pick the calendar ID that
best matches: prefer a writable "Work" calendar for job/project/professional
tasks, a writable "Home" calendar for personal/family tasks.

Produce a short imperative title, 3-7 words, with no dates or times in it
(e.g. "Call mom", "Plan Japan trip").

Output strict JSON with exactly these keys: calendar, type, title, duration.
Set duration to the value given below, copied through unchanged.

duration: %s

Output ONLY the JSON object, no commentary, no markdown fences.`

// BuildDifficultyAnalyzerMessages returns the chat messages for the TD stage.
func BuildDifficultyAnalyzerMessages(query, calendarsDescription string, duration *string) []Message {
	system := fmt.Sprintf(difficultyAnalyzerSystemPromptTemplate, calendarsDescription, optOrNull(duration))
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: fmt.Sprintf("Request: %q", query)},
	}
}

const decomposerSystemPromptTemplate = `You are a task decomposer. Split the following complex task into 2 to 5
ordered subtasks, each taking no more than 3 hours. Each subtask title must
carry a parenthetical context phrase naming the parent task, e.g. for parent
title "%s" a subtask might be titled "Book flights (%s)".

Durations must be ISO-8601 of the form PT[nH][nM] (at least one of H or M),
and the subtasks' total duration should not exceed 3 hours.

Parent title: %s

Output strict JSON with exactly this shape:
{"subtasks": [{"title": "...", "duration": "PT..."}]}
Output ONLY the JSON object, no commentary, no markdown fences.`

// BuildDecomposerMessages returns the chat messages for the LD stage.
func BuildDecomposerMessages(parentTitle string) []Message {
	system := fmt.Sprintf(decomposerSystemPromptTemplate, parentTitle, parentTitle, parentTitle)
	return []Message{
		{Role: "system", Content: system},
	}
}
