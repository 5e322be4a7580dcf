// Package types holds the data model shared across pipeline stages: the
// tagged records each stage consumes and produces, from the raw user
// query through to a scheduled, persisted task.
package types

import "time"

// UserQuery is the ingress record. Immutable through the pipeline.
type UserQuery struct {
	Query    string
	Timezone string
}

// Slots holds the Slot Extractor's verbatim phrases. Any field may be nil,
// meaning "not stated" — SE never invents a value.
type Slots struct {
	StartText *string `json:"start_text"`
	EndText   *string `json:"end_text"`
	Duration  *string `json:"duration"`
}

// Resolution holds the Absolute Resolver's canonical-absolute strings.
// Canonical form: "Month DD, YYYY HH:MM am/pm".
type Resolution struct {
	StartText string
	EndText   string
	Duration  *string
}

// Standardized holds timezone-aware instants and a normalized ISO-8601
// duration. Invariant: Start must not be after End.
type Standardized struct {
	Start    time.Time
	End      time.Time
	Duration *string
}

// TaskType distinguishes a single-event task from one that decomposes
// into ordered subtask events.
type TaskType string

const (
	TypeSimple  TaskType = "simple"
	TypeComplex TaskType = "complex"
)

// Classification is the Task Difficulty Analyzer's output. Invariant: if
// Duration is non-nil, Type must be TypeSimple.
type Classification struct {
	Calendar string // calendar ID; empty means unresolved (NoCalendar)
	Type     TaskType
	Title    string
	Duration *string
}

// Subtask is one ordered, undecorated unit of a Decomposition.
type Subtask struct {
	Title    string
	Duration string // ISO-8601 "PT[nH][nM]"
}

// Decomposition is the LLM Decomposer's output: 2-5 ordered subtasks,
// each capped at 3 hours.
type Decomposition struct {
	Calendar string
	Title    string
	Subtasks []Subtask
}

// Slot is a concrete, timezone-aware placement interval.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Duration returns the slot's length.
func (s Slot) Duration() time.Duration { return s.End.Sub(s.Start) }

// ScheduledSimple is a single placed event.
type ScheduledSimple struct {
	ID       string
	Calendar string
	Title    string
	Slot     Slot
	ParentID *string // always nil for a simple task
}

// ScheduledSubtask is one placed child event of a ScheduledComplex.
type ScheduledSubtask struct {
	ID       string
	Title    string
	Slot     Slot
	ParentID string
}

// ScheduledComplex is a parent task (no calendar event of its own) with
// 2-5 ordered, placed subtask events.
type ScheduledComplex struct {
	ID       string
	Calendar string
	Title    string
	Subtasks []ScheduledSubtask
}

// Window is the outer [Start,End] bound for a TA placement attempt.
type Window struct {
	Start time.Time
	End   time.Time
}
