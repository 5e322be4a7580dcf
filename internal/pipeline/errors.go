package pipeline

import "fmt"

// ErrorKind classifies why a stage aborted the pipeline, per the error
// handling design: each stage's failure maps into exactly one kind so
// callers can branch on StageError.Kind instead of string matching.
type ErrorKind string

const (
	KindInputInvalid    ErrorKind = "input_invalid"
	KindLLMFailure      ErrorKind = "llm_failure"
	KindLLMMalformed    ErrorKind = "llm_malformed"
	KindNoCalendar      ErrorKind = "no_calendar"
	KindNoFreeSlots     ErrorKind = "no_free_slots"
	KindInfeasible      ErrorKind = "infeasible"
	KindCannotPlace     ErrorKind = "cannot_place"
	KindBridgeTransient ErrorKind = "bridge_transient"
	KindBridgePermanent ErrorKind = "bridge_permanent"
	KindDBError         ErrorKind = "db_error"
)

// StageError is the uniform error type surfaced by every pipeline stage.
// Stage names the abbreviation (UQ, SE, AR, TS, TD, LD, TA, EC) so an
// orchestrator abort can report "which stage, what it saw, why".
type StageError struct {
	Stage string
	Kind  ErrorKind
	Input any
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with the stage and kind that produced it.
func NewStageError(stage string, kind ErrorKind, input any, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Input: input, Err: err}
}
