// Package pipeline wires the eight stages — UQ, SE, AR, TS, TD, LD
// (complex tasks only), TA, EC — into one deterministic run, grounded
// on the original implementation's PipelineOrchestrator.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/nlevents/calpipe/internal/calendarbridge"
	"github.com/nlevents/calpipe/internal/classify"
	"github.com/nlevents/calpipe/internal/decompose"
	"github.com/nlevents/calpipe/internal/event"
	"github.com/nlevents/calpipe/internal/llm"
	"github.com/nlevents/calpipe/internal/query"
	"github.com/nlevents/calpipe/internal/resolve"
	"github.com/nlevents/calpipe/internal/schedule"
	"github.com/nlevents/calpipe/internal/slot"
	"github.com/nlevents/calpipe/internal/standardize"
	"github.com/nlevents/calpipe/internal/store"
	"github.com/nlevents/calpipe/internal/types"
)

// Horizon caps how far out TA looks for free time: the window runs from
// the standardized start to the standardized end, but never past 30
// days after the start.
const Horizon = 30 * 24 * time.Hour

// defaultSimpleDuration is used when neither TS nor TD resolved an
// explicit duration for a simple task.
const defaultSimpleDuration = "PT30M"

// Pipeline holds every stage's collaborators, built once and reused
// across runs.
type Pipeline struct {
	llmClient llm.Client
	bridge    *calendarbridge.Client
	store     *store.Store
	scheduler *schedule.Scheduler
	creator   *event.Creator
	logger    *slog.Logger
}

// New builds a Pipeline from its collaborators. opts configures the
// scheduler's work-hour window, blackouts, and placement constraints.
func New(llmClient llm.Client, bridge *calendarbridge.Client, db *store.Store, opts schedule.Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = NewLogger()
	}
	return &Pipeline{
		llmClient: llmClient,
		bridge:    bridge,
		store:     db,
		scheduler: schedule.New(bridge, opts),
		creator:   event.New(bridge, db),
		logger:    logger,
	}
}

// Result is the outcome of one end-to-end run.
type Result struct {
	Simple  *types.ScheduledSimple
	Complex *types.ScheduledComplex
	Created []event.CreateResult
	Failed  []event.CreateResult
}

// Run drives rawQuery through all eight stages. timezone is the IANA
// zone UQ resolves against; it also anchors TS's "now" and TA's
// scheduling window.
func (p *Pipeline) Run(ctx context.Context, rawQuery, timezone string) (Result, error) {
	// Stage 1: UQ
	start := time.Now()
	uq, loc, err := query.New(rawQuery, timezone)
	logStage(ctx, p.logger, "UQ", start, err)
	if err != nil {
		return Result{}, NewStageError("UQ", KindInputInvalid, rawQuery, err)
	}

	clock := NewClockContext(time.Now(), loc)

	// Stage 2: SE
	start = time.Now()
	slots := slot.Extract(ctx, p.llmClient, uq.Query)
	logStage(ctx, p.logger, "SE", start, nil)

	// Stage 3: AR
	start = time.Now()
	resolver := resolve.New(p.llmClient)
	resolution := resolver.Resolve(ctx, slots, clock)
	logStage(ctx, p.logger, "AR", start, nil)

	// Stage 4: TS
	start = time.Now()
	standardized, tsErr := standardize.Standardize(resolution, loc, clock.Now)
	if tsErr != nil {
		standardized = standardize.Safe(resolution, loc, clock.Now)
	}
	logStage(ctx, p.logger, "TS", start, tsErr)

	// Stage 5: TD
	start = time.Now()
	classifier := classify.New(p.llmClient, p.bridge)
	classification := classifier.Classify(ctx, uq.Query, standardized.Duration)
	logStage(ctx, p.logger, "TD", start, nil)
	if classification.Calendar == "" {
		err := fmt.Errorf("no writable calendar resolved for query %q", uq.Query)
		logStage(ctx, p.logger, "TD", start, err)
		return Result{}, NewStageError("TD", KindNoCalendar, classification, err)
	}

	window := types.Window{Start: standardized.Start, End: standardized.End}
	if limit := standardized.Start.Add(Horizon); window.End.After(limit) {
		window.End = limit
	}

	// Simple path: TA then EC directly.
	if classification.Type == types.TypeSimple {
		duration, err := simpleDuration(standardized, classification)
		if err != nil {
			return Result{}, NewStageError("TA", KindInputInvalid, classification, err)
		}

		start = time.Now()
		scheduled, err := p.scheduler.ScheduleSimple(ctx, classification.Calendar, classification.Title, duration, window)
		logStage(ctx, p.logger, "TA", start, err)
		if err != nil {
			return Result{}, scheduleStageError(err, scheduled)
		}

		start = time.Now()
		created := p.creator.CreateSimple(ctx, scheduled)
		logStage(ctx, p.logger, "EC", start, createErr(created))
		if !created.Success {
			return Result{Simple: &scheduled}, NewStageError("EC", KindDBError, created, fmt.Errorf("%s", created.Error))
		}
		return Result{Simple: &scheduled, Created: []event.CreateResult{created}}, nil
	}

	// Complex path: LD, then TA, then EC.
	start = time.Now()
	decomposer := decompose.New(p.llmClient)
	decomposition := decomposer.Decompose(ctx, classification)
	logStage(ctx, p.logger, "LD", start, nil)

	durations := make([]time.Duration, len(decomposition.Subtasks))
	for i, st := range decomposition.Subtasks {
		d, err := parseISODuration(st.Duration)
		if err != nil {
			return Result{}, NewStageError("TA", KindInputInvalid, st, err)
		}
		durations[i] = d
	}

	start = time.Now()
	scheduled, err := p.scheduler.ScheduleComplex(ctx, classification.Calendar, classification.Title, decomposition.Subtasks, durations, window)
	logStage(ctx, p.logger, "TA", start, err)
	if err != nil {
		return Result{}, scheduleStageError(err, scheduled)
	}

	start = time.Now()
	complexResult := p.creator.CreateComplex(ctx, scheduled)
	var stageErr error
	if len(complexResult.Failed) > 0 {
		stageErr = fmt.Errorf("%d of %d subtasks failed", len(complexResult.Failed), len(scheduled.Subtasks))
	}
	logStage(ctx, p.logger, "EC", start, stageErr)

	return Result{Complex: &scheduled, Created: complexResult.Created, Failed: complexResult.Failed}, nil
}

// Delete removes taskID (cascading to children if it is a parent).
func (p *Pipeline) Delete(ctx context.Context, taskID string) event.DeleteResult {
	return p.creator.DeleteByID(ctx, taskID)
}

// DeleteChildren removes every child of parentID.
func (p *Pipeline) DeleteChildren(ctx context.Context, parentID string) event.DeleteResult {
	return p.creator.DeleteByParentID(ctx, parentID)
}

// simpleDuration resolves a simple task's duration with TS taking
// priority over TD, falling back to defaultSimpleDuration when neither
// stage produced one.
func simpleDuration(std types.Standardized, cls types.Classification) (time.Duration, error) {
	if std.Duration != nil {
		return parseISODuration(*std.Duration)
	}
	if cls.Duration != nil {
		return parseISODuration(*cls.Duration)
	}
	return parseISODuration(defaultSimpleDuration)
}

func createErr(r event.CreateResult) error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("%s", r.Error)
}

var isoDurationRe = regexp.MustCompile(`^PT(\d+H)?(\d+M)?$`)

// parseISODuration parses the pipeline's constrained ISO-8601 duration
// grammar ("PT[nH][nM]"), the same shape TD/LD normalize to.
func parseISODuration(s string) (time.Duration, error) {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid ISO-8601 duration: %q", s)
	}
	var d time.Duration
	if m[1] != "" {
		hours, _ := strconv.Atoi(m[1][:len(m[1])-1])
		d += time.Duration(hours) * time.Hour
	}
	if m[2] != "" {
		minutes, _ := strconv.Atoi(m[2][:len(m[2])-1])
		d += time.Duration(minutes) * time.Minute
	}
	if d == 0 {
		return 0, fmt.Errorf("invalid ISO-8601 duration: %q", s)
	}
	return d, nil
}

func scheduleStageError(err error, _ any) *StageError {
	switch {
	case err == schedule.ErrNoFreeSlots:
		return NewStageError("TA", KindNoFreeSlots, nil, err)
	case err == schedule.ErrInfeasible:
		return NewStageError("TA", KindInfeasible, nil, err)
	default:
		if _, ok := err.(*schedule.CannotPlaceError); ok {
			return NewStageError("TA", KindCannotPlace, nil, err)
		}
		return NewStageError("TA", KindInputInvalid, nil, err)
	}
}
