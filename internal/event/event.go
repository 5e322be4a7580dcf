// Package event is the Event Creator stage: it writes scheduled tasks
// to the external calendar bridge, persists the resulting linkage, and
// handles cascade deletion, grounded on the original implementation's
// EventCreatorAgent.
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/nlevents/calpipe/internal/calendarbridge"
	"github.com/nlevents/calpipe/internal/store"
	"github.com/nlevents/calpipe/internal/types"
)

// backoffDelays mirrors the original's retry schedule: 100ms, 500ms, 2s.
var backoffDelays = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}

const maxAttempts = 3

// Creator writes scheduled events through the calendar bridge and
// persists the id/calendar linkage.
type Creator struct {
	bridge *calendarbridge.Client
	store  *store.Store
	sleep  func(time.Duration) // overridable in tests
}

// New builds a Creator writing through bridge and persisting via db.
func New(bridge *calendarbridge.Client, db *store.Store) *Creator {
	return &Creator{bridge: bridge, store: db, sleep: time.Sleep}
}

// CreateResult is the outcome of creating one event (a simple task's or
// one subtask's).
type CreateResult struct {
	Success         bool
	TaskID          string
	CalendarEventID string
	Error           string
}

// CreateSimple posts one event for a simple scheduled task and persists
// the linkage on success.
func (c *Creator) CreateSimple(ctx context.Context, s types.ScheduledSimple) CreateResult {
	if s.Slot.Start.After(s.Slot.End) || s.Slot.Start.Equal(s.Slot.End) {
		return CreateResult{Success: false, TaskID: s.ID, Error: "invalid slot: start >= end"}
	}

	req := calendarbridge.AddRequest{
		Title:      s.Title,
		StartISO:   s.Slot.Start.Format(time.RFC3339),
		EndISO:     s.Slot.End.Format(time.RFC3339),
		CalendarID: s.Calendar,
		Notes:      notesFor(s.ID, nil),
	}

	ev, err := c.postWithRetry(ctx, req)
	if err != nil {
		return CreateResult{Success: false, TaskID: s.ID, Error: err.Error()}
	}
	if ev.ID == "" {
		return CreateResult{Success: false, TaskID: s.ID, Error: "bridge did not return an event id"}
	}

	if err := c.store.UpsertSimple(ctx, s.ID, s.Title, s.Calendar, ev.ID); err != nil {
		return CreateResult{Success: false, TaskID: s.ID, Error: fmt.Sprintf("persisting task: %v", err)}
	}
	return CreateResult{Success: true, TaskID: s.ID, CalendarEventID: ev.ID}
}

// ComplexResult is the outcome of creating a complex task's subtask
// events. The parent itself never gets an external event.
type ComplexResult struct {
	Created []CreateResult
	Failed  []CreateResult
}

// CreateComplex posts one event per subtask, tolerating partial
// failures: the parent and every successfully-created subtask are
// persisted even when sibling subtasks fail.
func (c *Creator) CreateComplex(ctx context.Context, s types.ScheduledComplex) ComplexResult {
	if err := c.store.UpsertParent(ctx, s.ID, s.Title); err != nil {
		return ComplexResult{Failed: []CreateResult{{Success: false, TaskID: s.ID, Error: fmt.Sprintf("persisting parent: %v", err)}}}
	}

	var result ComplexResult
	for _, st := range s.Subtasks {
		if st.Slot.Start.After(st.Slot.End) || st.Slot.Start.Equal(st.Slot.End) {
			result.Failed = append(result.Failed, CreateResult{Success: false, TaskID: st.ID, Error: "invalid slot: start >= end"})
			continue
		}

		parentID := s.ID
		req := calendarbridge.AddRequest{
			Title:      st.Title,
			StartISO:   st.Slot.Start.Format(time.RFC3339),
			EndISO:     st.Slot.End.Format(time.RFC3339),
			CalendarID: s.Calendar,
			Notes:      notesFor(st.ID, &parentID),
		}

		ev, err := c.postWithRetry(ctx, req)
		if err != nil {
			result.Failed = append(result.Failed, CreateResult{Success: false, TaskID: st.ID, Error: err.Error()})
			continue
		}
		if ev.ID == "" {
			result.Failed = append(result.Failed, CreateResult{Success: false, TaskID: st.ID, Error: "bridge did not return an event id"})
			continue
		}

		if err := c.store.UpsertSubtask(ctx, st.ID, s.ID, st.Title, s.Calendar, ev.ID); err != nil {
			result.Failed = append(result.Failed, CreateResult{Success: false, TaskID: st.ID, Error: fmt.Sprintf("persisting subtask: %v", err)})
			continue
		}
		result.Created = append(result.Created, CreateResult{Success: true, TaskID: st.ID, CalendarEventID: ev.ID})
	}
	return result
}

// DeleteEntry is one row of a DeleteResult's deleted/skipped/errors list.
type DeleteEntry struct {
	TaskID          string
	CalendarEventID string
	Reason          string
}

// DeleteResult mirrors the original's delete response shape.
type DeleteResult struct {
	Target  string // "id" or "parent_id"
	Deleted []DeleteEntry
	Skipped []DeleteEntry
	Errors  []DeleteEntry
}

// DeleteByID deletes taskID, cascading to its children if it is a
// parent.
func (c *Creator) DeleteByID(ctx context.Context, taskID string) DeleteResult {
	result := DeleteResult{Target: "id"}

	children, err := c.store.MappingsForParent(ctx, taskID)
	if err != nil {
		result.Errors = append(result.Errors, DeleteEntry{TaskID: taskID, Reason: err.Error()})
		return result
	}

	if len(children) > 0 {
		for _, child := range children {
			c.deleteChild(ctx, child, &result)
		}
	} else if mapping, found, err := c.store.MappingForTask(ctx, taskID); err != nil {
		result.Errors = append(result.Errors, DeleteEntry{TaskID: taskID, Reason: err.Error()})
		return result
	} else if found {
		c.deleteChild(ctx, mapping, &result)
	} else {
		result.Skipped = append(result.Skipped, DeleteEntry{TaskID: taskID, Reason: "not_found"})
	}

	if err := c.store.DeleteTaskCascade(ctx, taskID); err != nil {
		result.Errors = append(result.Errors, DeleteEntry{TaskID: taskID, Reason: fmt.Sprintf("local cleanup: %v", err)})
	}
	return result
}

// DeleteByParentID deletes every child of parentID, leaving the parent
// row removed as well.
func (c *Creator) DeleteByParentID(ctx context.Context, parentID string) DeleteResult {
	result := DeleteResult{Target: "parent_id"}

	children, err := c.store.MappingsForParent(ctx, parentID)
	if err != nil {
		result.Errors = append(result.Errors, DeleteEntry{TaskID: parentID, Reason: err.Error()})
		return result
	}
	for _, child := range children {
		c.deleteChild(ctx, child, &result)
	}

	if err := c.store.DeleteTaskCascade(ctx, parentID); err != nil {
		result.Errors = append(result.Errors, DeleteEntry{TaskID: parentID, Reason: fmt.Sprintf("local cleanup: %v", err)})
	}
	return result
}

func (c *Creator) deleteChild(ctx context.Context, mapping store.EventMapping, result *DeleteResult) {
	dr, err := c.deleteWithRetry(ctx, mapping.CalendarEventID)
	if err != nil {
		result.Errors = append(result.Errors, DeleteEntry{TaskID: mapping.TaskID, Reason: err.Error()})
		return
	}
	if !dr.Deleted {
		result.Skipped = append(result.Skipped, DeleteEntry{TaskID: mapping.TaskID, Reason: "already_deleted"})
		return
	}
	result.Deleted = append(result.Deleted, DeleteEntry{TaskID: mapping.TaskID, CalendarEventID: mapping.CalendarEventID})
}

// postWithRetry retries transient (5xx/network) failures up to
// maxAttempts with the original's fixed backoff schedule; 4xx failures
// return immediately.
func (c *Creator) postWithRetry(ctx context.Context, req calendarbridge.AddRequest) (calendarbridge.Event, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ev, err := c.bridge.Add(ctx, req)
		if err == nil {
			return ev, nil
		}
		lastErr = err
		if !calendarbridge.IsTransient(err) {
			return calendarbridge.Event{}, err
		}
		if attempt < maxAttempts-1 {
			c.sleep(backoffDelays[attempt])
		}
	}
	return calendarbridge.Event{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Creator) deleteWithRetry(ctx context.Context, eventID string) (calendarbridge.DeleteResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		dr, err := c.bridge.Delete(ctx, eventID)
		if err == nil {
			return dr, nil
		}
		lastErr = err
		if !calendarbridge.IsTransient(err) {
			return calendarbridge.DeleteResult{}, err
		}
		if attempt < maxAttempts-1 {
			c.sleep(backoffDelays[attempt])
		}
	}
	return calendarbridge.DeleteResult{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func notesFor(taskID string, parentID *string) string {
	if parentID == nil {
		return fmt.Sprintf("id:%s, parent_id:null", taskID)
	}
	return fmt.Sprintf("id:%s, parent_id:%s", taskID, *parentID)
}
