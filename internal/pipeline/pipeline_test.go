package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/nlevents/calpipe/internal/calendarbridge"
	"github.com/nlevents/calpipe/internal/llm"
	"github.com/nlevents/calpipe/internal/schedule"
	"github.com/nlevents/calpipe/internal/store"
)

// sequencedClient replays one canned JSON response per ChatJSON call, in
// order, matching the fixed SE→AR→TD→[LD] call sequence Run makes.
type sequencedClient struct {
	responses []string
	calls     int
}

func (c *sequencedClient) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (string, error) {
	return "", nil
}

func (c *sequencedClient) ChatJSON(ctx context.Context, messages []llm.Message, opts llm.ChatOptions, result any) error {
	raw := c.responses[c.calls]
	c.calls++
	return json.Unmarshal([]byte(raw), result)
}

func newBridgeServer(t *testing.T) *calendarbridge.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/calendars":
			_ = json.NewEncoder(w).Encode([]calendarbridge.Calendar{
				{ID: "work-1", Title: "Work", AllowsModifications: true},
				{ID: "home-1", Title: "Home", AllowsModifications: true},
			})
		case "/events":
			_ = json.NewEncoder(w).Encode([]calendarbridge.Event{})
		case "/add":
			var req calendarbridge.AddRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(calendarbridge.Event{ID: "ev-" + req.Title})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return calendarbridge.New(srv.URL)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "calpipe.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRun_SimpleTaskEndToEnd(t *testing.T) {
	client := &sequencedClient{responses: []string{
		`{"start_text":"tomorrow","end_text":null,"duration":"PT30M"}`,
		`{"start_text":"October 24, 2025 02:00 pm","end_text":"October 24, 2025 02:30 pm","duration":"30 minutes"}`,
		`{"calendar":"home-1","type":"simple","title":"Call mom","duration":"PT30M"}`,
	}}
	bridge := newBridgeServer(t)
	db := newTestStore(t)
	p := New(client, bridge, db, schedule.DefaultOptions(), nil)

	result, err := p.Run(context.Background(), "Call mom tomorrow for 30 minutes", "America/New_York")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Simple == nil {
		t.Fatal("expected a scheduled simple task")
	}
	if len(result.Created) != 1 || !result.Created[0].Success {
		t.Errorf("Created = %+v, want one successful creation", result.Created)
	}
}

func TestRun_ComplexTaskEndToEnd(t *testing.T) {
	client := &sequencedClient{responses: []string{
		`{"start_text":null,"end_text":null,"duration":null}`,
		`{"start_text":"October 24, 2025 06:00 am","end_text":"November 15, 2025 11:59 pm","duration":null}`,
		`{"calendar":"home-1","type":"complex","title":"Plan Japan trip"}`,
		`{"subtasks":[{"title":"Research flights (trip)","duration":"PT1H"},{"title":"Book hotel (trip)","duration":"PT1H"},{"title":"Pack bags (trip)","duration":"PT30M"}]}`,
	}}
	bridge := newBridgeServer(t)
	db := newTestStore(t)
	p := New(client, bridge, db, schedule.DefaultOptions(), nil)

	result, err := p.Run(context.Background(), "Plan a 5-day Japan trip by Nov 15", "America/New_York")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Complex == nil {
		t.Fatal("expected a scheduled complex task")
	}
	if len(result.Complex.Subtasks) != 3 {
		t.Fatalf("len(Subtasks) = %d, want 3", len(result.Complex.Subtasks))
	}
	if len(result.Created) != 3 {
		t.Errorf("len(Created) = %d, want 3", len(result.Created))
	}
}

func TestRun_EmptyQueryFailsAtUQ(t *testing.T) {
	client := &sequencedClient{}
	bridge := newBridgeServer(t)
	db := newTestStore(t)
	p := New(client, bridge, db, schedule.DefaultOptions(), nil)

	_, err := p.Run(context.Background(), "   ", "America/New_York")
	if err == nil {
		t.Fatal("expected an error for an empty query")
	}
	var stageErr *StageError
	if !asStageError(err, &stageErr) {
		t.Fatalf("err = %v, want a *StageError", err)
	}
	if stageErr.Stage != "UQ" {
		t.Errorf("Stage = %q, want UQ", stageErr.Stage)
	}
}

func asStageError(err error, target **StageError) bool {
	se, ok := err.(*StageError)
	if !ok {
		return false
	}
	*target = se
	return true
}
