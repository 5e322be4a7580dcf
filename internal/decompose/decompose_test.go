package decompose

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/nlevents/calpipe/internal/llm"
	"github.com/nlevents/calpipe/internal/types"
)

type fakeClient struct {
	response string
	err      error
}

func (f *fakeClient) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (string, error) {
	return f.response, f.err
}

func (f *fakeClient) ChatJSON(ctx context.Context, messages []llm.Message, opts llm.ChatOptions, result any) error {
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.response), result)
}

func TestDecompose_HappyPathFiveSubtasksInOrder(t *testing.T) {
	client := &fakeClient{response: `{"subtasks":[
		{"title":"Research background and inputs (project proposal)","duration":"PT1H30M"},
		{"title":"Create proposal outline (project proposal)","duration":"PT45M"},
		{"title":"Write key sections (project proposal)","duration":"PT2H"},
		{"title":"Self-review and revise (project proposal)","duration":"PT1H"},
		{"title":"Export and share proposal (project proposal)","duration":"PT30M"}
	]}`}
	d := New(client)
	cls := types.Classification{Calendar: "work-1", Type: types.TypeComplex, Title: "Draft project proposal"}

	got := d.Decompose(context.Background(), cls)
	if len(got.Subtasks) != 5 {
		t.Fatalf("len(Subtasks) = %d, want 5", len(got.Subtasks))
	}
	if got.Subtasks[0].Title != "Research background and inputs (project proposal)" {
		t.Errorf("order not preserved: first subtask = %q", got.Subtasks[0].Title)
	}
	if got.Calendar != "work-1" || got.Title != "Draft project proposal" {
		t.Errorf("parent context not carried: %+v", got)
	}
}

func TestDecompose_OverCapDurationIsCapped(t *testing.T) {
	client := &fakeClient{response: `{"subtasks":[
		{"title":"Massive research phase (trip)","duration":"PT5H"},
		{"title":"Book everything (trip)","duration":"PT2H"}
	]}`}
	d := New(client)
	cls := types.Classification{Title: "Plan trip", Type: types.TypeComplex}

	got := d.Decompose(context.Background(), cls)
	if got.Subtasks[0].Duration != "PT3H" {
		t.Errorf("Duration = %q, want capped to PT3H", got.Subtasks[0].Duration)
	}
}

func TestDecompose_InvalidDurationSubtaskDropped(t *testing.T) {
	client := &fakeClient{response: `{"subtasks":[
		{"title":"Valid subtask one (x)","duration":"PT1H"},
		{"title":"Bad duration subtask (x)","duration":"2 hours"},
		{"title":"Valid subtask two (x)","duration":"PT30M"}
	]}`}
	d := New(client)
	cls := types.Classification{Title: "Do x", Type: types.TypeComplex}

	got := d.Decompose(context.Background(), cls)
	if len(got.Subtasks) != 2 {
		t.Fatalf("len(Subtasks) = %d, want 2 (malformed duration dropped)", len(got.Subtasks))
	}
}

func TestDecompose_TooFewValidSubtasksSubstitutesDefaults(t *testing.T) {
	client := &fakeClient{response: `{"subtasks":[{"title":"Only one (x)","duration":"PT1H"}]}`}
	d := New(client)
	cls := types.Classification{Title: "Do x", Type: types.TypeComplex}

	got := d.Decompose(context.Background(), cls)
	if len(got.Subtasks) != 2 {
		t.Fatalf("len(Subtasks) = %d, want 2 default subtasks", len(got.Subtasks))
	}
	if got.Subtasks[0].Title != "Plan and outline" || got.Subtasks[1].Title != "Execute and finalize" {
		t.Errorf("Subtasks = %+v, want the documented default pair", got.Subtasks)
	}
}

func TestDecompose_MoreThanFiveTruncated(t *testing.T) {
	subtasks := ""
	for i := 1; i <= 7; i++ {
		if i > 1 {
			subtasks += ","
		}
		subtasks += fmt.Sprintf(`{"title":"Step %d (x)","duration":"PT30M"}`, i)
	}
	client := &fakeClient{response: fmt.Sprintf(`{"subtasks":[%s]}`, subtasks)}
	d := New(client)
	cls := types.Classification{Title: "Do x", Type: types.TypeComplex}

	got := d.Decompose(context.Background(), cls)
	if len(got.Subtasks) != 5 {
		t.Fatalf("len(Subtasks) = %d, want truncated to 5", len(got.Subtasks))
	}
}

func TestDecompose_LLMFailureFallsBackToDefaults(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("bridge down")}
	d := New(client)
	cls := types.Classification{Calendar: "home-1", Title: "Plan trip", Type: types.TypeComplex}

	got := d.Decompose(context.Background(), cls)
	if len(got.Subtasks) != 2 {
		t.Fatalf("len(Subtasks) = %d, want 2 defaults on failure", len(got.Subtasks))
	}
	if got.Calendar != "home-1" || got.Title != "Plan trip" {
		t.Errorf("parent context lost on fallback: %+v", got)
	}
}

func TestCapDuration(t *testing.T) {
	tests := []struct{ in, want string }{
		{"PT30M", "PT30M"},
		{"PT3H", "PT3H"},
		{"PT4H", "PT3H"},
		{"PT2H30M", "PT2H30M"},
	}
	for _, tt := range tests {
		if got := capDuration(tt.in); got != tt.want {
			t.Errorf("capDuration(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
