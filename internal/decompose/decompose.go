// Package decompose implements the LLM Decomposer (LD) stage: breaking
// a complex Classification into 2-5 ordered, schedulable subtasks. Only
// invoked when Classification.Type == types.TypeComplex.
package decompose

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/nlevents/calpipe/internal/llm"
	"github.com/nlevents/calpipe/internal/types"
)

const (
	minSubtasks  = 2
	maxSubtasks  = 5
	maxSubtaskMinutes = 180 // PT3H
	minTitleLen  = 3
)

var durationRe = regexp.MustCompile(`^PT(\d+H)?(\d+M)?$`)

// Decomposer runs the LD stage.
type Decomposer struct {
	client llm.Client
}

// New creates a Decomposer bound to the given LLM bridge client.
func New(client llm.Client) *Decomposer {
	return &Decomposer{client: client}
}

// Decompose runs the LD stage for a complex Classification.
func (d *Decomposer) Decompose(ctx context.Context, cls types.Classification) types.Decomposition {
	messages := llm.BuildDecomposerMessages(cls.Title)

	var raw struct {
		Subtasks []struct {
			Title    string `json:"title"`
			Duration string `json:"duration"`
		} `json:"subtasks"`
	}

	if err := d.client.ChatJSON(ctx, messages, llm.ChatOptions{Temperature: llm.TemperatureDecomposer}, &raw); err != nil {
		return defaultDecomposition(cls)
	}

	rawSubtasks := make([]types.Subtask, 0, len(raw.Subtasks))
	for _, st := range raw.Subtasks {
		rawSubtasks = append(rawSubtasks, types.Subtask{Title: st.Title, Duration: st.Duration})
	}

	validated := validateAndFix(rawSubtasks)

	return types.Decomposition{
		Calendar: cls.Calendar,
		Title:    cls.Title,
		Subtasks: validated,
	}
}

// validateAndFix enforces the per-subtask duration/title rules, caps
// durations to PT3H, substitutes the default two-subtask plan when
// fewer than minSubtasks survive, and truncates to maxSubtasks.
func validateAndFix(subtasks []types.Subtask) []types.Subtask {
	validated := make([]types.Subtask, 0, len(subtasks))

	for _, st := range subtasks {
		title := strings.TrimSpace(st.Title)
		duration := strings.ToUpper(strings.TrimSpace(st.Duration))

		if len(title) < minTitleLen {
			continue
		}
		if !durationRe.MatchString(duration) || durationMinutes(duration) == 0 {
			continue
		}

		validated = append(validated, types.Subtask{
			Title:    title,
			Duration: capDuration(duration),
		})
	}

	if len(validated) < minSubtasks {
		return defaultSubtasks()
	}
	if len(validated) > maxSubtasks {
		validated = validated[:maxSubtasks]
	}
	return validated
}

// capDuration caps a validated PT[nH][nM] duration to PT3H when it
// exceeds maxSubtaskMinutes.
func capDuration(duration string) string {
	if durationMinutes(duration) <= maxSubtaskMinutes {
		return duration
	}
	return "PT3H"
}

func durationMinutes(duration string) int {
	m := durationRe.FindStringSubmatch(duration)
	if m == nil {
		return 0
	}
	hours, minutes := 0, 0
	if m[1] != "" {
		hours, _ = strconv.Atoi(strings.TrimSuffix(m[1], "H"))
	}
	if m[2] != "" {
		minutes, _ = strconv.Atoi(strings.TrimSuffix(m[2], "M"))
	}
	return hours*60 + minutes
}

func defaultSubtasks() []types.Subtask {
	return []types.Subtask{
		{Title: "Plan and outline", Duration: "PT45M"},
		{Title: "Execute and finalize", Duration: "PT1H"},
	}
}

func defaultDecomposition(cls types.Classification) types.Decomposition {
	return types.Decomposition{
		Calendar: cls.Calendar,
		Title:    cls.Title,
		Subtasks: defaultSubtasks(),
	}
}
