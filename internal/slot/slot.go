// Package slot implements the Slot Extractor (SE) stage: prompting the
// LLM bridge to pull verbatim start/end/duration phrases out of the raw
// query, with safe all-null degradation on failure.
package slot

import (
	"context"

	"github.com/nlevents/calpipe/internal/llm"
	"github.com/nlevents/calpipe/internal/types"
)

// Extract runs the SE stage. On LLM failure or malformed JSON it
// degrades safely to all-null slots rather than aborting the pipeline —
// AR's own fallback rules then produce a usable window from nothing.
func Extract(ctx context.Context, client llm.Client, query string) types.Slots {
	messages := llm.BuildSlotExtractorMessages(query)

	var raw struct {
		StartText *string `json:"start_text"`
		EndText   *string `json:"end_text"`
		Duration  *string `json:"duration"`
	}

	if err := client.ChatJSON(ctx, messages, llm.ChatOptions{Temperature: llm.TemperatureSlotExtractor}, &raw); err != nil {
		return types.Slots{}
	}

	return types.Slots{
		StartText: raw.StartText,
		EndText:   raw.EndText,
		Duration:  raw.Duration,
	}
}
