// Package llm provides the LLM bridge client used by the Slot Extractor,
// Absolute Resolver, Task Difficulty Analyzer, and LLM Decomposer stages,
// plus the deterministic JSON repair pass every stage runs LLM output
// through before unmarshaling into a typed struct.
package llm

import (
	"context"
)

// Message represents one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions carries the per-call sampling parameters. Each pipeline
// stage fixes its own temperature (SE 0.7, AR 0.7, TD 0.2, LD 0.3) rather
// than sharing a client-wide default.
type ChatOptions struct {
	Temperature float64
}

// Client is implemented by each LLM bridge backend (Ollama-shaped local
// bridge, OpenAI-compatible hosted endpoint).
type Client interface {
	// Chat sends messages and returns the raw assistant content.
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)

	// ChatJSON sends messages, runs the response through the repair
	// pass, and unmarshals it into result.
	ChatJSON(ctx context.Context, messages []Message, opts ChatOptions, result any) error
}
