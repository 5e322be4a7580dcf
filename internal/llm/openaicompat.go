package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAICompatBaseURL = "http://localhost:1234/v1"

// OpenAICompatClient talks an OpenAI-compatible chat-completions endpoint
// (a hosted model, or a local server speaking that protocol) — the
// second LLM bridge backend alongside OllamaClient, for deployments that
// are not fronted by a local Ollama-shaped bridge.
type OpenAICompatClient struct {
	client openai.Client
	model  string
}

// NewOpenAICompatClient creates a client bound to the given model and
// base URL. The API key is read from OPENAI_COMPAT_API_KEY, falling back
// to OPENAI_API_KEY, falling back to a placeholder for servers that
// don't check it.
func NewOpenAICompatClient(model, baseURL string) (*OpenAICompatClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("openai-compatible model is required")
	}
	if baseURL == "" {
		baseURL = defaultOpenAICompatBaseURL
	}

	apiKey := os.Getenv("OPENAI_COMPAT_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		apiKey = "not-needed"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAICompatClient{client: client, model: model}, nil
}

// Chat sends messages and returns the assistant's raw content.
func (c *OpenAICompatClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			openaiMessages[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			openaiMessages[i] = openai.AssistantMessage(msg.Content)
		default:
			openaiMessages[i] = openai.UserMessage(msg.Content)
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    openaiMessages,
		Temperature: openai.Float(opts.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai-compatible chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatJSON sends messages, repairs the response, and unmarshals it.
func (c *OpenAICompatClient) ChatJSON(ctx context.Context, messages []Message, opts ChatOptions, result any) error {
	content, err := c.Chat(ctx, messages, opts)
	if err != nil {
		return err
	}

	repaired := Repair(content)
	if err := json.Unmarshal([]byte(repaired), result); err != nil {
		return fmt.Errorf("parsing JSON response: %w (content: %s)", err, content)
	}
	return nil
}
