// Package llm defines the call-and-response contract with the language
// model backends and the provider implementations behind it.
package llm

import (
	"context"
	"fmt"

	"github.com/mkale/sleuth/chat"
)

// ToolSchema describes one tool to the model: name, description, and a JSON
// Schema parameter object. The catalogue is static and passed verbatim on
// every call.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is one completion call: the full transcript, the tool catalogue,
// and the runtime parameters resolved for this loop invocation.
type Request struct {
	Model       string
	Transcript  []chat.TranscriptEntry
	Tools       []ToolSchema
	Temperature float64
	// MaxTokens caps the completion when non-nil.
	MaxTokens *int64
}

// Response is the model's reply. Either Text is the final answer (no tool
// calls) or ToolCalls carries the requested invocations, possibly alongside
// prose in Text.
type Response struct {
	Text             string
	ToolCalls        []chat.ToolCall
	PromptTokens     int
	CompletionTokens int
	FinishReason     string
}

// Client is the interface to a language model backend. Implementations are
// strictly call-and-response; no streaming.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// MockClient parrots the last user turn. Used when no provider is
// configured and as a wiring smoke test.
type MockClient struct{}

func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	last := ""
	for _, e := range req.Transcript {
		if e.Role == "user" {
			last = e.Content
		}
	}
	return &Response{
		Text:         fmt.Sprintf("I am a mock LLM. You said: %q. I cannot use tools.", last),
		FinishReason: "stop",
	}, nil
}
