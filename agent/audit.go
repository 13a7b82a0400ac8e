package agent

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const auditFileName = "tool_calls.jsonl"

// Audit appends structured tool-call, llm-call, and lifecycle records to a
// JSONL file, keyed by conversation id. Strictly fire-and-forget: a logger
// that failed to open degrades to a no-op and record-level failures are
// swallowed — auditing never affects the loop outcome.
type Audit struct {
	log     zerolog.Logger
	enabled bool
}

// NewAudit opens dir/tool_calls.jsonl for appending.
func NewAudit(dir string) *Audit {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Audit{}
	}
	f, err := os.OpenFile(filepath.Join(dir, auditFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &Audit{}
	}
	return &Audit{log: zerolog.New(f).With().Timestamp().Logger(), enabled: true}
}

// NopAudit returns a disabled audit logger, for tests and the REPL.
func NopAudit() *Audit { return &Audit{} }

// LLMCallRecord captures one completion call for observability.
type LLMCallRecord struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	DurationMS       int64
	ToolCallsCount   int
	FinishReason     string
	ResponsePreview  string
	RequestMaxTokens *int64
	AuthMode         string
	ToolNames        []string
}

func (a *Audit) ToolCall(convID, name string, args, result map[string]any, durationMS int64) {
	if !a.enabled {
		return
	}
	a.log.Log().
		Str("conversation_id", convID).
		Str("type", "tool_call").
		Str("tool_name", name).
		Interface("tool_args", args).
		Interface("tool_result", result).
		Int64("duration_ms", durationMS).
		Send()
}

func (a *Audit) LLMCall(convID string, rec LLMCallRecord) {
	if !a.enabled {
		return
	}
	ev := a.log.Log().
		Str("conversation_id", convID).
		Str("type", "llm_call").
		Str("model", rec.Model).
		Int("prompt_tokens", rec.PromptTokens).
		Int("completion_tokens", rec.CompletionTokens).
		Int64("duration_ms", rec.DurationMS).
		Int("tool_calls_count", rec.ToolCallsCount).
		Str("finish_reason", rec.FinishReason).
		Str("response_preview", rec.ResponsePreview).
		Str("auth_mode", rec.AuthMode).
		Strs("tool_names", rec.ToolNames)
	if rec.RequestMaxTokens != nil {
		ev = ev.Int64("request_max_tokens", *rec.RequestMaxTokens)
	}
	ev.Send()
}

// Event records a lifecycle event (conversation started, loop stopped,
// loop exception) with free-form fields.
func (a *Audit) Event(convID, event string, fields map[string]any) {
	if !a.enabled {
		return
	}
	a.log.Log().
		Str("conversation_id", convID).
		Str("type", "agent_event").
		Str("event", event).
		Fields(fields).
		Send()
}
