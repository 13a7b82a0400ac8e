// Package agent implements the orchestration loop: it alternates between
// the LLM and the tool registry, applies the dedup and verification
// policies, and appends everything to the conversation as it goes.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkale/sleuth/chat"
	"github.com/mkale/sleuth/config"
	"github.com/mkale/sleuth/llm"
	"github.com/mkale/sleuth/tools"
	"github.com/rs/zerolog"
)

// maxToolResultChars bounds the serialized tool result fed back into the
// model's context.
const maxToolResultChars = 15000

// Outcome is the terminal state of one loop invocation.
type Outcome string

const (
	OutcomeFinalText      Outcome = "final_text"
	OutcomeBudgetExceeded Outcome = "budget_exceeded"
	OutcomeFatalError     Outcome = "fatal_error"
)

type Agent struct {
	cfg      *config.Config
	client   llm.Client
	registry *tools.Registry
	schemas  []llm.ToolSchema
	audit    *Audit
	logger   zerolog.Logger
}

func New(cfg *config.Config, client llm.Client, registry *tools.Registry, audit *Audit, logger zerolog.Logger) *Agent {
	return &Agent{
		cfg:      cfg,
		client:   client,
		registry: registry,
		schemas:  tools.Schemas(),
		audit:    audit,
		logger:   logger.With().Str("component", "agent").Logger(),
	}
}

// ProcessMessage runs the loop for the latest user message: call the model,
// execute requested tools, feed results back, repeat until a final text
// answer or the tool-call budget runs out. All faults — errors and panics
// alike — are caught here, at the outermost boundary only, and surfaced as
// a system message; concurrent sessions are unaffected.
func (a *Agent) ProcessMessage(ctx context.Context, conv *chat.Conversation) (outcome Outcome) {
	rt := config.ResolveChatRuntime(a.cfg)
	state := newRunState(a.cfg.Agent.MaxToolCalls)

	a.audit.Event(conv.ID(), "conversation_started", map[string]any{
		"model":              rt.Model,
		"auth_mode":          rt.AuthMode,
		"request_max_tokens": rt.MaxOutputTokens,
		"max_tool_calls":     state.budget,
		"temperature":        rt.Temperature,
	})

	conv.EnsureSystemPrompt(BuildSystemPrompt())

	defer func() {
		if r := recover(); r != nil {
			a.fail(conv, state, fmt.Errorf("%v", r))
			outcome = OutcomeFatalError
		}
	}()

	outcome, err := a.runLoop(ctx, conv, rt, state)
	if err != nil {
		a.fail(conv, state, err)
		return OutcomeFatalError
	}
	return outcome
}

func (a *Agent) runLoop(ctx context.Context, conv *chat.Conversation, rt config.ChatRuntime, state *runState) (Outcome, error) {
	for state.calls < state.budget {
		llmStart := time.Now()
		resp, err := a.client.Complete(ctx, llm.Request{
			Model:       rt.Model,
			Transcript:  conv.Transcript(),
			Tools:       a.schemas,
			Temperature: rt.Temperature,
			MaxTokens:   rt.MaxOutputTokens,
		})
		if err != nil {
			return OutcomeFatalError, err
		}

		toolNames := make([]string, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			toolNames = append(toolNames, tc.Name)
		}
		a.audit.LLMCall(conv.ID(), LLMCallRecord{
			Model:            rt.Model,
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.CompletionTokens,
			DurationMS:       time.Since(llmStart).Milliseconds(),
			ToolCallsCount:   len(resp.ToolCalls),
			FinishReason:     resp.FinishReason,
			ResponsePreview:  resp.Text,
			RequestMaxTokens: rt.MaxOutputTokens,
			AuthMode:         rt.AuthMode,
			ToolNames:        toolNames,
		})

		// No tool calls: the text is the final answer, even when empty.
		if len(resp.ToolCalls) == 0 {
			a.audit.Event(conv.ID(), "loop_stopped_no_tool_calls", map[string]any{
				"finish_reason":         resp.FinishReason,
				"tool_call_count_total": state.calls,
				"response_preview":      resp.Text,
			})
			conv.AddAssistantMessage(resp.Text)
			conv.AppendAssistantEntry(resp.Text)
			return OutcomeFinalText, nil
		}

		a.audit.Event(conv.ID(), "llm_requested_tools", map[string]any{
			"tool_names": toolNames,
			"count":      len(toolNames),
		})
		conv.AppendAssistantToolEntry(resp.Text, resp.ToolCalls)
		if resp.Text != "" {
			conv.AddAssistantMessage(resp.Text)
		}

		// Execute the batch strictly in the order the model listed the
		// calls; later calls may depend on earlier ones.
		for _, tc := range resp.ToolCalls {
			if state.calls >= state.budget {
				// Budget consumed mid-batch; the rest is never executed.
				break
			}
			state.calls++

			result, duration, err := a.executeCall(ctx, state, tc)
			if err != nil {
				return OutcomeFatalError, err
			}
			durationMS := duration.Milliseconds()

			a.audit.ToolCall(conv.ID(), tc.Name, tc.Args, result, durationMS)
			conv.AddToolActivity(tc.Name, tc.Args, result, durationMS)

			if tc.Name == downloadToolName {
				a.applyFilePolicy(conv, state, result)
			}

			serialized, err := json.Marshal(result)
			if err != nil {
				return OutcomeFatalError, err
			}
			conv.AppendToolEntry(tc.ID, tc.Name, truncateResult(string(serialized)))
		}
	}

	a.audit.Event(conv.ID(), "loop_stopped_max_tool_calls", map[string]any{
		"max_tool_calls":        state.budget,
		"tool_call_count_total": state.calls,
	})
	conv.AddSystemMessage(fmt.Sprintf("Reached maximum of %d tool calls. Stopping.", state.budget))
	return OutcomeBudgetExceeded, nil
}

// executeCall dispatches one tool call, short-circuiting duplicate
// downloads through the run-scoped cache.
func (a *Agent) executeCall(ctx context.Context, state *runState, tc chat.ToolCall) (map[string]any, time.Duration, error) {
	if tc.Name == downloadToolName {
		key := downloadKeyFor(tc.Args)
		if cached, ok := state.downloadCache[key]; ok {
			return annotateDuplicate(cached), 0, nil
		}
		result, duration, err := a.registry.Dispatch(ctx, tc.Name, tc.Args)
		if err != nil {
			return nil, duration, err
		}
		if boolField(result, "success") {
			state.downloadCache[key] = result
		}
		return result, duration, nil
	}
	return a.registry.Dispatch(ctx, tc.Name, tc.Args)
}

func (a *Agent) fail(conv *chat.Conversation, state *runState, err error) {
	a.audit.Event(conv.ID(), "loop_exception", map[string]any{
		"error":                 err.Error(),
		"tool_call_count_total": state.calls,
	})
	a.logger.Error().Err(err).Str("conversation_id", conv.ID()).Msg("agent error")
	conv.AddSystemMessage(fmt.Sprintf("Error: %v", err))
}

func truncateResult(s string) string {
	if len(s) <= maxToolResultChars {
		return s
	}
	return s[:maxToolResultChars] + "... [truncated]"
}
