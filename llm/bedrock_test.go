package llm

import (
	"encoding/json"
	"testing"

	"github.com/mkale/sleuth/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBedrockRequest(t *testing.T) {
	cap := int64(2048)
	body, err := buildBedrockRequest(Request{
		Model: "anthropic.claude-sonnet",
		Transcript: []chat.TranscriptEntry{
			{Role: "system", Content: "be helpful"},
			{Role: "user", Content: "find the report"},
			{Role: "assistant", Content: "on it", ToolCalls: []chat.ToolCall{
				{ID: "t1", Name: "search", Args: map[string]any{"query": "report"}},
			}},
			{Role: "tool", ToolCallID: "t1", Content: `{"results":[]}`},
		},
		Tools: []ToolSchema{{
			Name:        "search",
			Description: "search the web",
			Parameters:  map[string]any{"type": "object"},
		}},
		Temperature: 0.3,
		MaxTokens:   &cap,
	})
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))

	assert.Equal(t, "bedrock-2023-05-31", req["anthropic_version"])
	assert.EqualValues(t, 2048, req["max_tokens"])
	assert.Equal(t, 0.3, req["temperature"])
	assert.Equal(t, "be helpful", req["system"])

	messages := req["messages"].([]any)
	require.Len(t, messages, 3)

	assistant := messages[1].(map[string]any)
	blocks := assistant["content"].([]any)
	require.Len(t, blocks, 2)
	assert.Equal(t, "text", blocks[0].(map[string]any)["type"])
	toolUse := blocks[1].(map[string]any)
	assert.Equal(t, "tool_use", toolUse["type"])
	assert.Equal(t, "t1", toolUse["id"])

	toolResult := messages[2].(map[string]any)
	assert.Equal(t, "user", toolResult["role"])
	resultBlock := toolResult["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", resultBlock["type"])
	assert.Equal(t, "t1", resultBlock["tool_use_id"])

	tools := req["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "search", tools[0].(map[string]any)["name"])
}

func TestBuildBedrockRequestDefaultsMaxTokens(t *testing.T) {
	body, err := buildBedrockRequest(Request{
		Transcript: []chat.TranscriptEntry{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.EqualValues(t, anthropicDefaultMaxTokens, req["max_tokens"])
	assert.NotContains(t, req, "system")
	assert.NotContains(t, req, "tools")
}

func TestProcessBedrockResponse(t *testing.T) {
	body := []byte(`{
		"content": [
			{"type": "text", "text": "Let me search."},
			{"type": "tool_use", "id": "t9", "name": "search", "input": {"query": "q"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 120, "output_tokens": 34}
	}`)

	resp, err := processBedrockResponse(body)
	require.NoError(t, err)

	assert.Equal(t, "Let me search.", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "t9", resp.ToolCalls[0].ID)
	assert.Equal(t, "search", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"query": "q"}, resp.ToolCalls[0].Args)
	assert.Equal(t, "tool_use", resp.FinishReason)
	assert.Equal(t, 120, resp.PromptTokens)
	assert.Equal(t, 34, resp.CompletionTokens)
}

func TestProcessBedrockResponseError(t *testing.T) {
	_, err := processBedrockResponse([]byte(`{"error": {"message": "throttled"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bedrock API error")
}

func TestMockClientParrotsLastUserTurn(t *testing.T) {
	resp, err := (&MockClient{}).Complete(t.Context(), Request{
		Transcript: []chat.TranscriptEntry{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "ok"},
			{Role: "user", Content: "second"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, `"second"`)
	assert.Empty(t, resp.ToolCalls)
}
