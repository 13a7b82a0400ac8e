package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversationID(t *testing.T) {
	a := NewConversation()
	b := NewConversation()

	assert.Len(t, a.ID(), 12)
	assert.NotContains(t, a.ID(), "-")
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestAppendsAreMonotonic(t *testing.T) {
	conv := NewConversation()

	conv.AddUserMessage("find the report")
	conv.AddAssistantMessage("Looking now.")
	conv.AddToolActivity("search", map[string]any{"query": "report"}, map[string]any{"results": []any{}}, 42)
	conv.AddFileMessage("report.pdf", "downloads/report.pdf", 25000)
	conv.AddSystemMessage("something happened")

	require.Equal(t, 5, conv.Len())
	msgs := conv.MessagesSince(0)
	require.Len(t, msgs, 5)

	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, RoleToolActivity, msgs[2].Role)
	assert.Equal(t, RoleFile, msgs[3].Role)
	assert.Equal(t, RoleSystem, msgs[4].Role)

	assert.Equal(t, "Called search", msgs[2].Content)
	assert.Equal(t, "search", msgs[2].ToolName)
	assert.EqualValues(t, 42, msgs[2].ToolDurationMS)

	assert.Equal(t, "Downloaded report.pdf", msgs[3].Content)
	assert.Equal(t, "downloads/report.pdf", msgs[3].FilePath)
	assert.EqualValues(t, 25000, msgs[3].FileSize)
}

func TestMessagesSinceIsStable(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("one")
	conv.AddUserMessage("two")
	conv.AddUserMessage("three")

	first := conv.MessagesSince(1)
	second := conv.MessagesSince(1)
	require.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "two", first[0].Content)

	assert.Empty(t, conv.MessagesSince(3))
	assert.Empty(t, conv.MessagesSince(100))
	assert.Len(t, conv.MessagesSince(-5), 3)

	conv.AddAssistantMessage("four")
	assert.Len(t, conv.MessagesSince(1), 3)
}

func TestUserMessageEntersTranscript(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hello")

	entries := conv.Transcript()
	require.Len(t, entries, 1)
	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "hello", entries[0].Content)
}

func TestAssistantMessageStaysOutOfTranscript(t *testing.T) {
	conv := NewConversation()
	conv.AddAssistantMessage("partial prose")

	assert.Empty(t, conv.Transcript())
	assert.Equal(t, 1, conv.Len())
}

func TestSystemMessageMarkedInTranscript(t *testing.T) {
	conv := NewConversation()
	conv.AddSystemMessage("Reached maximum of 50 tool calls. Stopping.")

	msgs := conv.MessagesSince(0)
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, "Reached maximum of 50 tool calls. Stopping.", msgs[0].Content)

	entries := conv.Transcript()
	require.Len(t, entries, 1)
	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "[SYSTEM CHECK] Reached maximum of 50 tool calls. Stopping.", entries[0].Content)
}

func TestEnsureSystemPromptIdempotent(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hi")

	conv.EnsureSystemPrompt("you are an agent")
	conv.EnsureSystemPrompt("a different prompt")

	entries := conv.Transcript()
	require.Len(t, entries, 2)
	assert.Equal(t, "system", entries[0].Role)
	assert.Equal(t, "you are an agent", entries[0].Content)
	assert.Equal(t, "user", entries[1].Role)

	count := 0
	for _, e := range entries {
		if e.Role == "system" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestToolEntryCorrelation(t *testing.T) {
	conv := NewConversation()
	calls := []ToolCall{{ID: "call_1", Name: "search", Args: map[string]any{"query": "q"}}}
	conv.AppendAssistantToolEntry("let me check", calls)
	conv.AppendToolEntry("call_1", "search", `{"results":[]}`)

	entries := conv.Transcript()
	require.Len(t, entries, 2)
	assert.Equal(t, "assistant", entries[0].Role)
	require.Len(t, entries[0].ToolCalls, 1)
	assert.Equal(t, "call_1", entries[0].ToolCalls[0].ID)

	assert.Equal(t, "tool", entries[1].Role)
	assert.Equal(t, "call_1", entries[1].ToolCallID)
	assert.Equal(t, "search", entries[1].ToolName)
}

func TestTranscriptReturnsCopy(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("original")

	entries := conv.Transcript()
	entries[0].Content = strings.ToUpper(entries[0].Content)

	assert.Equal(t, "original", conv.Transcript()[0].Content)
}

func TestProcessingFlag(t *testing.T) {
	conv := NewConversation()
	assert.False(t, conv.Processing())
	conv.SetProcessing(true)
	assert.True(t, conv.Processing())
	conv.SetProcessing(false)
	assert.False(t, conv.Processing())
}
