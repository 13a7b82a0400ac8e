// Package chat holds the conversation state model: the human-visible message
// history, the model-facing transcript, and the in-memory session store.
package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role tags one entry of the human-visible transcript.
type Role string

const (
	RoleUser         Role = "user"
	RoleAssistant    Role = "assistant"
	RoleToolActivity Role = "tool_activity"
	RoleFile         Role = "file"
	RoleSystem       Role = "system"
)

// Message is one turn of the human-visible transcript. Immutable once
// appended; the zero-valued optional fields are omitted on the wire.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// tool_activity payload
	ToolName       string         `json:"tool_name,omitempty"`
	ToolArgs       map[string]any `json:"tool_args,omitempty"`
	ToolResult     map[string]any `json:"tool_result,omitempty"`
	ToolDurationMS int64          `json:"tool_duration_ms,omitempty"`

	// file payload
	Filename string `json:"filename,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// ToolCall is a structured request from the model to invoke a named
// capability. ID is the provider's call identifier, echoed back on the
// matching tool transcript entry.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// TranscriptEntry is one model-facing turn. An assistant entry is either a
// text-only turn (no ToolCalls) or a tool-call turn; a tool entry carries
// the serialized result for one call, correlated by ToolCallID.
type TranscriptEntry struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// Conversation aggregates one session: the message history, the model
// transcript, and the processing flag. All appends are monotonic — no
// in-place edits, no deletions. The mutex makes appends safe against
// concurrent poller reads; the loop itself owns the conversation for the
// duration of one processing episode.
type Conversation struct {
	id string

	mu         sync.Mutex
	messages   []Message
	transcript []TranscriptEntry
	processing bool
}

// NewConversation creates an empty conversation with a fresh 12-hex-char id.
func NewConversation() *Conversation {
	return &Conversation{id: strings.ReplaceAll(uuid.NewString(), "-", "")[:12]}
}

func (c *Conversation) ID() string { return c.id }

// AddUserMessage appends a user message and the matching transcript entry.
func (c *Conversation) AddUserMessage(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: RoleUser, Content: content, Timestamp: time.Now()})
	c.transcript = append(c.transcript, TranscriptEntry{Role: "user", Content: content})
}

// AddAssistantMessage appends an assistant message only. The transcript
// entry for assistant turns is appended by the loop, which has the
// tool-call metadata the message does not model.
func (c *Conversation) AddAssistantMessage(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()})
}

// AddToolActivity appends a message summarizing one tool invocation.
func (c *Conversation) AddToolActivity(name string, args, result map[string]any, durationMS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{
		Role:           RoleToolActivity,
		Content:        fmt.Sprintf("Called %s", name),
		Timestamp:      time.Now(),
		ToolName:       name,
		ToolArgs:       args,
		ToolResult:     result,
		ToolDurationMS: durationMS,
	})
}

// AddFileMessage announces a verified downloaded file to the user.
func (c *Conversation) AddFileMessage(filename, path string, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{
		Role:      RoleFile,
		Content:   fmt.Sprintf("Downloaded %s", filename),
		Timestamp: time.Now(),
		Filename:  filename,
		FilePath:  path,
		FileSize:  size,
	})
}

// AddSystemMessage appends a system message and injects it into the model
// transcript as a marked user turn. This is the only path by which
// out-of-band information (verification warnings, errors, budget notices)
// re-enters the model's context.
func (c *Conversation) AddSystemMessage(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: RoleSystem, Content: content, Timestamp: time.Now()})
	c.transcript = append(c.transcript, TranscriptEntry{Role: "user", Content: "[SYSTEM CHECK] " + content})
}

// EnsureSystemPrompt inserts the fixed instruction prompt as the first
// transcript entry. Idempotent; later calls are no-ops.
func (c *Conversation) EnsureSystemPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.transcript) > 0 && c.transcript[0].Role == "system" {
		return
	}
	c.transcript = append([]TranscriptEntry{{Role: "system", Content: prompt}}, c.transcript...)
}

// AppendAssistantEntry records a text-only assistant turn in the transcript.
func (c *Conversation) AppendAssistantEntry(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, TranscriptEntry{Role: "assistant", Content: content})
}

// AppendAssistantToolEntry records an assistant turn that requested tool
// calls, preserving the provider call identifiers for the next round.
func (c *Conversation) AppendAssistantToolEntry(content string, calls []ToolCall) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, TranscriptEntry{Role: "assistant", Content: content, ToolCalls: calls})
}

// AppendToolEntry records the serialized result of one tool call, tagged
// with the originating call's identifier and tool name.
func (c *Conversation) AppendToolEntry(callID, toolName, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, TranscriptEntry{Role: "tool", Content: content, ToolCallID: callID, ToolName: toolName})
}

// Transcript returns a copy of the model-facing transcript.
func (c *Conversation) Transcript() []TranscriptEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TranscriptEntry, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// MessagesSince returns copies of all messages from index since onward.
// Never mutates state; successive calls with the same index and no new
// appends return identical sequences.
func (c *Conversation) MessagesSince(since int) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if since < 0 {
		since = 0
	}
	if since >= len(c.messages) {
		return []Message{}
	}
	out := make([]Message, len(c.messages)-since)
	copy(out, c.messages[since:])
	return out
}

// Len returns the number of messages appended so far.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Processing reports whether a loop invocation currently owns this
// conversation.
func (c *Conversation) Processing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing
}

// SetProcessing flips the processing flag. The scheduler must set it before
// dispatching the worker so a poller can never observe false while work is
// about to start.
func (c *Conversation) SetProcessing(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processing = v
}
