package chat

import "sync"

// Store maps session ids to conversations. A single mutex serializes
// creation and lookup; conversations themselves guard their own state.
type Store struct {
	mu    sync.Mutex
	convs map[string]*Conversation
}

func NewStore() *Store {
	return &Store{convs: make(map[string]*Conversation)}
}

// Create registers a new conversation and returns it.
func (s *Store) Create() *Conversation {
	conv := NewConversation()
	s.mu.Lock()
	s.convs[conv.ID()] = conv
	s.mu.Unlock()
	return conv
}

// Get returns the conversation for id, if any.
func (s *Store) Get(id string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	return conv, ok
}

// View is the poller-facing snapshot of a conversation.
type View struct {
	ID            string    `json:"id"`
	Messages      []Message `json:"messages"`
	TotalMessages int       `json:"total_messages"`
	Processing    bool      `json:"is_processing"`
}

// View snapshots the messages appended at or after index since. Returns
// false when the id is unknown.
func (s *Store) View(id string, since int) (*View, bool) {
	conv, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	return &View{
		ID:            conv.ID(),
		Messages:      conv.MessagesSince(since),
		TotalMessages: conv.Len(),
		Processing:    conv.Processing(),
	}, true
}
