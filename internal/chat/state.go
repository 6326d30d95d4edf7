// Package chat keeps the conversation list and the messages of the active
// conversation in memory, backed by a Repository.
package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kuse-dev/cowork/internal/log"
	"github.com/kuse-dev/cowork/internal/store"
)

// DefaultTitle names conversations created with Create.
const DefaultTitle = "New Chat"

// Repository is the persistence used by State. *store.Store satisfies it.
type Repository interface {
	CreateConversation(title string) (*store.Conversation, error)
	ListConversations() ([]store.Conversation, error)
	DeleteConversation(id string) error
	GetMessages(conversationID string) ([]store.Message, error)
}

// State is the chat view model. It is not safe for concurrent use; the TUI
// owns it from a single goroutine.
type State struct {
	repo   Repository
	logger *log.Logger

	conversations []store.Conversation
	activeID      string
	messages      []store.Message
}

// New returns an empty State over repo. logger may be nil.
func New(repo Repository, logger *log.Logger) *State {
	return &State{repo: repo, logger: logger}
}

// Load fetches the conversation list. The active conversation is kept if it
// still exists, otherwise the most recent one is selected.
func (s *State) Load() error {
	convs, err := s.repo.ListConversations()
	if err != nil {
		return s.fail("load conversations", err)
	}
	s.conversations = convs

	if s.activeID != "" && s.index(s.activeID) >= 0 {
		return s.loadMessages(s.activeID)
	}
	if len(convs) == 0 {
		s.activeID = ""
		s.messages = nil
		return nil
	}
	return s.Select(convs[0].ID)
}

// Refresh reloads the list and the active conversation's messages.
func (s *State) Refresh() error {
	return s.Load()
}

// Conversations returns the known conversations, most recent first.
func (s *State) Conversations() []store.Conversation {
	return append([]store.Conversation(nil), s.conversations...)
}

// Active returns the active conversation, or nil.
func (s *State) Active() *store.Conversation {
	i := s.index(s.activeID)
	if i < 0 {
		return nil
	}
	c := s.conversations[i]
	return &c
}

// ActiveID returns the id of the active conversation, or "".
func (s *State) ActiveID() string {
	return s.activeID
}

// Messages returns the messages of the active conversation.
func (s *State) Messages() []store.Message {
	return append([]store.Message(nil), s.messages...)
}

// Select makes id the active conversation and loads its messages. On error
// the previous selection is kept.
func (s *State) Select(id string) error {
	if s.index(id) < 0 {
		return s.fail("select conversation", fmt.Errorf("conversation %s: %w", id, store.ErrNotFound))
	}
	return s.loadMessages(id)
}

// Create starts a new conversation, prepends it and makes it active.
func (s *State) Create() (*store.Conversation, error) {
	conv, err := s.repo.CreateConversation(DefaultTitle)
	if err != nil {
		return nil, s.fail("create conversation", err)
	}

	s.conversations = append([]store.Conversation{*conv}, s.conversations...)
	s.activeID = conv.ID
	s.messages = nil
	return conv, nil
}

// Delete removes a conversation. Deleting the active one selects the first
// remaining conversation, or clears the selection when none is left.
func (s *State) Delete(id string) error {
	if err := s.repo.DeleteConversation(id); err != nil {
		return s.fail("delete conversation", err)
	}

	if i := s.index(id); i >= 0 {
		s.conversations = append(s.conversations[:i:i], s.conversations[i+1:]...)
	}
	if id != s.activeID {
		return nil
	}

	if len(s.conversations) == 0 {
		s.activeID = ""
		s.messages = nil
		return nil
	}
	if err := s.loadMessages(s.conversations[0].ID); err != nil {
		s.activeID = ""
		s.messages = nil
		return err
	}
	return nil
}

// AddLocalMessage appends a message that is not persisted yet, for example
// while an answer is still streaming.
func (s *State) AddLocalMessage(role, content string) store.Message {
	msg := store.Message{
		ID:             uuid.New().String(),
		ConversationID: s.activeID,
		Role:           role,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// UpdateLastMessage replaces the content of the last message. It reports
// false when there is none.
func (s *State) UpdateLastMessage(content string) bool {
	if len(s.messages) == 0 {
		return false
	}
	s.messages[len(s.messages)-1].Content = content
	return true
}

func (s *State) loadMessages(id string) error {
	msgs, err := s.repo.GetMessages(id)
	if err != nil {
		return s.fail("load messages", err)
	}
	s.activeID = id
	s.messages = msgs
	return nil
}

func (s *State) index(id string) int {
	if id == "" {
		return -1
	}
	for i, c := range s.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *State) fail(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	if s.logger != nil {
		_ = s.logger.Append(log.LogEvent{Event: log.EventStoreFailed, Error: err.Error()})
	}
	return err
}
