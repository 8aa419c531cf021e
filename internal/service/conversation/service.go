package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/zhouzirui/convo-eval/internal/model/transcript"
)

// MaxTitleLength bounds conversation titles, counted in runes.
const MaxTitleLength = 200

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrTitleTooLong         = errors.New("conversation title too long")
)

// Service keeps transcripts in memory for the lifetime of the process.
type Service struct {
	mu            sync.RWMutex
	conversations map[string]transcript.Conversation
	messages      map[string]transcript.Transcript
}

// NewService returns an empty store.
func NewService() *Service {
	return &Service{
		conversations: make(map[string]transcript.Conversation),
		messages:      make(map[string]transcript.Transcript),
	}
}

// CreateConversation provisions an empty conversation.
func (s *Service) CreateConversation(ctx context.Context, title string) (transcript.Conversation, error) {
	return s.ImportTranscript(ctx, title, nil)
}

// ImportTranscript stores a complete transcript under a new conversation.
func (s *Service) ImportTranscript(_ context.Context, title string, t transcript.Transcript) (transcript.Conversation, error) {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return transcript.Conversation{}, ErrTitleTooLong
	}

	stored := t.Clone()

	conv := transcript.Conversation{
		ID:           uuid.NewString(),
		Title:        title,
		MessageCount: len(stored),
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.messages[conv.ID] = stored
	s.mu.Unlock()

	return conv, nil
}

// AppendMessage adds one turn to the end of a conversation.
func (s *Service) AppendMessage(_ context.Context, conversationID string, msg transcript.Message) (transcript.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return transcript.Conversation{}, ErrConversationNotFound
	}

	s.messages[conversationID] = append(s.messages[conversationID], msg)
	conv.MessageCount = len(s.messages[conversationID])
	s.conversations[conversationID] = conv
	return conv, nil
}

// GetConversation retrieves conversation metadata by identifier.
func (s *Service) GetConversation(_ context.Context, conversationID string) (transcript.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return transcript.Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}

// LoadTranscript returns a copy of the stored turns, safe to read while new
// messages are appended.
func (s *Service) LoadTranscript(_ context.Context, conversationID string) (transcript.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}

	return messages.Clone(), nil
}
