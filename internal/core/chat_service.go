package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ItsOuaail/ai-chatbot-project/internal/logging"
	"github.com/ItsOuaail/ai-chatbot-project/internal/store"
)

const (
	MaxMessageLength = 1000
	MaxTitleLength   = 200
	DefaultPageSize  = 10
	MaxPageSize      = 100

	detailMessageLimit = 500
	searchResultLimit  = 20
	titleJobTimeout    = 30 * time.Second
)

var (
	// ErrOwnerRequired is the validation error for conversation creation without a user.
	ErrOwnerRequired        = errors.New("user is required to create a conversation")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("message content cannot be empty")
	ErrMessageTooLong       = fmt.Errorf("message content exceeds %d characters", MaxMessageLength)
	ErrInvalidTitle         = fmt.Errorf("title must be between 1 and %d characters", MaxTitleLength)
)

// ChatService is the record-level API the HTTP layer calls. It persists the
// exchanges produced by the resolver and keeps titles current.
type ChatService struct {
	store    store.Store
	resolver *ResponseResolver
	titler   *ConversationTitler

	titleJobs sync.WaitGroup
}

func NewChatService(db store.Store, resolver *ResponseResolver, titler *ConversationTitler) *ChatService {
	return &ChatService{
		store:    db,
		resolver: resolver,
		titler:   titler,
	}
}

func (s *ChatService) DemoMode() bool {
	return s.resolver.DemoMode()
}

// Close waits for in-flight title jobs.
func (s *ChatService) Close() {
	s.titleJobs.Wait()
}

// GetOrCreateConversation returns the referenced conversation when the owner
// has it, and a fresh one otherwise.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, conversationID string, ownerID int64) (*store.Conversation, error) {
	if ownerID == 0 {
		return nil, ErrOwnerRequired
	}

	if conversationID != "" {
		conv, err := s.store.GetConversation(ctx, conversationID, ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
		if conv != nil {
			return conv, nil
		}
		logging.FromCtx(ctx).Info().
			Str("conversation_id", conversationID).
			Int64("user_id", ownerID).
			Msg("conversation not found for user, creating new one")
	}

	conv, err := s.store.CreateConversation(ctx, ownerID, store.DefaultConversationTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// GetAIResponse resolves a reply, threading history when both the conversation
// and its owner are known.
func (s *ChatService) GetAIResponse(ctx context.Context, message, conversationID string, ownerID int64) string {
	var ref *ConversationRef
	if conversationID != "" && ownerID != 0 {
		ref = &ConversationRef{ID: conversationID, OwnerID: ownerID}
	}
	return s.resolver.Resolve(ctx, message, ref)
}

func (s *ChatService) GetConversationSummary(ctx context.Context, conversationID string, ownerID int64) string {
	return s.titler.Summarize(ctx, ConversationRef{ID: conversationID, OwnerID: ownerID})
}

// ChatResult is one persisted exchange.
type ChatResult struct {
	Conversation *store.Conversation
	UserMessage  store.Message
	AIMessage    store.Message
}

// SendMessage runs one exchange. The reply is resolved before the user message
// is stored so the provider sees only prior turns as context.
func (s *ChatService) SendMessage(ctx context.Context, ownerID int64, conversationID, content string) (*ChatResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	conv, err := s.GetOrCreateConversation(ctx, conversationID, ownerID)
	if err != nil {
		return nil, err
	}

	reply := s.GetAIResponse(ctx, content, conv.ID, ownerID)

	userMsg := store.Message{ConversationID: conv.ID, Content: content, IsUser: true}
	if err := s.store.CreateMessage(ctx, &userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}
	aiMsg := store.Message{ConversationID: conv.ID, Content: reply, IsUser: false}
	if err := s.store.CreateMessage(ctx, &aiMsg); err != nil {
		return nil, fmt.Errorf("failed to store ai message: %w", err)
	}

	if err := s.store.TouchConversation(ctx, conv.ID); err != nil {
		logging.FromCtx(ctx).Warn().Err(err).Str("conversation_id", conv.ID).Msg("failed to bump conversation timestamp")
	}

	if conv.Title == store.DefaultConversationTitle {
		count, err := s.store.CountMessages(ctx, conv.ID)
		if err != nil {
			logging.FromCtx(ctx).Warn().Err(err).Str("conversation_id", conv.ID).Msg("failed to count messages")
		} else if count == 2 {
			s.scheduleTitle(ctx, conv.ID, ownerID)
		}
	}

	return &ChatResult{Conversation: conv, UserMessage: userMsg, AIMessage: aiMsg}, nil
}

// scheduleTitle names the conversation in the background, outliving the request.
func (s *ChatService) scheduleTitle(parent context.Context, conversationID string, ownerID int64) {
	s.titleJobs.Add(1)
	go func() {
		defer s.titleJobs.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), titleJobTimeout)
		defer cancel()

		if _, err := s.saveTitle(ctx, conversationID, ownerID); err != nil {
			logging.FromCtx(ctx).Error().Err(err).Str("conversation_id", conversationID).Msg("failed to save generated title")
		}
	}()
}

func (s *ChatService) saveTitle(ctx context.Context, conversationID string, ownerID int64) (string, error) {
	title := s.GetConversationSummary(ctx, conversationID, ownerID)
	if title == store.DefaultConversationTitle {
		return title, nil
	}
	if err := s.store.RenameConversation(ctx, conversationID, ownerID, title); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrConversationNotFound
		}
		return "", fmt.Errorf("failed to update title: %w", err)
	}
	logging.FromCtx(ctx).Info().Str("conversation_id", conversationID).Str("title", title).Msg("saved generated title")
	return title, nil
}

// RegenerateTitle summarizes the conversation again on request.
func (s *ChatService) RegenerateTitle(ctx context.Context, conversationID string, ownerID int64) (string, error) {
	conv, err := s.store.GetConversation(ctx, conversationID, ownerID)
	if err != nil {
		return "", fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv == nil {
		return "", ErrConversationNotFound
	}
	return s.saveTitle(ctx, conversationID, ownerID)
}

// ConversationPage is one page of a user's conversations, newest activity first.
type ConversationPage struct {
	Conversations []store.Conversation
	Total         int
	Page          int
	PageSize      int
}

func (s *ChatService) ListConversations(ctx context.Context, ownerID int64, page, pageSize int) (*ConversationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	convs, total, err := s.store.ListConversations(ctx, ownerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return &ConversationPage{Conversations: convs, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *ChatService) SearchConversations(ctx context.Context, ownerID int64, query string) ([]store.Conversation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []store.Conversation{}, nil
	}
	convs, err := s.store.SearchConversations(ctx, ownerID, query, searchResultLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	return convs, nil
}

func (s *ChatService) GetConversationDetails(ctx context.Context, conversationID string, ownerID int64) (*store.Conversation, []store.Message, error) {
	conv, err := s.store.GetConversation(ctx, conversationID, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, nil, ErrConversationNotFound
	}

	messages, err := s.store.ListMessages(ctx, conversationID, detailMessageLimit, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages for conversation: %w", err)
	}
	return conv, messages, nil
}

func (s *ChatService) RenameConversation(ctx context.Context, conversationID string, ownerID int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrInvalidTitle
	}
	if err := s.store.RenameConversation(ctx, conversationID, ownerID, title); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	return nil
}

func (s *ChatService) DeleteConversation(ctx context.Context, conversationID string, ownerID int64) error {
	if err := s.store.DeleteConversation(ctx, conversationID, ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}
