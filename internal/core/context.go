package core

import (
	"context"

	"github.com/ItsOuaail/ai-chatbot-project/internal/logging"
	"github.com/ItsOuaail/ai-chatbot-project/internal/store"
)

// MaxContextMessages bounds how many prior messages accompany a request.
const MaxContextMessages = 10

// Turn is one prior message supplied to the provider.
type Turn struct {
	Text    string
	IsHuman bool
}

// ConversationRef identifies a conversation together with the user who must own it.
type ConversationRef struct {
	ID      string
	OwnerID int64
}

// RecentMessageReader lists a conversation's messages newest-first, returning
// nothing when the conversation is missing or owned by someone else.
type RecentMessageReader interface {
	ListRecentMessages(ctx context.Context, conversationID string, userID int64, limit int) ([]store.Message, error)
}

// ContextAssembler loads the recent history sent along with a new message.
type ContextAssembler struct {
	messages RecentMessageReader
	limit    int
}

func NewContextAssembler(messages RecentMessageReader) *ContextAssembler {
	return &ContextAssembler{messages: messages, limit: MaxContextMessages}
}

// Fetch returns up to MaxContextMessages turns, oldest first. History is
// best-effort: a nil ref, a foreign conversation and a storage error all yield
// an empty result.
func (a *ContextAssembler) Fetch(ctx context.Context, ref *ConversationRef) []Turn {
	if ref == nil || ref.ID == "" || a.messages == nil {
		return nil
	}

	recent, err := a.messages.ListRecentMessages(ctx, ref.ID, ref.OwnerID, a.limit)
	if err != nil {
		logging.FromCtx(ctx).Warn().Err(err).Str("conversation_id", ref.ID).Msg("failed to load conversation history, proceeding without it")
		return nil
	}
	if len(recent) > a.limit {
		recent = recent[:a.limit]
	}

	// Storage returns newest first; the provider needs chronological order.
	turns := make([]Turn, len(recent))
	for i, msg := range recent {
		turns[len(recent)-1-i] = Turn{Text: msg.Content, IsHuman: msg.IsUser}
	}
	return turns
}
