package core

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ItsOuaail/ai-chatbot-project/internal/logging"
	"github.com/ItsOuaail/ai-chatbot-project/internal/metrics"
	"github.com/ItsOuaail/ai-chatbot-project/internal/store"
)

const (
	maxTitleLength       = 50
	titleSourceMessages  = 5
	titleSourceMaxLength = 200
	titlePromptTemplate  = "Create a short title (max 6 words) for this conversation: %s"
)

// TitleSource reads what the titler needs from storage.
type TitleSource interface {
	GetConversation(ctx context.Context, id string, userID int64) (*store.Conversation, error)
	ListFirstMessages(ctx context.Context, conversationID string, limit int) ([]store.Message, error)
}

// ConversationTitler names a conversation from its opening messages.
type ConversationTitler struct {
	source   TitleSource
	resolver *ResponseResolver
	policy   *bluemonday.Policy
}

func NewConversationTitler(source TitleSource, resolver *ResponseResolver) *ConversationTitler {
	return &ConversationTitler{
		source:   source,
		resolver: resolver,
		policy:   bluemonday.StrictPolicy(),
	}
}

// Summarize returns a title of at most 50 characters. Every failure path,
// including a missing conversation or a provider error, yields "New Chat".
func (t *ConversationTitler) Summarize(ctx context.Context, ref ConversationRef) string {
	logger := logging.FromCtx(ctx).With().Str("conversation_id", ref.ID).Logger()

	conv, err := t.source.GetConversation(ctx, ref.ID, ref.OwnerID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load conversation for title")
		return defaultTitle()
	}
	if conv == nil {
		return defaultTitle()
	}

	messages, err := t.source.ListFirstMessages(ctx, ref.ID, titleSourceMessages)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load messages for title")
		return defaultTitle()
	}
	if len(messages) == 0 {
		return defaultTitle()
	}

	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = m.Content
	}
	text := strings.Join(parts, " ")

	if t.resolver.DemoMode() {
		first := "topic"
		if words := strings.Fields(text); len(words) > 0 {
			first = words[0]
		}
		return t.finish("Chat about " + first)
	}

	prompt := fmt.Sprintf(titlePromptTemplate, truncateRunes(text, titleSourceMaxLength))
	summary, err := t.resolver.resolve(ctx, prompt, nil)
	if err != nil {
		logger.Error().Err(err).Msg("error generating conversation summary")
		return defaultTitle()
	}
	return t.finish(summary)
}

// finish strips markup, quotes and whitespace, then enforces the length bound.
func (t *ConversationTitler) finish(raw string) string {
	title := html.UnescapeString(t.policy.Sanitize(raw))
	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"'`)
	title = strings.TrimSpace(title)
	if title == "" {
		return defaultTitle()
	}

	if r := []rune(title); len(r) > maxTitleLength {
		title = string(r[:maxTitleLength-3]) + "..."
	}
	metrics.TitlesGenerated.WithLabelValues("generated").Inc()
	return title
}

func defaultTitle() string {
	metrics.TitlesGenerated.WithLabelValues("default").Inc()
	return store.DefaultConversationTitle
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
