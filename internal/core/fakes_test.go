package core

import (
	"context"
	"errors"
	"sync"

	"github.com/ItsOuaail/ai-chatbot-project/internal/store"
)

// fakeProvider records every call and answers through respond.
type fakeProvider struct {
	mu        sync.Mutex
	respond   func(message string, history []Turn) (string, error)
	messages  []string
	histories [][]Turn
}

func replyWith(reply string) *fakeProvider {
	return &fakeProvider{respond: func(string, []Turn) (string, error) { return reply, nil }}
}

func failWith(err error) *fakeProvider {
	return &fakeProvider{respond: func(string, []Turn) (string, error) { return "", err }}
}

func (p *fakeProvider) Generate(_ context.Context, message string, history []Turn) (string, error) {
	p.mu.Lock()
	p.messages = append(p.messages, message)
	p.histories = append(p.histories, append([]Turn(nil), history...))
	p.mu.Unlock()
	return p.respond(message, history)
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("cache unavailable")
}

func (brokenCache) Set(context.Context, string, string) error {
	return errors.New("cache unavailable")
}

// recentMessages serves ListRecentMessages from a fixed, oldest-first slice.
type recentMessages struct {
	owner    int64
	messages []store.Message
	err      error
}

func (r *recentMessages) ListRecentMessages(_ context.Context, _ string, userID int64, limit int) ([]store.Message, error) {
	if r.err != nil {
		return nil, r.err
	}
	if userID != r.owner {
		return nil, nil
	}
	out := make([]store.Message, 0, limit)
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.messages[i])
	}
	return out, nil
}

// titleSource serves the titler from memory.
type titleSource struct {
	conv     *store.Conversation
	messages []store.Message
	err      error
}

func (s *titleSource) GetConversation(_ context.Context, id string, userID int64) (*store.Conversation, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.conv == nil || s.conv.ID != id || s.conv.UserID != userID {
		return nil, nil
	}
	return s.conv, nil
}

func (s *titleSource) ListFirstMessages(_ context.Context, _ string, limit int) ([]store.Message, error) {
	if len(s.messages) > limit {
		return s.messages[:limit], nil
	}
	return s.messages, nil
}

func messagesFrom(contents ...string) []store.Message {
	msgs := make([]store.Message, len(contents))
	for i, c := range contents {
		msgs[i] = store.Message{Content: c, IsUser: i%2 == 0}
	}
	return msgs
}
