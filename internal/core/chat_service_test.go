package core

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItsOuaail/ai-chatbot-project/internal/store"
)

type chatFixture struct {
	store    *store.SQLiteStore
	provider *fakeProvider
	chat     *ChatService
	accounts *AccountService
}

func newChatFixture(t *testing.T, demo bool, provider *fakeProvider) *chatFixture {
	t.Helper()
	db, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)

	resolver := NewResponseResolver(demo, NewMemoryCache(time.Minute, 0), NewContextAssembler(db), provider)
	chat := NewChatService(db, resolver, NewConversationTitler(db, resolver))
	t.Cleanup(func() {
		chat.Close()
		db.Close()
	})
	return &chatFixture{store: db, provider: provider, chat: chat, accounts: NewAccountService(db)}
}

func (f *chatFixture) user(t *testing.T, name string) *store.User {
	t.Helper()
	u, err := f.accounts.Register(context.Background(), Registration{Username: name, Password: "password123"})
	require.NoError(t, err)
	return u
}

func TestGetOrCreateConversation(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, true, nil)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	_, err := f.chat.GetOrCreateConversation(ctx, "", 0)
	assert.ErrorIs(t, err, ErrOwnerRequired)

	fresh, err := f.chat.GetOrCreateConversation(ctx, "", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultConversationTitle, fresh.Title)

	same, err := f.chat.GetOrCreateConversation(ctx, fresh.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, same.ID)

	foreign, err := f.chat.GetOrCreateConversation(ctx, fresh.ID, bob.ID)
	require.NoError(t, err)
	assert.NotEqual(t, fresh.ID, foreign.ID)
	assert.Equal(t, bob.ID, foreign.UserID)

	missing, err := f.chat.GetOrCreateConversation(ctx, "does-not-exist", alice.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "does-not-exist", missing.ID)
}

func TestSendMessage_Demo(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, true, nil)
	alice := f.user(t, "alice")

	res, err := f.chat.SendMessage(ctx, alice.ID, "", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", res.UserMessage.Content)
	assert.True(t, res.UserMessage.IsUser)
	assert.Equal(t, "Hello! How can I help you today? (Demo Mode)", res.AIMessage.Content)
	assert.False(t, res.AIMessage.IsUser)

	f.chat.Close()
	conv, msgs, err := f.chat.GetConversationDetails(ctx, res.Conversation.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chat about hello", conv.Title)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestSendMessage_Validation(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, true, nil)
	alice := f.user(t, "alice")

	_, err := f.chat.SendMessage(ctx, alice.ID, "", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.chat.SendMessage(ctx, alice.ID, "", strings.Repeat("a", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = f.chat.SendMessage(ctx, 0, "", "hi")
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestSendMessage_ContextIsPriorTurns(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{respond: func(message string, _ []Turn) (string, error) {
		if strings.HasPrefix(message, "Create a short title") {
			return "Trip Planning", nil
		}
		return "answer to " + message, nil
	}}
	f := newChatFixture(t, false, provider)
	alice := f.user(t, "alice")

	conv, err := f.chat.GetOrCreateConversation(ctx, "", alice.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.RenameConversation(ctx, conv.ID, alice.ID, "Trip"))
	for i, c := range []string{"q1", "a1", "q2"} {
		require.NoError(t, f.store.CreateMessage(ctx, &store.Message{ConversationID: conv.ID, Content: c, IsUser: i%2 == 0}))
	}

	res, err := f.chat.SendMessage(ctx, alice.ID, conv.ID, "q3")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, res.Conversation.ID)
	assert.Equal(t, "answer to q3", res.AIMessage.Content)

	require.Equal(t, 1, provider.calls())
	assert.Equal(t, "q3", provider.messages[0])
	assert.Equal(t, []Turn{
		{Text: "q1", IsHuman: true},
		{Text: "a1", IsHuman: false},
		{Text: "q2", IsHuman: true},
	}, provider.histories[0])
}

func TestSendMessage_TitleAfterFirstExchange(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{respond: func(message string, _ []Turn) (string, error) {
		if strings.HasPrefix(message, "Create a short title") {
			return `"Paris Weather"`, nil
		}
		return "It is sunny.", nil
	}}
	f := newChatFixture(t, false, provider)
	alice := f.user(t, "alice")

	res, err := f.chat.SendMessage(ctx, alice.ID, "", "Weather in Paris?")
	require.NoError(t, err)
	f.chat.Close()

	conv, _, err := f.chat.GetConversationDetails(ctx, res.Conversation.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris Weather", conv.Title)

	require.Equal(t, 2, provider.calls())
	assert.Equal(t, "Create a short title (max 6 words) for this conversation: Weather in Paris? It is sunny.", provider.messages[1])

	// A second exchange leaves the title alone.
	_, err = f.chat.SendMessage(ctx, alice.ID, conv.ID, "And tomorrow?")
	require.NoError(t, err)
	f.chat.Close()
	assert.Equal(t, 3, provider.calls())
}

func TestSendMessage_ProviderFailureKeepsDefaultTitle(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, false, failWith(errors.New("googleapi: Error 429: quota exceeded")))
	alice := f.user(t, "alice")

	res, err := f.chat.SendMessage(ctx, alice.ID, "", "hi there")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply(FailureQuota), res.AIMessage.Content)
	f.chat.Close()

	conv, _, err := f.chat.GetConversationDetails(ctx, res.Conversation.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultConversationTitle, conv.Title)
}

func TestConversationManagement(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, true, nil)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	var ids []string
	for _, msg := range []string{"hello", "tell me about golang", "test"} {
		res, err := f.chat.SendMessage(ctx, alice.ID, "", msg)
		require.NoError(t, err)
		ids = append(ids, res.Conversation.ID)
	}
	f.chat.Close()

	page, err := f.chat.ListConversations(ctx, alice.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Conversations, 2)

	page, err = f.chat.ListConversations(ctx, alice.ID, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, MaxPageSize, page.PageSize)

	found, err := f.chat.SearchConversations(ctx, alice.ID, "golang")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, ids[1], found[0].ID)

	empty, err := f.chat.SearchConversations(ctx, bob.ID, "golang")
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.ErrorIs(t, f.chat.RenameConversation(ctx, ids[0], alice.ID, "  "), ErrInvalidTitle)
	assert.ErrorIs(t, f.chat.RenameConversation(ctx, ids[0], alice.ID, strings.Repeat("t", MaxTitleLength+1)), ErrInvalidTitle)
	assert.ErrorIs(t, f.chat.RenameConversation(ctx, ids[0], bob.ID, "Mine"), ErrConversationNotFound)
	require.NoError(t, f.chat.RenameConversation(ctx, ids[0], alice.ID, "Greetings"))

	title, err := f.chat.RegenerateTitle(ctx, ids[0], alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chat about hello", title)

	_, err = f.chat.RegenerateTitle(ctx, ids[0], bob.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	assert.ErrorIs(t, f.chat.DeleteConversation(ctx, ids[0], bob.ID), ErrConversationNotFound)
	require.NoError(t, f.chat.DeleteConversation(ctx, ids[0], alice.ID))
	_, _, err = f.chat.GetConversationDetails(ctx, ids[0], alice.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestAccountService(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t, true, nil)

	tests := []struct {
		name string
		reg  Registration
		want error
	}{
		{"no username", Registration{Password: "password123"}, ErrUsernameRequired},
		{"long username", Registration{Username: strings.Repeat("u", MaxUsernameLength+1), Password: "password123"}, ErrUsernameTooLong},
		{"short password", Registration{Username: "carol", Password: "short"}, ErrPasswordTooShort},
		{"mismatch", Registration{Username: "carol", Password: "password123", PasswordConfirm: "password124"}, ErrPasswordMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.accounts.Register(ctx, tt.reg)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	u, err := f.accounts.Register(ctx, Registration{Username: " carol ", Email: "c@example.com", Password: "password123", PasswordConfirm: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "carol", u.Username)

	_, err = f.accounts.Register(ctx, Registration{Username: "carol", Password: "password123"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	got, err := f.accounts.Authenticate(ctx, "carol", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.accounts.Authenticate(ctx, "carol", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.accounts.Authenticate(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	byID, err := f.accounts.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", byID.Email)
}
