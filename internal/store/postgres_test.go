package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set TEST_POSTGRES_URL to run against a disposable database.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	s, err := NewPostgresStore(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStore_ConversationRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestPostgresStore(t)

	owner := createUser(t, s, "pg-"+uuid.NewString())
	stranger := createUser(t, s, "pg-"+uuid.NewString())

	conv, err := s.CreateConversation(ctx, owner.ID, DefaultConversationTitle)
	require.NoError(t, err)
	addMessages(t, s, conv.ID, "m1", "m2", "m3")

	recent, err := s.ListRecentMessages(ctx, conv.ID, owner.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "m3", recent[0].Content)
	assert.Equal(t, "m2", recent[1].Content)

	foreign, err := s.ListRecentMessages(ctx, conv.ID, stranger.ID, 2)
	require.NoError(t, err)
	assert.Empty(t, foreign)

	hits, err := s.SearchConversations(ctx, owner.ID, "M2", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 3, hits[0].MessageCount)

	err = s.CreateUser(ctx, &User{Username: owner.Username, PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	require.NoError(t, s.DeleteConversation(ctx, conv.ID, owner.ID))
	count, err := s.CountMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
