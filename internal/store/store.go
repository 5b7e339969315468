package store

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrDuplicateUsername is returned by CreateUser when the username is taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrNotFound is returned by mutations that matched no owned row.
	ErrNotFound = errors.New("record not found or not owned by user")
)

// Store is the relational record layer. SQLiteStore and PostgresStore both
// implement it. Lookups return nil, nil when the record does not exist or is
// not owned by the given user.
type Store interface {
	Close() error
	Ping(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// Conversations
	CreateConversation(ctx context.Context, userID int64, title string) (*Conversation, error)
	GetConversation(ctx context.Context, id string, userID int64) (*Conversation, error)
	ListConversations(ctx context.Context, userID int64, limit, offset int) ([]Conversation, int, error)
	SearchConversations(ctx context.Context, userID int64, query string, limit int) ([]Conversation, error)
	RenameConversation(ctx context.Context, id string, userID int64, title string) error
	TouchConversation(ctx context.Context, id string) error
	DeleteConversation(ctx context.Context, id string, userID int64) error

	// Messages
	CreateMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error)
	ListRecentMessages(ctx context.Context, conversationID string, userID int64, limit int) ([]Message, error)
	ListFirstMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
	CountMessages(ctx context.Context, conversationID string) (int, error)
}

// likePattern escapes LIKE metacharacters so user input matches literally.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}
