package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for goose
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool and applies pending migrations.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if err := RunPostgresMigrations(ctx, databaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// RunPostgresMigrations applies the embedded migrations over a short-lived
// database/sql handle, since goose does not speak pgxpool.
func RunPostgresMigrations(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	if err := migrate(ctx, db, "postgres", "migrations/postgres"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, first_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, user.Username, user.Email, user.FirstName, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return s.getUser(ctx, `SELECT id, username, email, first_name, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, `SELECT id, username, email, first_name, password_hash, created_at FROM users WHERE username = $1`, username)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) CreateConversation(ctx context.Context, userID int64, title string) (*Conversation, error) {
	conv := &Conversation{ID: uuid.NewString(), UserID: userID, Title: title}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, conv.ID, userID, title).Scan(&conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	return conv, nil
}

const pgConversationColumns = `c.id, c.user_id, c.title, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)`

func (s *PostgresStore) GetConversation(ctx context.Context, id string, userID int64) (*Conversation, error) {
	conv := &Conversation{}
	err := s.pool.QueryRow(ctx,
		`SELECT `+pgConversationColumns+` FROM conversations c WHERE c.id = $1 AND c.user_id = $2`, id, userID).
		Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.MessageCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

func (s *PostgresStore) ListConversations(ctx context.Context, userID int64, limit, offset int) ([]Conversation, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+pgConversationColumns+`
		FROM conversations c
		WHERE c.user_id = $1
		ORDER BY c.updated_at DESC, c.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	convs, err := collectConversations(rows)
	if err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

func (s *PostgresStore) SearchConversations(ctx context.Context, userID int64, query string, limit int) ([]Conversation, error) {
	pattern := likePattern(query)
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgConversationColumns+`
		FROM conversations c
		WHERE c.user_id = $1
		  AND (c.title ILIKE $2
		       OR EXISTS (SELECT 1 FROM messages m WHERE m.conversation_id = c.id AND m.content ILIKE $2))
		ORDER BY c.updated_at DESC
		LIMIT $3
	`, userID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	defer rows.Close()

	return collectConversations(rows)
}

func collectConversations(rows pgx.Rows) ([]Conversation, error) {
	convs := []Conversation{}
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return convs, nil
}

func (s *PostgresStore) RenameConversation(ctx context.Context, id string, userID int64, title string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET title = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`, title, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update conversation title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TouchConversation(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// DeleteConversation relies on ON DELETE CASCADE for the messages.
func (s *PostgresStore) DeleteConversation(ctx context.Context, id string, userID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *Message) error {
	msg.ID = uuid.NewString()
	msg.Timestamp = time.Now().UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, content, is_user, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.ConversationID, msg.Content, msg.IsUser, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, content, is_user, timestamp
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq ASC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func (s *PostgresStore) ListRecentMessages(ctx context.Context, conversationID string, userID int64, limit int) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.conversation_id, m.content, m.is_user, m.timestamp
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.conversation_id = $1 AND c.user_id = $2
		ORDER BY m.seq DESC
		LIMIT $3
	`, conversationID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func (s *PostgresStore) ListFirstMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	return s.ListMessages(ctx, conversationID, limit, 0)
}

func (s *PostgresStore) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, conversationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func collectMessages(rows pgx.Rows) ([]Message, error) {
	messages := []Message{}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Content, &msg.IsUser, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
