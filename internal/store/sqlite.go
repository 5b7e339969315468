package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database file at dbPath and
// applies pending migrations.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	dsn := dbPath
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=on&_busy_timeout=5000"
	} else {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err = migrate(ctx, db, "sqlite3", "migrations/sqlite"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// User methods
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	user.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email, first_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		user.Username, user.Email, user.FirstName, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return s.getUser(ctx, "SELECT id, username, email, first_name, password_hash, created_at FROM users WHERE id = ?", id)
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, "SELECT id, username, email, first_name, password_hash, created_at FROM users WHERE username = ?", username)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// Conversation methods
func (s *SQLiteStore) CreateConversation(ctx context.Context, userID int64, title string) (*Conversation, error) {
	now := time.Now().UTC()
	conv := &Conversation{ID: uuid.NewString(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversations (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute conversation insert: %w", err)
	}
	return conv, nil
}

const sqliteConversationColumns = `c.id, c.user_id, c.title, c.created_at, c.updated_at,
        (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)`

func (s *SQLiteStore) GetConversation(ctx context.Context, id string, userID int64) (*Conversation, error) {
	var conv Conversation
	err := s.db.QueryRowContext(ctx,
		"SELECT "+sqliteConversationColumns+" FROM conversations c WHERE c.id = ? AND c.user_id = ?", id, userID).
		Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.MessageCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64, limit, offset int) ([]Conversation, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations WHERE user_id = ?", userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT `+sqliteConversationColumns+`
        FROM conversations c
        WHERE c.user_id = ?
        ORDER BY c.updated_at DESC, c.created_at DESC
        LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	convs, err := scanConversations(rows)
	if err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

func (s *SQLiteStore) SearchConversations(ctx context.Context, userID int64, query string, limit int) ([]Conversation, error) {
	pattern := likePattern(query)
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+sqliteConversationColumns+`
        FROM conversations c
        WHERE c.user_id = ?
          AND (c.title LIKE ? ESCAPE '\'
               OR EXISTS (SELECT 1 FROM messages m WHERE m.conversation_id = c.id AND m.content LIKE ? ESCAPE '\'))
        ORDER BY c.updated_at DESC
        LIMIT ?`, userID, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	defer rows.Close()

	return scanConversations(rows)
}

func scanConversations(rows *sql.Rows) ([]Conversation, error) {
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

func (s *SQLiteStore) RenameConversation(ctx context.Context, id string, userID int64, title string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		title, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to execute conversation title update: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) TouchConversation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE conversations SET updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete conversation messages: %w", err)
	}
	return tx.Commit()
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Message methods
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *Message) error {
	msg.ID = uuid.NewString()
	msg.Timestamp = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, conversation_id, content, is_user, timestamp) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.ConversationID, msg.Content, msg.IsUser, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, conversation_id, content, is_user, timestamp
        FROM messages
        WHERE conversation_id = ?
        ORDER BY seq ASC
        LIMIT ? OFFSET ?`, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListRecentMessages returns the newest messages first. The ownership join makes
// a foreign or missing conversation indistinguishable from an empty one.
func (s *SQLiteStore) ListRecentMessages(ctx context.Context, conversationID string, userID int64, limit int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT m.id, m.conversation_id, m.content, m.is_user, m.timestamp
        FROM messages m
        JOIN conversations c ON c.id = m.conversation_id
        WHERE m.conversation_id = ? AND c.user_id = ?
        ORDER BY m.seq DESC
        LIMIT ?`, conversationID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (s *SQLiteStore) ListFirstMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	return s.ListMessages(ctx, conversationID, limit, 0)
}

func (s *SQLiteStore) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
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
