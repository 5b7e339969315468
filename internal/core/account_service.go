package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ItsOuaail/ai-chatbot-project/internal/auth"
	"github.com/ItsOuaail/ai-chatbot-project/internal/logging"
	"github.com/ItsOuaail/ai-chatbot-project/internal/store"
)

const (
	MinPasswordLength = 8
	MaxUsernameLength = 150
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrUsernameRequired   = errors.New("username is required")
	ErrUsernameTooLong    = fmt.Errorf("username exceeds %d characters", MaxUsernameLength)
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

// Registration is the signup payload.
type Registration struct {
	Username        string
	Email           string
	FirstName       string
	Password        string
	PasswordConfirm string
}

// AccountService owns user registration and credential checks.
type AccountService struct {
	store store.Store
}

func NewAccountService(db store.Store) *AccountService {
	return &AccountService{store: db}
}

func (s *AccountService) Register(ctx context.Context, reg Registration) (*store.User, error) {
	username := strings.TrimSpace(reg.Username)
	switch {
	case username == "":
		return nil, ErrUsernameRequired
	case utf8.RuneCountInString(username) > MaxUsernameLength:
		return nil, ErrUsernameTooLong
	case utf8.RuneCountInString(reg.Password) < MinPasswordLength:
		return nil, ErrPasswordTooShort
	case reg.PasswordConfirm != "" && reg.PasswordConfirm != reg.Password:
		return nil, ErrPasswordMismatch
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		Username:     username,
		Email:        strings.TrimSpace(reg.Email),
		FirstName:    strings.TrimSpace(reg.FirstName),
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logging.FromCtx(ctx).Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("registered user")
	return user, nil
}

// Authenticate returns the user when the password matches, ErrInvalidCredentials otherwise.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (*store.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
