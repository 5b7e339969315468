package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ItsOuaail/ai-chatbot-project/internal/auth"
	"github.com/ItsOuaail/ai-chatbot-project/internal/core"
	"github.com/ItsOuaail/ai-chatbot-project/internal/logging"
)

const maxBodyBytes = 64 * 1024

// Pinger is a dependency the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler carries the services every route needs.
type Handler struct {
	chat     *core.ChatService
	accounts *core.AccountService
	tokens   *auth.TokenIssuer
	checks   map[string]Pinger
}

// NewHandler builds the handler set. checks are reported by /api/health.
func NewHandler(chat *core.ChatService, accounts *core.AccountService, tokens *auth.TokenIssuer, checks map[string]Pinger) *Handler {
	return &Handler{chat: chat, accounts: accounts, tokens: tokens, checks: checks}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// decode reads a size-limited JSON body into dst.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// Check is the status of one health dependency.
type Check struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status    string           `json:"status"`
	Mode      string           `json:"mode"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check, len(h.checks))
	healthy := true
	for name, p := range h.checks {
		start := time.Now()
		if err := p.Ping(ctx); err != nil {
			logging.FromCtx(ctx).Warn().Err(err).Str("check", name).Msg("health check failed")
			checks[name] = Check{Status: "fail", Message: "connection failed"}
			healthy = false
			continue
		}
		checks[name] = Check{Status: "pass", Latency: time.Since(start).String()}
	}

	resp := HealthResponse{
		Status:    "healthy",
		Mode:      "live",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.chat.DemoMode() {
		resp.Mode = "demo"
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	h.JSON(w, status, resp)
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), core.Registration{
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUsernameTaken):
			h.Error(w, http.StatusConflict, err.Error())
		case isValidationError(err):
			h.Error(w, http.StatusBadRequest, err.Error())
		default:
			logging.FromCtx(r.Context()).Error().Err(err).Msg("failed to register user")
			h.Error(w, http.StatusInternalServerError, "Failed to create user")
		}
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		logging.FromCtx(r.Context()).Error().Err(err).Int64("user_id", user.ID).Msg("failed to generate token")
		h.Error(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	h.JSON(w, http.StatusCreated, map[string]interface{}{"user": user, "token": token})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		h.Error(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, core.ErrInvalidCredentials) {
			logging.FromCtx(r.Context()).Error().Err(err).Str("username", req.Username).Msg("failed to authenticate")
		}
		h.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		logging.FromCtx(r.Context()).Error().Err(err).Int64("user_id", user.ID).Msg("failed to generate token")
		h.Error(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"user": user, "token": token})
}

// Logout is a no-op server side; tokens are stateless and expire on their own.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		logging.FromCtx(r.Context()).Error().Err(err).Msg("failed to load profile")
		h.Error(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	if user == nil {
		h.Error(w, http.StatusNotFound, "User not found")
		return
	}
	h.JSON(w, http.StatusOK, user)
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrOwnerRequired,
		core.ErrEmptyMessage,
		core.ErrMessageTooLong,
		core.ErrInvalidTitle,
		core.ErrUsernameRequired,
		core.ErrUsernameTooLong,
		core.ErrPasswordTooShort,
		core.ErrPasswordMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
