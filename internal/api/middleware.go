package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ItsOuaail/ai-chatbot-project/internal/logging"
	"github.com/ItsOuaail/ai-chatbot-project/internal/metrics"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserIDFromContext returns the authenticated user, or 0 outside RequireAuth.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// RequireAuth rejects requests without a valid bearer token for an existing user.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.Error(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			h.Error(w, http.StatusUnauthorized, "Invalid authorization header")
			return
		}

		userID, err := h.tokens.Validate(tokenString)
		if err != nil {
			h.Error(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := h.accounts.GetUser(r.Context(), userID)
		if err != nil {
			logging.FromCtx(r.Context()).Error().Err(err).Int64("user_id", userID).Msg("failed to load user for token")
			h.Error(w, http.StatusInternalServerError, "Failed to process user identity")
			return
		}
		if user == nil {
			h.Error(w, http.StatusUnauthorized, "User not found")
			return
		}

		logger := logging.FromCtx(r.Context()).With().Int64("user_id", user.ID).Logger()
		ctx := context.WithValue(r.Context(), userIDKey, user.ID)
		ctx = logging.WithLogger(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger attaches a request-scoped logger to the context and logs
// each completed request.
func RequestLogger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLogger := logger.With().Str("request_id", chimw.GetReqID(r.Context())).Logger()
			r = r.WithContext(logging.WithLogger(r.Context(), reqLogger))

			defer func() {
				reqLogger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("remote_addr", r.RemoteAddr).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Metrics records request counts and latency per normalized route.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := normalizePath(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses conversation IDs to keep label cardinality bounded.
func normalizePath(path string) string {
	const prefix = "/api/conversations/"
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok || rest == "" || rest == "search" {
		return path
	}
	if _, action, found := strings.Cut(rest, "/"); found {
		return prefix + ":id/" + action
	}
	return prefix + ":id"
}
