package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func NewRouter(logger zerolog.Logger, h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/profile", h.Profile)

			r.Post("/chat", h.Chat)

			r.Get("/conversations", h.ListConversations)
			r.Get("/conversations/search", h.SearchConversations)
			r.Get("/conversations/{conversationID}", h.GetConversation)
			r.Patch("/conversations/{conversationID}", h.RenameConversation)
			r.Delete("/conversations/{conversationID}", h.DeleteConversation)
			r.Delete("/conversations/{conversationID}/delete", h.DeleteConversation)
			r.Post("/conversations/{conversationID}/title", h.RegenerateTitle)
		})
	})

	return r
}
