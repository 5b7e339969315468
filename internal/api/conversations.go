package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ItsOuaail/ai-chatbot-project/internal/core"
	"github.com/ItsOuaail/ai-chatbot-project/internal/logging"
	"github.com/ItsOuaail/ai-chatbot-project/internal/store"
)

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ChatResponse struct {
	ConversationID    string        `json:"conversation_id"`
	UserMessage       store.Message `json:"user_message"`
	AIMessage         store.Message `json:"ai_message"`
	ConversationTitle string        `json:"conversation_title"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var req ChatRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.chat.SendMessage(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		if isValidationError(err) {
			h.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.FromCtx(r.Context()).Error().Err(err).Int64("user_id", userID).Msg("failed to process chat message")
		h.Error(w, http.StatusInternalServerError, "Failed to process message")
		return
	}

	h.JSON(w, http.StatusOK, ChatResponse{
		ConversationID:    res.Conversation.ID,
		UserMessage:       res.UserMessage,
		AIMessage:         res.AIMessage,
		ConversationTitle: res.Conversation.Title,
	})
}

type ConversationListResponse struct {
	Count   int                  `json:"count"`
	Total   int                  `json:"total"`
	Page    int                  `json:"page"`
	Results []store.Conversation `json:"results"`
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	res, err := h.chat.ListConversations(r.Context(), userID, page, pageSize)
	if err != nil {
		logging.FromCtx(r.Context()).Error().Err(err).Int64("user_id", userID).Msg("failed to list conversations")
		h.Error(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}

	h.JSON(w, http.StatusOK, ConversationListResponse{
		Count:   len(res.Conversations),
		Total:   res.Total,
		Page:    res.Page,
		Results: res.Conversations,
	})
}

func (h *Handler) SearchConversations(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	convs, err := h.chat.SearchConversations(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		logging.FromCtx(r.Context()).Error().Err(err).Int64("user_id", userID).Msg("failed to search conversations")
		h.Error(w, http.StatusInternalServerError, "Failed to search conversations")
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"count": len(convs), "results": convs})
}

type ConversationDetailResponse struct {
	store.Conversation
	Messages []store.Message `json:"messages"`
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	convID := chi.URLParam(r, "conversationID")

	conv, messages, err := h.chat.GetConversationDetails(r.Context(), convID, userID)
	if err != nil {
		h.conversationError(w, r, err, "Failed to get conversation")
		return
	}
	h.JSON(w, http.StatusOK, ConversationDetailResponse{Conversation: *conv, Messages: messages})
}

type RenameRequest struct {
	Title string `json:"title"`
}

func (h *Handler) RenameConversation(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	convID := chi.URLParam(r, "conversationID")

	var req RenameRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.chat.RenameConversation(r.Context(), convID, userID, req.Title); err != nil {
		h.conversationError(w, r, err, "Failed to rename conversation")
		return
	}

	conv, _, err := h.chat.GetConversationDetails(r.Context(), convID, userID)
	if err != nil {
		h.conversationError(w, r, err, "Failed to rename conversation")
		return
	}
	h.JSON(w, http.StatusOK, conv)
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	convID := chi.URLParam(r, "conversationID")

	if err := h.chat.DeleteConversation(r.Context(), convID, userID); err != nil {
		h.conversationError(w, r, err, "Failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RegenerateTitle(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	convID := chi.URLParam(r, "conversationID")

	title, err := h.chat.RegenerateTitle(r.Context(), convID, userID)
	if err != nil {
		h.conversationError(w, r, err, "Failed to generate title")
		return
	}
	h.JSON(w, http.StatusOK, map[string]string{"conversation_id": convID, "title": title})
}

func (h *Handler) conversationError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, core.ErrConversationNotFound):
		h.Error(w, http.StatusNotFound, "Conversation not found")
	case isValidationError(err):
		h.Error(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromCtx(r.Context()).Error().Err(err).Str("conversation_id", chi.URLParam(r, "conversationID")).Msg(message)
		h.Error(w, http.StatusInternalServerError, message)
	}
}
