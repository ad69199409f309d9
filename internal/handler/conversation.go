package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"athena/internal/domain/models"
	"athena/internal/domain/repositories"
	"athena/internal/httputil"
)

const defaultConversationLimit = 50

// ConversationHandler serves conversation listings and transcripts.
type ConversationHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	logger        *slog.Logger
}

// NewConversationHandler creates a conversation handler.
func NewConversationHandler(conversations repositories.ConversationRepository, messages repositories.MessageRepository, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, messages: messages, logger: logger}
}

// List handles GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	convs, err := h.conversations.List(r.Context(), userID, defaultConversationLimit)
	if err != nil {
		h.logger.Error("failed to list conversations", "user_id", userID, "error", err)
		respondDomainError(w, err)
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"conversations": convs,
		"total":         len(convs),
	})
}

// Get handles GET /api/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	conv, err := h.conversations.Get(r.Context(), id, userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conv)
}

// Messages handles GET /api/conversations/{id}/messages
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	// Ownership check before reading the transcript.
	if _, err := h.conversations.Get(r.Context(), id, userID); err != nil {
		respondDomainError(w, err)
		return
	}

	msgs, err := h.messages.ListAll(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list messages", "conversation_id", id, "error", err)
		respondDomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"total":    len(msgs),
	})
}
