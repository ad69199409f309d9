package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"athena/internal/config"
	"athena/internal/domain"
	"athena/internal/domain/models"
	"athena/internal/domain/providers"
	"athena/internal/domain/repositories"
	"athena/internal/handler/sse"
	"athena/internal/httputil"
	"athena/internal/metrics"
	"athena/internal/service/conversation"
	"athena/internal/tokenizer"
)

// defaultTitle is the placeholder a conversation is created with; the
// repository's conditional title update keys on it.
const defaultTitle = "New Conversation"

const maxTitleLength = 60

type retriever interface {
	Retrieve(ctx context.Context, query string, userID uuid.UUID, documentScope []uuid.UUID, topK int, searchAll bool) ([]models.RetrievalResult, error)
}

// ChatHandler runs streaming chat turns.
type ChatHandler struct {
	conversations repositories.ConversationRepository
	assembler     *conversation.Assembler
	retriever     retriever
	completions   providers.CompletionProvider
	chatModel     string
	logger        *slog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(
	conversations repositories.ConversationRepository,
	assembler *conversation.Assembler,
	ret retriever,
	completions providers.CompletionProvider,
	chatModel string,
	logger *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		assembler:     assembler,
		retriever:     ret,
		completions:   completions,
		chatModel:     chatModel,
		logger:        logger,
	}
}

type chatRequest struct {
	ConversationID *uuid.UUID  `json:"conversation_id"`
	Message        string      `json:"message"`
	DocumentIDs    []uuid.UUID `json:"document_ids"`
	SearchAll      bool        `json:"search_all"`
}

func (r chatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required, validation.Length(1, 65536)),
		validation.Field(&r.DocumentIDs, validation.Length(0, 50)),
	)
}

// Chat handles POST /api/chat: validates the message, assembles the
// budgeted prompt with retrieved context, streams the completion as
// SSE and persists both sides of the turn.
//
// All rejections (bad input, over-long message, unknown conversation)
// happen before the stream starts, so the client either gets a plain
// HTTP error or a well-formed event stream, never both.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The hard per-message cap gates the whole turn: nothing downstream
	// (embedding, search, the provider) runs for an oversized message.
	if tokens := tokenizer.CountText(req.Message); tokens > config.MaxMessageTokens {
		respondDomainError(w, &domain.ValidationError{
			Message: fmt.Sprintf("message is %d tokens, the maximum is %d", tokens, config.MaxMessageTokens),
		})
		return
	}

	ctx := r.Context()

	conv, created, err := h.resolveConversation(ctx, req.ConversationID, userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	// Retrieval degrades to no context, never fails the turn.
	results, err := h.retriever.Retrieve(ctx, req.Message, userID, req.DocumentIDs, config.RagTopK, req.SearchAll)
	if err != nil {
		h.logger.Warn("retrieval failed, continuing without context",
			"conversation_id", conv.ID, "error", err)
		results = nil
	}
	ragBlock := conversation.FormatRagBlock(results, config.RagBudgetTokens)

	started := time.Now()
	prompt, didCompress, err := h.assembler.BuildMessages(ctx, conv, req.Message, ragBlock)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if _, err := h.assembler.AppendMessage(ctx, conv.ID, models.RoleUser, req.Message, nil); err != nil {
		h.logger.Error("failed to store user message", "conversation_id", conv.ID, "error", err)
		respondDomainError(w, err)
		return
	}

	stream, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	stream.Event("start", map[string]any{
		"conversation_id": conv.ID,
		"created":         created,
	})

	streamCtx, cancel := context.WithTimeout(ctx, config.ChatTimeout)
	defer cancel()

	response, err := h.completions.Stream(streamCtx, prompt, func(token string) error {
		return stream.Event("token", map[string]string{"content": token})
	})
	if err != nil {
		h.logger.Error("completion stream failed", "conversation_id", conv.ID, "error", err)
		stream.Event("error", map[string]string{"detail": "completion failed"})
		return
	}

	messageID, err := h.assembler.AppendMessage(ctx, conv.ID, models.RoleAssistant, response, &h.chatModel)
	if err != nil {
		// The reply was already delivered; losing the row is a server
		// fault worth surfacing, not a reason to drop the stream.
		h.logger.Error("failed to store assistant message", "conversation_id", conv.ID, "error", err)
	}

	if created {
		if err := h.conversations.SetTitleIfNew(ctx, conv.ID, titleFrom(req.Message)); err != nil {
			h.logger.Warn("failed to auto-title conversation", "conversation_id", conv.ID, "error", err)
		}
	}

	metrics.ChatTurns.Inc()
	stream.Event("done", map[string]any{
		"conversation_id": conv.ID,
		"message_id":      messageID,
		"did_compress":    didCompress,
		"total_tokens":    tokenizer.CountMessages(prompt),
		"sources":         sourceFilenames(results),
		"latency_ms":      time.Since(started).Milliseconds(),
	})
}

// resolveConversation loads the target conversation or creates a fresh
// one when no id was supplied. The bool reports creation.
func (h *ChatHandler) resolveConversation(ctx context.Context, id *uuid.UUID, userID uuid.UUID) (*models.Conversation, bool, error) {
	if id != nil {
		conv, err := h.conversations.Get(ctx, *id, userID)
		return conv, false, err
	}

	conv := &models.Conversation{
		ID:     uuid.New(),
		UserID: userID,
		Title:  defaultTitle,
	}
	if err := h.conversations.Create(ctx, conv); err != nil {
		return nil, false, err
	}
	return conv, true, nil
}

// titleFrom derives a conversation title from the first message.
func titleFrom(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = strings.TrimSpace(string(runes[:maxTitleLength])) + "..."
	}
	if title == "" {
		return defaultTitle
	}
	return title
}

// sourceFilenames returns the distinct filenames behind the retrieval
// results, in rank order.
func sourceFilenames(results []models.RetrievalResult) []string {
	seen := make(map[string]struct{}, len(results))
	names := make([]string, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Filename]; ok {
			continue
		}
		seen[r.Filename] = struct{}{}
		names = append(names, r.Filename)
	}
	return names
}
