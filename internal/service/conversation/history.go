// Package conversation implements conversation-side context management:
// history preparation with summary-based compression, prompt assembly
// against the token budget, and the summarization client.
package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"athena/internal/config"
	"athena/internal/domain/models"
	"athena/internal/metrics"
	"athena/internal/tokenizer"
)

// summaryMessagePrefix frames the stored summary when it is injected as
// a synthetic leading message.
const summaryMessagePrefix = "[Earlier in this conversation]: "

type messageLister interface {
	ListAll(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	ListAfter(ctx context.Context, conversationID uuid.UUID, afterID int64) ([]models.Message, error)
}

type summaryWriter interface {
	SaveSummary(ctx context.Context, id uuid.UUID, summary string, upToID int64) error
}

type summarizer interface {
	Summarize(ctx context.Context, messages []models.Message) string
}

// HistoryManager prepares a conversation's history to fit a token
// budget. It runs one of three paths per turn:
//
//   - fast: the cached running total fits the budget, history is sent
//     verbatim with no message read beyond the list itself;
//   - cached summary: a stored summary stands in for the summarized
//     prefix and only the messages after it are loaded;
//   - compress: older messages are folded into a new summary, which is
//     persisted for subsequent turns.
//
// Compression for a given conversation is serialized with a per-id
// lock; concurrent turns on different conversations do not contend.
type HistoryManager struct {
	messages   messageLister
	summaries  summaryWriter
	summarizer summarizer
	locks      *keyedMutex
	logger     *slog.Logger
}

// NewHistoryManager creates a history manager.
func NewHistoryManager(messages messageLister, summaries summaryWriter, sum summarizer, logger *slog.Logger) *HistoryManager {
	return &HistoryManager{
		messages:   messages,
		summaries:  summaries,
		summarizer: sum,
		locks:      newKeyedMutex(),
		logger:     logger,
	}
}

// Prepare returns the prompt history for the conversation, fitted to
// budget tokens, and whether a compression ran this turn.
func (h *HistoryManager) Prepare(ctx context.Context, conv *models.Conversation, budget int) ([]models.PromptMessage, bool, error) {
	if budget <= 0 {
		// The current message consumed the whole window; history is
		// dropped entirely rather than truncated mid-message.
		h.logger.Warn("history budget exhausted", "conversation_id", conv.ID)
		return nil, false, nil
	}

	// Fast path: the running total maintained by the append write path
	// already tells us everything fits.
	if conv.TokenCount <= budget {
		msgs, err := h.messages.ListAll(ctx, conv.ID)
		if err != nil {
			return nil, false, fmt.Errorf("list messages: %w", err)
		}
		return prompts(msgs), false, nil
	}

	unlock := h.locks.Lock(conv.ID.String())
	defer unlock()

	// Cached summary path: reuse the stored summary while the messages
	// accumulated after it still leave headroom.
	if conv.Summary != nil && *conv.Summary != "" {
		recent, err := h.messages.ListAfter(ctx, conv.ID, conv.SummarizedUpToID)
		if err != nil {
			return nil, false, fmt.Errorf("list recent messages: %w", err)
		}

		// The threshold compares the post-summary growth alone; the
		// summary message itself is not charged against it.
		recentPrompts := prompts(recent)
		if tokenizer.CountMessages(recentPrompts) <= int(config.RecompressFraction*float64(budget)) {
			return append([]models.PromptMessage{summaryMessage(*conv.Summary)}, recentPrompts...), false, nil
		}
		// Recent growth ate the headroom; fall through and recompress.
	}

	return h.compress(ctx, conv, budget)
}

// compress folds the older half of the trimmable history into a fresh
// summary and persists it. The last ProtectLastN messages are always
// kept verbatim.
func (h *HistoryManager) compress(ctx context.Context, conv *models.Conversation, budget int) ([]models.PromptMessage, bool, error) {
	all, err := h.messages.ListAll(ctx, conv.ID)
	if err != nil {
		return nil, false, fmt.Errorf("list messages: %w", err)
	}

	protectFrom := len(all) - config.ProtectLastN
	if protectFrom < 0 {
		protectFrom = 0
	}
	trimmable, protected := all[:protectFrom], all[protectFrom:]

	if len(trimmable) == 0 {
		// Nothing to fold: the protected tail alone exceeds the budget.
		// Send it verbatim and let the provider window absorb it; the
		// hard per-message cap bounds how far over it can run.
		h.logger.Warn("history over budget with nothing trimmable",
			"conversation_id", conv.ID, "messages", len(all))
		metrics.Compressions.WithLabelValues("noop").Inc()
		return prompts(protected), false, nil
	}

	// Summarize the older half of the trimmable span; the newer half
	// stays verbatim so the summary boundary advances gradually.
	mid := len(trimmable) / 2
	if mid < 1 {
		mid = 1
	}
	head, tail := trimmable[:mid], trimmable[mid:]

	summary := h.summarizer.Summarize(ctx, head)
	upToID := head[len(head)-1].ID
	if err := h.summaries.SaveSummary(ctx, conv.ID, summary, upToID); err != nil {
		metrics.Compressions.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("save summary: %w", err)
	}

	h.logger.Info("history compressed",
		"conversation_id", conv.ID,
		"summarized", len(head),
		"kept", len(tail)+len(protected),
		"summarized_up_to_id", upToID)
	metrics.Compressions.WithLabelValues("ok").Inc()

	assembled := make([]models.PromptMessage, 0, 1+len(tail)+len(protected))
	assembled = append(assembled, summaryMessage(summary))
	assembled = append(assembled, prompts(tail)...)
	assembled = append(assembled, prompts(protected)...)
	return assembled, true, nil
}

func summaryMessage(summary string) models.PromptMessage {
	return models.PromptMessage{
		Role:    models.RoleSystem,
		Content: summaryMessagePrefix + summary,
	}
}

func prompts(msgs []models.Message) []models.PromptMessage {
	out := make([]models.PromptMessage, len(msgs))
	for i := range msgs {
		out[i] = msgs[i].Prompt()
	}
	return out
}
