package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"athena/internal/config"
	"athena/internal/domain"
	"athena/internal/domain/models"
	"athena/internal/domain/repositories"
	"athena/internal/tokenizer"
)

const baseSystemPrompt = "You are a helpful assistant. Answer clearly and " +
	"concisely. When information from the user's documents is provided, " +
	"ground your answer in it and mention the source filename."

const ragBlockHeader = "Relevant information from the user's documents:\n"

// Assembler builds the full prompt for a chat turn: system prompt with
// an optional retrieval block, budgeted history, and the current
// message. It is also the sanctioned append path for new messages.
type Assembler struct {
	history  *HistoryManager
	messages repositories.MessageRepository
	logger   *slog.Logger
}

// NewAssembler creates a prompt assembler.
func NewAssembler(history *HistoryManager, messages repositories.MessageRepository, logger *slog.Logger) *Assembler {
	return &Assembler{history: history, messages: messages, logger: logger}
}

// BuildMessages assembles the provider prompt for the current turn.
// The current message is validated against the hard per-message cap
// before any history read or provider call. Returns the prompt and
// whether history compression ran.
func (a *Assembler) BuildMessages(ctx context.Context, conv *models.Conversation, current, ragBlock string) ([]models.PromptMessage, bool, error) {
	currentTokens := tokenizer.CountText(current)
	if currentTokens > config.MaxMessageTokens {
		return nil, false, &domain.ValidationError{
			Message: fmt.Sprintf("message is %d tokens, the maximum is %d", currentTokens, config.MaxMessageTokens),
		}
	}

	system := baseSystemPrompt
	ragTokens := 0
	if ragBlock != "" {
		system += "\n\n" + ragBlock
		ragTokens = tokenizer.CountText(ragBlock)
	}

	// The retrieval block rides inside the system message, so its tokens
	// come out of the history budget like the current message's do.
	budget := config.TotalBudget - config.SystemReserve - config.GenerationReserve -
		currentTokens - ragTokens - config.MessageOverheadTokens

	history, didCompress, err := a.history.Prepare(ctx, conv, budget)
	if err != nil {
		return nil, false, err
	}

	prompt := make([]models.PromptMessage, 0, len(history)+2)
	prompt = append(prompt, models.PromptMessage{Role: models.RoleSystem, Content: system})
	prompt = append(prompt, history...)
	prompt = append(prompt, models.PromptMessage{Role: models.RoleUser, Content: current})
	return prompt, didCompress, nil
}

// FormatRagBlock renders retrieval results as a numbered source block
// bounded by tokenBudget (approximated at RagCharsPerToken characters
// per token). Snippets are taken in rank order; the first one that
// would overflow the budget ends the block. Returns "" for no results.
func FormatRagBlock(results []models.RetrievalResult, tokenBudget int) string {
	if len(results) == 0 {
		return ""
	}

	charBudget := tokenBudget * config.RagCharsPerToken
	var b strings.Builder
	b.WriteString(ragBlockHeader)
	written := 0

	for i, r := range results {
		snippet := fmt.Sprintf("[%d] (%s) %s\n", i+1, r.Filename, strings.TrimSpace(r.Text))
		if b.Len()+len(snippet) > charBudget {
			break
		}
		b.WriteString(snippet)
		written++
	}

	if written == 0 {
		return ""
	}
	return strings.TrimRight(b.String(), "\n")
}

// AppendMessage stores a message through the accounting write path,
// charging its token cost to the conversation's running total.
func (a *Assembler) AppendMessage(ctx context.Context, conversationID uuid.UUID, role models.Role, content string, model *string) (int64, error) {
	cost := tokenizer.CountText(content) + config.MessageOverheadTokens
	id, err := a.messages.Append(ctx, conversationID, role, content, model, cost)
	if err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}
	return id, nil
}
