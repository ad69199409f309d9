package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"athena/internal/config"
	"athena/internal/domain/models"
	"athena/internal/domain/providers"
)

const summaryPrompt = "Summarize this conversation segment concisely.\n" +
	"Preserve:\n" +
	"- Topics discussed\n" +
	"- Decisions or conclusions reached\n" +
	"- The user's apparent knowledge level\n" +
	"- Any follow-up questions or confusion points\n\n" +
	"Keep it under 200 words. Write in third person, past tense."

// Placeholders returned when summarization cannot produce real prose.
// They are stored and injected like any summary so a provider outage
// degrades quality, never availability.
const (
	summaryTimeoutPlaceholder = "(Earlier messages could not be summarized in time.)"
	summaryFailedPlaceholder  = "(Earlier messages are unavailable.)"
)

// Summarizer compresses a message span into short prose via the
// completion provider.
type Summarizer struct {
	provider providers.CompletionProvider
	logger   *slog.Logger
}

// NewSummarizer creates a summarizer backed by the given provider.
func NewSummarizer(provider providers.CompletionProvider, logger *slog.Logger) *Summarizer {
	return &Summarizer{provider: provider, logger: logger}
}

// Summarize returns a prose summary of the messages. It never returns
// an error: on provider failure or timeout it returns a placeholder so
// compression can proceed and the conversation stays usable.
func (s *Summarizer) Summarize(ctx context.Context, messages []models.Message) string {
	if len(messages) == 0 {
		return ""
	}

	var transcript strings.Builder
	for i := range messages {
		fmt.Fprintf(&transcript, "%s: %s\n", strings.ToUpper(string(messages[i].Role)), messages[i].Content)
	}

	prompt := []models.PromptMessage{
		{Role: models.RoleSystem, Content: summaryPrompt},
		{Role: models.RoleUser, Content: transcript.String()},
	}

	callCtx, cancel := context.WithTimeout(ctx, config.SummarizeTimeout)
	defer cancel()

	summary, err := s.provider.Complete(callCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("summarization timed out, using placeholder",
				"messages", len(messages))
			return summaryTimeoutPlaceholder
		}
		s.logger.Warn("summarization failed, using placeholder",
			"messages", len(messages), "error", err)
		return summaryFailedPlaceholder
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return summaryFailedPlaceholder
	}
	return summary
}
