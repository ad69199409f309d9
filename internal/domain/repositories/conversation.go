package repositories

import (
	"context"

	"github.com/google/uuid"

	"athena/internal/domain/models"
)

// ConversationRepository defines data access for conversations.
type ConversationRepository interface {
	// Create inserts a new conversation
	Create(ctx context.Context, conv *models.Conversation) error

	// Get retrieves a conversation by ID, scoped to the owning user.
	// Returns domain.ErrNotFound if not found.
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error)

	// List retrieves the user's conversations, most recently active first.
	List(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversation, error)

	// SetTitleIfNew sets the title only while it still has the initial
	// placeholder value (auto-titling from the first message).
	SetTitleIfNew(ctx context.Context, id uuid.UUID, title string) error

	// SaveSummary persists the compressed summary and advances
	// summarized_up_to_id. upToID must be >= the stored value; the
	// history manager serializes these writes per conversation.
	SaveSummary(ctx context.Context, id uuid.UUID, summary string, upToID int64) error
}

// MessageRepository defines data access for messages.
//
// Append is the ONLY sanctioned write path for messages: it inserts the
// row and updates the owning conversation's token_count, message_count
// and last_active in the same transaction. Direct inserts elsewhere
// would desynchronize the fast-path budget check.
type MessageRepository interface {
	// Append stores a message and returns its id. tokenCost is the
	// message content's token count as charged by the accountant.
	Append(ctx context.Context, conversationID uuid.UUID, role models.Role, content string, model *string, tokenCost int) (int64, error)

	// ListAll returns every message of the conversation in insertion order.
	ListAll(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)

	// ListAfter returns messages with id greater than afterID, in
	// insertion order ("recent" messages past the summarized prefix).
	ListAfter(ctx context.Context, conversationID uuid.UUID, afterID int64) ([]models.Message, error)
}
