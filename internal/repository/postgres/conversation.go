package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"athena/internal/domain"
	"athena/internal/domain/models"
	"athena/internal/domain/repositories"
)

// PostgresConversationRepository implements ConversationRepository using PostgreSQL
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewConversationRepository creates a new PostgresConversationRepository
func NewConversationRepository(config *RepositoryConfig) repositories.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new conversation
func (r *PostgresConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, title, token_count, message_count, summarized_up_to_id, last_active, created_at)
		VALUES ($1, $2, $3, 0, 0, 0, $4, $4)
		RETURNING created_at
	`, r.tables.Conversations)

	now := time.Now().UTC()
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, conv.ID, conv.UserID, conv.Title, now).Scan(&conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	conv.LastActive = conv.CreatedAt
	return nil
}

// Get retrieves a conversation by ID, scoped to the owning user
func (r *PostgresConversationRepository) Get(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, token_count, message_count, summary, summarized_up_to_id, last_active, created_at
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Conversations)

	var conv models.Conversation
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id, userID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.TokenCount,
		&conv.MessageCount,
		&conv.Summary,
		&conv.SummarizedUpToID,
		&conv.LastActive,
		&conv.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conv, nil
}

// List retrieves the user's conversations, most recently active first
func (r *PostgresConversationRepository) List(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, token_count, message_count, summary, summarized_up_to_id, last_active, created_at
		FROM %s
		WHERE user_id = $1
		ORDER BY last_active DESC
		LIMIT $2
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.Title,
			&conv.TokenCount,
			&conv.MessageCount,
			&conv.Summary,
			&conv.SummarizedUpToID,
			&conv.LastActive,
			&conv.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// SetTitleIfNew sets the title while it still has the placeholder value
func (r *PostgresConversationRepository) SetTitleIfNew(ctx context.Context, id uuid.UUID, title string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET title = $1
		WHERE id = $2 AND title = 'New Conversation'
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, title, id); err != nil {
		return fmt.Errorf("set conversation title: %w", err)
	}
	return nil
}

// SaveSummary persists the compressed summary and advances
// summarized_up_to_id. The monotonicity guard in the WHERE clause makes
// a lost-ordering write a no-op rather than a regression.
func (r *PostgresConversationRepository) SaveSummary(ctx context.Context, id uuid.UUID, summary string, upToID int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			summary = $1,
			summarized_up_to_id = $2
		WHERE id = $3 AND summarized_up_to_id <= $2
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, summary, upToID, id)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("summary write skipped, summarized_up_to_id would regress",
			"conversation_id", id, "up_to_id", upToID)
	}
	return nil
}

// PostgresMessageRepository implements MessageRepository using PostgreSQL
type PostgresMessageRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewMessageRepository creates a new PostgresMessageRepository
func NewMessageRepository(config *RepositoryConfig) repositories.MessageRepository {
	return &PostgresMessageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Append stores a message and updates the conversation's cached totals
// in one transaction. This is the only write path for messages: the
// fast-path budget check trusts token_count, so the two writes must
// stay atomic.
func (r *PostgresMessageRepository) Append(ctx context.Context, conversationID uuid.UUID, role models.Role, content string, model *string, tokenCost int) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			r.logger.Warn("append rollback failed", "error", err)
		}
	}()

	insert := fmt.Sprintf(`
		INSERT INTO %s (conversation_id, role, content, model, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, r.tables.Messages)

	var id int64
	if err := tx.QueryRow(ctx, insert, conversationID, string(role), content, model, time.Now().UTC()).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}

	update := fmt.Sprintf(`
		UPDATE %s SET
			token_count = token_count + $1,
			message_count = message_count + 1,
			last_active = NOW()
		WHERE id = $2
	`, r.tables.Conversations)

	tag, err := tx.Exec(ctx, update, tokenCost, conversationID)
	if err != nil {
		return 0, fmt.Errorf("update conversation totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return id, nil
}

// ListAll returns every message of the conversation in insertion order
func (r *PostgresMessageRepository) ListAll(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	return r.list(ctx, conversationID, 0)
}

// ListAfter returns messages with id greater than afterID
func (r *PostgresMessageRepository) ListAfter(ctx context.Context, conversationID uuid.UUID, afterID int64) ([]models.Message, error) {
	return r.list(ctx, conversationID, afterID)
}

func (r *PostgresMessageRepository) list(ctx context.Context, conversationID uuid.UUID, afterID int64) ([]models.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, conversation_id, role, content, model, created_at
		FROM %s
		WHERE conversation_id = $1 AND id > $2
		ORDER BY id ASC
	`, r.tables.Messages)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, conversationID, afterID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var role string
		err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &msg.Model, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = models.Role(role)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
