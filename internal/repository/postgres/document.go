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

// PostgresDocumentRepository implements DocumentRepository using PostgreSQL
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new PostgresDocumentRepository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, filename, status, chunk_count, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
		RETURNING created_at
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.ID, doc.UserID, doc.Filename, string(doc.Status), time.Now().UTC(),
	).Scan(&doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID, scoped to the owning user
func (r *PostgresDocumentRepository) Get(ctx context.Context, id, userID uuid.UUID) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, filename, status, error, chunk_count, created_at
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListByUser returns all of the user's documents, newest first
func (r *PostgresDocumentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, filename, status, error, chunk_count, created_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, r.tables.Documents)
	return r.queryDocuments(ctx, query, userID)
}

// ListCompleteByUser returns the user's fully ingested documents
func (r *PostgresDocumentRepository) ListCompleteByUser(ctx context.Context, userID uuid.UUID) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, filename, status, error, chunk_count, created_at
		FROM %s
		WHERE user_id = $1 AND status = 'complete'
		ORDER BY created_at DESC
	`, r.tables.Documents)
	return r.queryDocuments(ctx, query, userID)
}

// ListCompleteByIDs returns complete documents from the id set, scoped
// to the user. Unknown or incomplete ids are skipped, not errors.
func (r *PostgresDocumentRepository) ListCompleteByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT id, user_id, filename, status, error, chunk_count, created_at
		FROM %s
		WHERE user_id = $1 AND status = 'complete' AND id = ANY($2)
		ORDER BY created_at DESC
	`, r.tables.Documents)
	return r.queryDocuments(ctx, query, userID, ids)
}

// SetStatus records ingestion progress
func (r *PostgresDocumentRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, errMsg *string, chunkCount int) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = $1, error = $2, chunk_count = $3
		WHERE id = $4
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, string(status), errMsg, chunkCount, id)
	if err != nil {
		return fmt.Errorf("set document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the document row
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresDocumentRepository) queryDocuments(ctx context.Context, query string, args ...interface{}) ([]models.Document, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var documents []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, *doc)
	}
	return documents, rows.Err()
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	var status string
	err := row.Scan(&doc.ID, &doc.UserID, &doc.Filename, &status, &doc.Error, &doc.ChunkCount, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	doc.Status = models.DocumentStatus(status)
	return &doc, nil
}

// PostgresChunkRepository implements ChunkRepository using PostgreSQL
type PostgresChunkRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewChunkRepository creates a new PostgresChunkRepository
func NewChunkRepository(config *RepositoryConfig) repositories.ChunkRepository {
	return &PostgresChunkRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// InsertBatch stores a document's chunks
func (r *PostgresChunkRepository) InsertBatch(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, chunk_index, content, token_count)
		VALUES ($1, $2, $3, $4, $5)
	`, r.tables.Chunks)

	batch := &pgx.Batch{}
	for i := range chunks {
		c := &chunks[i]
		batch.Queue(query, c.ID, c.DocumentID, c.Index, c.Content, c.TokenCount)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			if IsPgForeignKeyError(err) {
				// The document row was cascade-deleted mid-ingest.
				return fmt.Errorf("document %s: %w", chunks[0].DocumentID, domain.ErrNotFound)
			}
			return fmt.Errorf("insert chunk batch: %w", err)
		}
	}
	return nil
}

// GetByIDs resolves chunks with filenames by id. Missing ids are
// simply absent from the map.
func (r *PostgresChunkRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ChunkDetail, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]models.ChunkDetail{}, nil
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.token_count, d.filename
		FROM %s c
		JOIN %s d ON d.id = c.document_id
		WHERE c.id = ANY($1)
	`, r.tables.Chunks, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	details := make(map[uuid.UUID]models.ChunkDetail, len(ids))
	for rows.Next() {
		var d models.ChunkDetail
		err := rows.Scan(&d.ID, &d.DocumentID, &d.Index, &d.Content, &d.TokenCount, &d.Filename)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		details[d.ID] = d
	}
	return details, rows.Err()
}

// DeleteByDocument removes all chunks of a document
func (r *PostgresChunkRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, r.tables.Chunks)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}
