package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"athena/internal/domain"
	"athena/internal/domain/models"
	"athena/internal/domain/repositories"
)

// PostgresSparseIndexRepository persists per-document lexical indexes
// as jsonb blobs. Indexes are replaced wholesale on rebuild.
type PostgresSparseIndexRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewSparseIndexRepository creates a new PostgresSparseIndexRepository
func NewSparseIndexRepository(config *RepositoryConfig) repositories.SparseIndexRepository {
	return &PostgresSparseIndexRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Save upserts the index, replacing any prior one for the document
func (r *PostgresSparseIndexRepository) Save(ctx context.Context, index *models.SparseIndex) error {
	chunkIDs, err := json.Marshal(index.ChunkIDs)
	if err != nil {
		return fmt.Errorf("marshal chunk ids: %w", err)
	}
	corpus, err := json.Marshal(index.Corpus)
	if err != nil {
		return fmt.Errorf("marshal corpus: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, chunk_ids, corpus)
		VALUES ($1, $2, $3)
		ON CONFLICT (document_id) DO UPDATE
		SET chunk_ids = EXCLUDED.chunk_ids, corpus = EXCLUDED.corpus
	`, r.tables.SparseIndexes)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, index.DocumentID, chunkIDs, corpus); err != nil {
		return fmt.Errorf("save sparse index: %w", err)
	}
	return nil
}

// Get loads the index for a document
func (r *PostgresSparseIndexRepository) Get(ctx context.Context, documentID uuid.UUID) (*models.SparseIndex, error) {
	query := fmt.Sprintf(`
		SELECT chunk_ids, corpus FROM %s WHERE document_id = $1
	`, r.tables.SparseIndexes)

	var chunkIDs, corpus []byte
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, documentID).Scan(&chunkIDs, &corpus)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("sparse index %s: %w", documentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get sparse index: %w", err)
	}

	index := &models.SparseIndex{DocumentID: documentID}
	if err := json.Unmarshal(chunkIDs, &index.ChunkIDs); err != nil {
		return nil, fmt.Errorf("unmarshal chunk ids: %w", err)
	}
	if err := json.Unmarshal(corpus, &index.Corpus); err != nil {
		return nil, fmt.Errorf("unmarshal corpus: %w", err)
	}
	return index, nil
}

// Delete removes the persisted index (no error if absent)
func (r *PostgresSparseIndexRepository) Delete(ctx context.Context, documentID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, r.tables.SparseIndexes)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, documentID); err != nil {
		return fmt.Errorf("delete sparse index: %w", err)
	}
	return nil
}
