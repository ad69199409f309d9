package repositories

import (
	"context"

	"github.com/google/uuid"

	"athena/internal/domain/models"
)

// DocumentRepository defines data access for documents.
type DocumentRepository interface {
	// Create inserts a new document (typically in processing state)
	Create(ctx context.Context, doc *models.Document) error

	// Get retrieves a document by ID, scoped to the owning user.
	// Returns domain.ErrNotFound if not found.
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Document, error)

	// ListByUser returns all of the user's documents, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Document, error)

	// ListCompleteByUser returns the user's documents with status
	// complete - the only ones retrieval may read.
	ListCompleteByUser(ctx context.Context, userID uuid.UUID) ([]models.Document, error)

	// ListCompleteByIDs returns complete documents from the given id
	// set, scoped to the user. Unknown or incomplete ids are skipped.
	ListCompleteByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]models.Document, error)

	// SetStatus records ingestion progress. errMsg is nil unless the
	// status is error.
	SetStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, errMsg *string, chunkCount int) error

	// Delete removes the document row. Returns domain.ErrNotFound if
	// not found or owned by another user.
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// ChunkRepository defines data access for chunks.
type ChunkRepository interface {
	// InsertBatch stores a document's chunks
	InsertBatch(ctx context.Context, chunks []models.Chunk) error

	// GetByIDs resolves chunks (with filenames) by id from the
	// authoritative store. IDs that do not resolve are simply absent
	// from the returned map (stale index entries).
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ChunkDetail, error)

	// DeleteByDocument removes all chunks of a document
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
}

// SparseIndexRepository persists per-document lexical indexes.
type SparseIndexRepository interface {
	// Save upserts the index, replacing any prior one for the document.
	Save(ctx context.Context, index *models.SparseIndex) error

	// Get loads the index for a document. Returns domain.ErrNotFound
	// if none has been built yet.
	Get(ctx context.Context, documentID uuid.UUID) (*models.SparseIndex, error)

	// Delete removes the persisted index (no error if absent).
	Delete(ctx context.Context, documentID uuid.UUID) error
}
