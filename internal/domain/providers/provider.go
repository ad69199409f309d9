// Package providers declares the contracts for the external systems the
// engine calls: the embedding/completion provider and the dense vector
// store. Only the calling contracts are defined here; how embeddings or
// completions are computed is the provider's business.
package providers

import (
	"context"

	"github.com/google/uuid"

	"athena/internal/domain/models"
)

// EmbeddingProvider computes a dense vector for a text.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionProvider generates text from a message list.
type CompletionProvider interface {
	// Complete runs a single non-streaming completion.
	Complete(ctx context.Context, messages []models.PromptMessage) (string, error)

	// Stream runs a streaming completion, invoking emit for each token.
	// Returns the full accumulated response. A non-nil error from emit
	// aborts the stream.
	Stream(ctx context.Context, messages []models.PromptMessage, emit func(token string) error) (string, error)
}

// VectorQuery is a typed search request against the vector store.
// UserID is always enforced; DocumentIDs narrows to a document set when
// non-empty (equality for one id, set membership for several).
type VectorQuery struct {
	Vector      []float32
	Limit       int
	UserID      uuid.UUID
	DocumentIDs []uuid.UUID
}

// VectorHit is a single dense search result.
type VectorHit struct {
	ChunkID uuid.UUID
	Score   float64
}

// VectorPoint is one chunk's embedding plus the payload the store
// filters on.
type VectorPoint struct {
	ChunkID    uuid.UUID
	Vector     []float32
	UserID     uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	Filename   string
}

// VectorStore is the dense index over chunk embeddings.
type VectorStore interface {
	Search(ctx context.Context, query VectorQuery) ([]VectorHit, error)
	Upsert(ctx context.Context, points []VectorPoint) error
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
}
