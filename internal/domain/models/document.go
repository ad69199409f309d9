package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus tracks ingestion progress. The status column in the
// relational store is the single source of truth; there is no separate
// in-process progress map.
type DocumentStatus string

const (
	DocumentProcessing DocumentStatus = "processing"
	DocumentComplete   DocumentStatus = "complete"
	DocumentError      DocumentStatus = "error"
)

// Document is an ingested knowledge-base file. Retrieval only reads
// documents whose status is complete.
type Document struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	Filename   string         `json:"filename"`
	Status     DocumentStatus `json:"status"`
	Error      *string        `json:"error,omitempty"`
	ChunkCount int            `json:"chunk_count"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Chunk is a bounded slice of a document's text, the unit of both
// indexing and retrieval. Index is 0-based and contiguous within a
// document; it matters for reconstructing context, not for ranking.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Index      int       `json:"chunk_index"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
}

// ChunkDetail is a chunk joined with its owning document's filename,
// as resolved from the authoritative store when building results.
type ChunkDetail struct {
	Chunk
	Filename string `json:"filename"`
}
