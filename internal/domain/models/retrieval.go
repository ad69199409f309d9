package models

import "github.com/google/uuid"

// RetrievalResult is one passage returned to the caller.
//
// Score is the combined reciprocal-rank weight, not a similarity:
// vector similarity and BM25 live on different scales, so after fusion
// only the relative ordering is meaningful.
type RetrievalResult struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	Text       string    `json:"text"`
	Filename   string    `json:"filename"`
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Score      float64   `json:"score,omitempty"`
}

// SparseIndex is the persisted lexical index for one document: parallel
// arrays of chunk ids and their tokenized texts. It is rebuilt wholesale
// on (re)ingestion, never incrementally patched.
type SparseIndex struct {
	DocumentID uuid.UUID  `json:"document_id"`
	ChunkIDs   []uuid.UUID `json:"chunk_ids"`
	Corpus     [][]string `json:"corpus"`
}

// Empty reports whether the index holds no chunks.
func (s *SparseIndex) Empty() bool {
	return s == nil || len(s.ChunkIDs) == 0
}
