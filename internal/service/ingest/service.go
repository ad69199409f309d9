// Package ingest turns uploaded document text into retrievable state:
// token-window chunks in the relational store, embeddings in the vector
// store, and a lexical index for sparse search.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"athena/internal/config"
	"athena/internal/domain/models"
	"athena/internal/domain/providers"
	"athena/internal/domain/repositories"
	"athena/internal/metrics"
	"athena/internal/tokenizer"
)

type sparseIndexer interface {
	Build(ctx context.Context, documentID uuid.UUID, chunkIDs []uuid.UUID, texts []string) error
	Drop(ctx context.Context, documentID uuid.UUID) error
}

// Service ingests and deletes documents.
type Service struct {
	docs     repositories.DocumentRepository
	chunks   repositories.ChunkRepository
	sparse   sparseIndexer
	embedder providers.EmbeddingProvider
	vectors  providers.VectorStore
	logger   *slog.Logger
}

// NewService creates an ingestion service.
func NewService(
	docs repositories.DocumentRepository,
	chunks repositories.ChunkRepository,
	sparse sparseIndexer,
	embedder providers.EmbeddingProvider,
	vectors providers.VectorStore,
	logger *slog.Logger,
) *Service {
	return &Service{
		docs:     docs,
		chunks:   chunks,
		sparse:   sparse,
		embedder: embedder,
		vectors:  vectors,
		logger:   logger,
	}
}

// Ingest registers the document in processing state and indexes it in
// the background. The document row's status column is the only record
// of progress; callers poll the document to observe completion.
func (s *Service) Ingest(ctx context.Context, userID uuid.UUID, filename, text string) (*models.Document, error) {
	doc := &models.Document{
		ID:       uuid.New(),
		UserID:   userID,
		Filename: filename,
		Status:   models.DocumentProcessing,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	go s.process(doc, text)
	return doc, nil
}

// process runs the indexing pipeline with its own deadline, detached
// from the request context that started it.
func (s *Service) process(doc *models.Document, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), config.IngestTimeout)
	defer cancel()

	if err := s.index(ctx, doc, text); err != nil {
		s.logger.Error("document ingestion failed",
			"document_id", doc.ID, "filename", doc.Filename, "error", err)
		msg := err.Error()
		if serr := s.docs.SetStatus(ctx, doc.ID, models.DocumentError, &msg, 0); serr != nil {
			s.logger.Error("failed to record ingestion error",
				"document_id", doc.ID, "error", serr)
		}
		metrics.DocumentsIngested.WithLabelValues("error").Inc()
		return
	}
	metrics.DocumentsIngested.WithLabelValues("ok").Inc()
}

func (s *Service) index(ctx context.Context, doc *models.Document, text string) error {
	chunks := chunkText(doc.ID, text)
	if len(chunks) == 0 {
		return fmt.Errorf("document %q has no indexable text", doc.Filename)
	}

	points := make([]providers.VectorPoint, len(chunks))
	for i, chunk := range chunks {
		embedCtx, cancel := context.WithTimeout(ctx, config.EmbedTimeout)
		vector, err := s.embedder.Embed(embedCtx, chunk.Content)
		cancel()
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", chunk.Index, err)
		}
		points[i] = providers.VectorPoint{
			ChunkID:    chunk.ID,
			Vector:     vector,
			UserID:     doc.UserID,
			DocumentID: doc.ID,
			ChunkIndex: chunk.Index,
			Filename:   doc.Filename,
		}
	}

	if err := s.vectors.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	if err := s.chunks.InsertBatch(ctx, chunks); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	ids := make([]uuid.UUID, len(chunks))
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
		texts[i] = chunk.Content
	}
	if err := s.sparse.Build(ctx, doc.ID, ids, texts); err != nil {
		return fmt.Errorf("build sparse index: %w", err)
	}

	if err := s.docs.SetStatus(ctx, doc.ID, models.DocumentComplete, nil, len(chunks)); err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}

	s.logger.Info("document ingested",
		"document_id", doc.ID, "filename", doc.Filename, "chunks", len(chunks))
	return nil
}

// Delete removes a document and all of its derived state. The relational
// rows go first so retrieval stops resolving the chunks immediately;
// index cleanup failures leave only stale entries, which result
// resolution drops.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.docs.Get(ctx, id, userID); err != nil {
		return err
	}

	if err := s.chunks.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.docs.Delete(ctx, id, userID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if err := s.sparse.Drop(ctx, id); err != nil {
		s.logger.Warn("failed to drop sparse index", "document_id", id, "error", err)
	}
	if err := s.vectors.DeleteByDocument(ctx, id); err != nil {
		s.logger.Warn("failed to delete vectors", "document_id", id, "error", err)
	}
	return nil
}

// chunkText splits text into token windows of ChunkSizeTokens with
// ChunkOverlapTokens overlap between consecutive windows.
func chunkText(documentID uuid.UUID, text string) []models.Chunk {
	tokens := tokenizer.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	step := config.ChunkSizeTokens - config.ChunkOverlapTokens
	var chunks []models.Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + config.ChunkSizeTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		chunks = append(chunks, models.Chunk{
			ID:         uuid.New(),
			DocumentID: documentID,
			Index:      len(chunks),
			Content:    tokenizer.Decode(window),
			TokenCount: len(window),
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
