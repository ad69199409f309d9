// Package sparse owns the per-document lexical (BM25) indexes: building
// and persisting them at ingestion time, caching them in memory for
// query time, and merging several of them into one scoped corpus per
// search.
package sparse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"athena/internal/domain"
	"athena/internal/domain/models"
	"athena/internal/domain/repositories"
	"athena/internal/search"
)

// Service is the sparse index cache. The in-memory map is process-wide
// shared state read by concurrent searches while ingestion rebuilds
// indexes, so all access goes through the RWMutex.
type Service struct {
	repo   repositories.SparseIndexRepository
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[uuid.UUID]*models.SparseIndex
}

// NewService creates a sparse index service.
func NewService(repo repositories.SparseIndexRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		cache:  make(map[uuid.UUID]*models.SparseIndex),
	}
}

// Build tokenizes the chunk texts, persists the index (replacing any
// prior one for the document) and invalidates the cache entry. The
// entry is dropped, not updated: the next read reloads the
// authoritative persisted copy.
func (s *Service) Build(ctx context.Context, documentID uuid.UUID, chunkIDs []uuid.UUID, texts []string) error {
	if len(chunkIDs) != len(texts) {
		return fmt.Errorf("chunk ids and texts length mismatch: %d != %d", len(chunkIDs), len(texts))
	}

	corpus := make([][]string, len(texts))
	for i, text := range texts {
		corpus[i] = search.Tokenize(text)
	}

	index := &models.SparseIndex{
		DocumentID: documentID,
		ChunkIDs:   chunkIDs,
		Corpus:     corpus,
	}
	if err := s.repo.Save(ctx, index); err != nil {
		return fmt.Errorf("persist sparse index: %w", err)
	}

	s.Invalidate(documentID)
	s.logger.Debug("sparse index built", "document_id", documentID, "chunks", len(chunkIDs))
	return nil
}

// Load returns the document's index, from cache when present. A
// document with no built index yields an empty index, not an error.
func (s *Service) Load(ctx context.Context, documentID uuid.UUID) (*models.SparseIndex, error) {
	s.mu.RLock()
	cached, ok := s.cache[documentID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	index, err := s.repo.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			index = &models.SparseIndex{DocumentID: documentID}
		} else {
			return nil, fmt.Errorf("load sparse index: %w", err)
		}
	}

	s.mu.Lock()
	s.cache[documentID] = index
	s.mu.Unlock()
	return index, nil
}

// Invalidate drops the cache entry for a document.
func (s *Service) Invalidate(documentID uuid.UUID) {
	s.mu.Lock()
	delete(s.cache, documentID)
	s.mu.Unlock()
}

// Drop removes the persisted index and the cache entry (document
// deletion).
func (s *Service) Drop(ctx context.Context, documentID uuid.UUID) error {
	if err := s.repo.Delete(ctx, documentID); err != nil {
		return err
	}
	s.Invalidate(documentID)
	return nil
}

// Search merges the requested documents' indexes into one corpus scoped
// exactly to those documents and ranks it by BM25. Documents without a
// built index simply contribute nothing.
func (s *Service) Search(ctx context.Context, documentIDs []uuid.UUID, query string, limit int) ([]uuid.UUID, error) {
	var (
		ids    []uuid.UUID
		corpus [][]string
	)
	for _, docID := range documentIDs {
		index, err := s.Load(ctx, docID)
		if err != nil {
			return nil, err
		}
		if index.Empty() {
			continue
		}
		ids = append(ids, index.ChunkIDs...)
		corpus = append(corpus, index.Corpus...)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	return search.NewBM25(ids, corpus).Search(query, limit), nil
}
