// Package retrieval orchestrates retrieval-augmented context: query
// embedding, scoped dense and sparse search run concurrently, rank
// fusion, and resolution of the fused ids against the authoritative
// store.
package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"athena/internal/config"
	"athena/internal/domain/models"
	"athena/internal/domain/providers"
	"athena/internal/metrics"
	"athena/internal/search"
)

// documentLister is the slice of the document repository retrieval
// needs to establish its search scope.
type documentLister interface {
	ListCompleteByUser(ctx context.Context, userID uuid.UUID) ([]models.Document, error)
	ListCompleteByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]models.Document, error)
}

// chunkResolver resolves fused chunk ids to their stored content.
type chunkResolver interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ChunkDetail, error)
}

// sparseSearcher runs the lexical branch over a document set.
type sparseSearcher interface {
	Search(ctx context.Context, documentIDs []uuid.UUID, query string, limit int) ([]uuid.UUID, error)
}

// Service coordinates the retrieval pipeline.
type Service struct {
	embedder providers.EmbeddingProvider
	vectors  providers.VectorStore
	sparse   sparseSearcher
	docs     documentLister
	chunks   chunkResolver
	logger   *slog.Logger
}

// NewService creates a retrieval coordinator.
func NewService(
	embedder providers.EmbeddingProvider,
	vectors providers.VectorStore,
	sparse sparseSearcher,
	docs documentLister,
	chunks chunkResolver,
	logger *slog.Logger,
) *Service {
	return &Service{
		embedder: embedder,
		vectors:  vectors,
		sparse:   sparse,
		docs:     docs,
		chunks:   chunks,
		logger:   logger,
	}
}

// Retrieve returns the topK most relevant passages for the query,
// scoped to the user's documents. documentScope lists explicitly
// attached documents; searchAll widens the scope to every complete
// document the user owns.
//
// Retrieval never blocks a chat turn: provider and search failures are
// logged and degrade the call to empty results. The two search
// branches are all-or-nothing - if either fails, the other's results
// are discarded rather than presenting an inconsistent source set.
func (s *Service) Retrieve(ctx context.Context, query string, userID uuid.UUID, documentScope []uuid.UUID, topK int, searchAll bool) ([]models.RetrievalResult, error) {
	if len(documentScope) == 0 && !searchAll {
		// No knowledge scope attached; RAG is a no-op, not an error.
		metrics.Retrievals.WithLabelValues("empty_scope").Inc()
		return nil, nil
	}

	started := time.Now()
	defer func() { metrics.RetrievalDuration.Observe(time.Since(started).Seconds()) }()

	candidates, err := s.scopeCandidates(ctx, userID, documentScope, searchAll)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		metrics.Retrievals.WithLabelValues("empty_scope").Inc()
		return nil, nil
	}

	// A query that names one of the scoped documents narrows the search
	// to it; documents outside the attached scope are never pulled in.
	scopeIDs := make([]uuid.UUID, len(candidates))
	for i, doc := range candidates {
		scopeIDs[i] = doc.ID
	}
	if matched, ok := matchDocumentName(query, candidates); ok {
		s.logger.Debug("query narrowed to named document",
			"document_id", matched.ID, "filename", matched.Filename)
		scopeIDs = []uuid.UUID{matched.ID}
	}

	embedCtx, cancel := context.WithTimeout(ctx, config.EmbedTimeout)
	vector, err := s.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		s.logger.Warn("query embedding failed, retrieval degraded to empty", "error", err)
		metrics.Retrievals.WithLabelValues("degraded").Inc()
		return nil, nil
	}

	limit := topK * config.CandidateMultiplier
	var dense, lexical []uuid.UUID

	g, searchCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		searchCtx, cancel := context.WithTimeout(searchCtx, config.SearchTimeout)
		defer cancel()
		hits, err := s.vectors.Search(searchCtx, providers.VectorQuery{
			Vector:      vector,
			Limit:       limit,
			UserID:      userID,
			DocumentIDs: scopeIDs,
		})
		if err != nil {
			return err
		}
		dense = make([]uuid.UUID, len(hits))
		for i, hit := range hits {
			dense[i] = hit.ChunkID
		}
		return nil
	})
	g.Go(func() error {
		searchCtx, cancel := context.WithTimeout(searchCtx, config.SearchTimeout)
		defer cancel()
		ids, err := s.sparse.Search(searchCtx, scopeIDs, query, limit)
		if err != nil {
			return err
		}
		lexical = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("search branch failed, retrieval degraded to empty", "error", err)
		metrics.Retrievals.WithLabelValues("degraded").Inc()
		return nil, nil
	}

	fused := search.Fuse(dense, lexical, config.FusionK)
	if len(fused) > topK {
		fused = fused[:topK]
	}

	results, err := s.resolve(ctx, fused)
	if err != nil {
		return nil, err
	}
	metrics.Retrievals.WithLabelValues("ok").Inc()
	return results, nil
}

// scopeCandidates loads the documents the search may touch. Ownership
// is enforced here for every path: another user's documents are never
// even candidates.
func (s *Service) scopeCandidates(ctx context.Context, userID uuid.UUID, documentScope []uuid.UUID, searchAll bool) ([]models.Document, error) {
	if searchAll {
		return s.docs.ListCompleteByUser(ctx, userID)
	}
	return s.docs.ListCompleteByIDs(ctx, userID, documentScope)
}

// resolve loads chunk text and metadata for the fused ids, preserving
// fused rank order and dropping ids that no longer resolve (stale
// index entries).
func (s *Service) resolve(ctx context.Context, fused []search.ScoredID) ([]models.RetrievalResult, error) {
	if len(fused) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(fused))
	for i, entry := range fused {
		ids[i] = entry.ID
	}
	details, err := s.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]models.RetrievalResult, 0, len(fused))
	for _, entry := range fused {
		detail, ok := details[entry.ID]
		if !ok {
			s.logger.Debug("dropping stale index entry", "chunk_id", entry.ID)
			continue
		}
		results = append(results, models.RetrievalResult{
			ChunkID:    detail.ID,
			Text:       detail.Content,
			Filename:   detail.Filename,
			DocumentID: detail.DocumentID,
			ChunkIndex: detail.Index,
			Score:      entry.Score,
		})
	}
	return results, nil
}
