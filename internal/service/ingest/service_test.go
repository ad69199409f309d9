package ingest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"athena/internal/config"
	"athena/internal/domain"
	"athena/internal/domain/models"
	"athena/internal/domain/providers"
	"athena/internal/tokenizer"
)

func TestChunkTextShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	docID := uuid.New()
	chunks := chunkText(docID, "a short document")
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[0].DocumentID != docID {
		t.Errorf("chunk metadata = %+v", chunks[0])
	}
	if chunks[0].Content != "a short document" {
		t.Errorf("content = %q, want input preserved", chunks[0].Content)
	}
	if chunks[0].TokenCount != tokenizer.CountText("a short document") {
		t.Errorf("token count = %d, want tokenizer count", chunks[0].TokenCount)
	}
}

func TestChunkTextWindowsOverlap(t *testing.T) {
	t.Parallel()

	// Well past two windows of tokens.
	text := strings.Repeat("lorem ipsum dolor sit amet ", 300)
	chunks := chunkText(uuid.New(), text)
	if len(chunks) < 3 {
		t.Fatalf("chunks = %d, want several windows", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d, want contiguous 0-based indexes", i, chunk.Index)
		}
		if chunk.TokenCount > config.ChunkSizeTokens {
			t.Errorf("chunk %d has %d tokens, cap is %d", i, chunk.TokenCount, config.ChunkSizeTokens)
		}
	}
	for i := 0; i < len(chunks)-1; i++ {
		if chunks[i].TokenCount != config.ChunkSizeTokens {
			t.Errorf("non-final chunk %d has %d tokens, want full window", i, chunks[i].TokenCount)
		}
	}

	// Consecutive windows share their boundary tokens.
	first := tokenizer.Encode(chunks[0].Content)
	second := tokenizer.Encode(chunks[1].Content)
	step := config.ChunkSizeTokens - config.ChunkOverlapTokens
	for i := 0; i < config.ChunkOverlapTokens; i++ {
		if first[step+i] != second[i] {
			t.Fatalf("windows do not overlap at token %d", i)
		}
	}
}

func TestChunkTextEmpty(t *testing.T) {
	t.Parallel()

	if chunks := chunkText(uuid.New(), ""); chunks != nil {
		t.Errorf("chunks = %v, want nil for empty text", chunks)
	}
}

type fakeDocRepo struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]*models.Document
	deleted []uuid.UUID
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[uuid.UUID]*models.Document)}
}

func (f *fakeDocRepo) Create(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *doc
	f.docs[doc.ID] = &stored
	return nil
}

func (f *fakeDocRepo) Get(_ context.Context, id, _ uuid.UUID) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocRepo) ListByUser(_ context.Context, _ uuid.UUID) ([]models.Document, error) {
	return nil, nil
}

func (f *fakeDocRepo) ListCompleteByUser(_ context.Context, _ uuid.UUID) ([]models.Document, error) {
	return nil, nil
}

func (f *fakeDocRepo) ListCompleteByIDs(_ context.Context, _ uuid.UUID, _ []uuid.UUID) ([]models.Document, error) {
	return nil, nil
}

func (f *fakeDocRepo) SetStatus(_ context.Context, id uuid.UUID, status models.DocumentStatus, errMsg *string, chunkCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		doc.Error = errMsg
		doc.ChunkCount = chunkCount
	}
	return nil
}

func (f *fakeDocRepo) Delete(_ context.Context, id, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeDocRepo) has(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[id]
	return ok
}

type fakeChunkRepo struct {
	deleted []uuid.UUID
}

func (f *fakeChunkRepo) InsertBatch(_ context.Context, _ []models.Chunk) error { return nil }

func (f *fakeChunkRepo) GetByIDs(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]models.ChunkDetail, error) {
	return nil, nil
}

func (f *fakeChunkRepo) DeleteByDocument(_ context.Context, documentID uuid.UUID) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

type fakeSparseIndexer struct {
	dropped []uuid.UUID
}

func (f *fakeSparseIndexer) Build(_ context.Context, _ uuid.UUID, _ []uuid.UUID, _ []string) error {
	return nil
}

func (f *fakeSparseIndexer) Drop(_ context.Context, documentID uuid.UUID) error {
	f.dropped = append(f.dropped, documentID)
	return nil
}

type fakeVectors struct {
	deleted []uuid.UUID
}

func (f *fakeVectors) Search(_ context.Context, _ providers.VectorQuery) ([]providers.VectorHit, error) {
	return nil, nil
}

func (f *fakeVectors) Upsert(_ context.Context, _ []providers.VectorPoint) error { return nil }

func (f *fakeVectors) DeleteByDocument(_ context.Context, documentID uuid.UUID) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngestRegistersProcessingDocument(t *testing.T) {
	t.Parallel()

	docs := newFakeDocRepo()
	svc := NewService(docs, &fakeChunkRepo{}, &fakeSparseIndexer{}, fakeEmbedder{}, &fakeVectors{}, testLogger())

	doc, err := svc.Ingest(context.Background(), uuid.New(), "notes.txt", "some text")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if doc.Status != models.DocumentProcessing {
		t.Errorf("status = %s, want processing at accept time", doc.Status)
	}
	if !docs.has(doc.ID) {
		t.Error("document row was not created")
	}
}

func TestDeleteRemovesAllDerivedState(t *testing.T) {
	t.Parallel()

	docs := newFakeDocRepo()
	chunks := &fakeChunkRepo{}
	sparse := &fakeSparseIndexer{}
	vectors := &fakeVectors{}
	svc := NewService(docs, chunks, sparse, fakeEmbedder{}, vectors, testLogger())

	userID := uuid.New()
	doc := &models.Document{ID: uuid.New(), UserID: userID, Filename: "old.txt", Status: models.DocumentComplete}
	if err := docs.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), doc.ID, userID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(chunks.deleted) != 1 || chunks.deleted[0] != doc.ID {
		t.Error("chunks were not deleted")
	}
	if len(docs.deleted) != 1 {
		t.Error("document row was not deleted")
	}
	if len(sparse.dropped) != 1 {
		t.Error("sparse index was not dropped")
	}
	if len(vectors.deleted) != 1 {
		t.Error("vectors were not deleted")
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeDocRepo(), &fakeChunkRepo{}, &fakeSparseIndexer{}, fakeEmbedder{}, &fakeVectors{}, testLogger())

	err := svc.Delete(context.Background(), uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("expected not-found error")
	}
}
