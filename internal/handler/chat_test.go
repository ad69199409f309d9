package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"athena/internal/config"
	"athena/internal/domain/models"
	"athena/internal/httputil"
)

type countingRetriever struct {
	mu    sync.Mutex
	calls int
}

func (c *countingRetriever) Retrieve(_ context.Context, _ string, _ uuid.UUID, _ []uuid.UUID, _ int, _ bool) ([]models.RetrievalResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, nil
}

func TestChatRejectsOversizedMessageBeforeRetrieval(t *testing.T) {
	t.Parallel()

	ret := &countingRetriever{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewChatHandler(nil, nil, ret, nil, "test-model", logger)

	body, err := json.Marshal(map[string]string{
		"message": strings.Repeat("word ", config.MaxMessageTokens+100),
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	r = httputil.WithUserID(r, uuid.New())
	w := httptest.NewRecorder()

	h.Chat(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if ret.calls != 0 {
		t.Errorf("retriever calls = %d, want none before the size rejection", ret.calls)
	}
}

func TestTitleFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"plain message", "What is the capital of France?", "What is the capital of France?"},
		{"collapses whitespace", "hello\n\n  world", "hello world"},
		{"empty falls back", "   ", defaultTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := titleFrom(tt.message); got != tt.want {
				t.Errorf("titleFrom(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestTitleFromTruncatesLongMessages(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 50)
	title := titleFrom(long)
	if len([]rune(title)) > maxTitleLength+3 {
		t.Errorf("title length = %d runes, want at most %d plus ellipsis", len([]rune(title)), maxTitleLength)
	}
	if !strings.HasSuffix(title, "...") {
		t.Errorf("truncated title %q missing ellipsis", title)
	}
}

func TestSourceFilenamesDeduplicatesInRankOrder(t *testing.T) {
	t.Parallel()

	results := []models.RetrievalResult{
		{ChunkID: uuid.New(), Filename: "report.pdf"},
		{ChunkID: uuid.New(), Filename: "notes.txt"},
		{ChunkID: uuid.New(), Filename: "report.pdf"},
	}

	names := sourceFilenames(results)
	if len(names) != 2 || names[0] != "report.pdf" || names[1] != "notes.txt" {
		t.Errorf("sourceFilenames = %v, want [report.pdf notes.txt]", names)
	}
}
