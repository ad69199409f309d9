package retrieval

import (
	"testing"

	"github.com/google/uuid"

	"athena/internal/domain/models"
)

func TestNormalizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
	}{
		{"quarterly_report.pdf", "quarterly report"},
		{"Meeting-Notes-2024.md", "meeting notes 2024"},
		{"  spaced   name.txt ", "spaced name"},
		{"noextension", "noextension"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeFilename(tt.filename); got != tt.want {
			t.Errorf("NormalizeFilename(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestMatchDocumentNameNarrowsOnNamedDocument(t *testing.T) {
	t.Parallel()

	target := models.Document{ID: uuid.New(), Filename: "quarterly_report.pdf"}
	candidates := []models.Document{
		{ID: uuid.New(), Filename: "meeting_notes.md"},
		target,
		{ID: uuid.New(), Filename: "roadmap.txt"},
	}

	matched, ok := matchDocumentName("what does the quarterly report say about revenue", candidates)
	if !ok {
		t.Fatal("expected the named document to match")
	}
	if matched.ID != target.ID {
		t.Errorf("matched %s, want %s", matched.Filename, target.Filename)
	}
}

func TestMatchDocumentNameIgnoresUnrelatedQuery(t *testing.T) {
	t.Parallel()

	candidates := []models.Document{
		{ID: uuid.New(), Filename: "quarterly_report.pdf"},
		{ID: uuid.New(), Filename: "meeting_notes.md"},
	}

	if _, ok := matchDocumentName("how do volcanoes form", candidates); ok {
		t.Error("query sharing no words with any filename must not narrow scope")
	}
}

func TestMatchDocumentNameRequiresSharedToken(t *testing.T) {
	t.Parallel()

	// "report" alone shares a token but the overall ratio decides; a
	// candidate sharing no token is never even scored.
	candidates := []models.Document{
		{ID: uuid.New(), Filename: "zzzz_qqqq.bin"},
	}
	if _, ok := matchDocumentName("tell me about the quarterly report", candidates); ok {
		t.Error("no shared token, no match")
	}
}

func TestMatchDocumentNameEmptyCandidates(t *testing.T) {
	t.Parallel()

	if _, ok := matchDocumentName("anything at all", nil); ok {
		t.Error("no candidates, no match")
	}
}
