package search

import (
	"testing"

	"github.com/google/uuid"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases and splits", "Quarterly Report FY2024", []string{"quarterly", "report", "fy2024"}},
		{"collapses whitespace", "  hello \t world\n", []string{"hello", "world"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func buildTestIndex(t *testing.T, texts []string) (*BM25, []uuid.UUID) {
	t.Helper()
	ids := make([]uuid.UUID, len(texts))
	corpus := make([][]string, len(texts))
	for i, text := range texts {
		ids[i] = uuid.New()
		corpus[i] = Tokenize(text)
	}
	return NewBM25(ids, corpus), ids
}

func TestBM25RanksTermOverlap(t *testing.T) {
	t.Parallel()

	index, ids := buildTestIndex(t, []string{
		"revenue grew in the third quarter",
		"the office moved to a new building",
		"revenue revenue revenue forecasts for next quarter",
	})

	results := index.Search("quarterly revenue forecasts", 10)
	if len(results) == 0 {
		t.Fatal("expected results for overlapping query")
	}
	// Entry 2 mentions both query terms and repeats one; it must beat
	// entry 0 which mentions only one.
	if results[0] != ids[2] {
		t.Errorf("top result = %s, want %s", results[0], ids[2])
	}
	for _, id := range results {
		if id == ids[1] {
			t.Error("entry with no query-term overlap should not score")
		}
	}
}

func TestBM25RareTermsWeighMore(t *testing.T) {
	t.Parallel()

	index, ids := buildTestIndex(t, []string{
		"the system the system the system",
		"zanzibar shipping manifest",
		"the system overview",
	})

	results := index.Search("zanzibar", 10)
	if len(results) != 1 || results[0] != ids[1] {
		t.Fatalf("Search(zanzibar) = %v, want only %s", results, ids[1])
	}
}

func TestBM25Limit(t *testing.T) {
	t.Parallel()

	index, _ := buildTestIndex(t, []string{
		"alpha beta", "alpha gamma", "alpha delta", "alpha epsilon",
	})

	results := index.Search("alpha", 2)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
}

func TestBM25EmptyInputs(t *testing.T) {
	t.Parallel()

	index, _ := buildTestIndex(t, []string{"some text here"})
	if results := index.Search("", 5); results != nil {
		t.Errorf("empty query returned %v, want nil", results)
	}
	if results := index.Search("unrelated words", 5); results != nil {
		t.Errorf("no-overlap query returned %v, want nil", results)
	}

	empty := NewBM25(nil, nil)
	if results := empty.Search("anything", 5); results != nil {
		t.Errorf("empty index returned %v, want nil", results)
	}
}
