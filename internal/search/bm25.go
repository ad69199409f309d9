package search

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// BM25 parameters (Okapi variant, standard values).
const (
	paramK1      = 1.2
	paramB       = 0.75
	paramEpsilon = 0.25
)

// Tokenize lowercases and whitespace-splits a text. This is the single
// tokenization used for both indexing and queries; persisted corpora
// depend on it staying put.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// BM25 is an Okapi index over a pre-tokenized corpus. Entries are
// identified by chunk id; the parallel corpus slice holds one token
// list per chunk. The index is built at construction time and is
// immutable thereafter, so it is safe for concurrent reads.
type BM25 struct {
	ids                      []uuid.UUID
	documentTermFrequencies  []map[string]int
	documentLengths          []int
	averageDocumentLength    float64
	inverseDocumentFrequency map[string]float64
}

// NewBM25 builds an index over the given corpus. ids and corpus are
// parallel; construction is O(total tokens).
func NewBM25(ids []uuid.UUID, corpus [][]string) *BM25 {
	index := &BM25{
		ids:                      ids,
		documentTermFrequencies:  make([]map[string]int, len(corpus)),
		documentLengths:          make([]int, len(corpus)),
		inverseDocumentFrequency: make(map[string]float64),
	}

	// Track how many entries contain each term (for IDF).
	documentFrequency := make(map[string]int)

	var totalLength int
	for i, tokens := range corpus {
		index.documentLengths[i] = len(tokens)
		totalLength += len(tokens)

		termFrequency := make(map[string]int)
		for _, token := range tokens {
			if termFrequency[token] == 0 {
				documentFrequency[token]++
			}
			termFrequency[token]++
		}
		index.documentTermFrequencies[i] = termFrequency
	}

	if len(corpus) > 0 {
		index.averageDocumentLength = float64(totalLength) / float64(len(corpus))
	}

	// Precompute IDF. Terms appearing in every entry get a small
	// positive epsilon rather than zero so they still contribute.
	documentCount := float64(len(corpus))
	for term, frequency := range documentFrequency {
		idf := math.Log(1 + (documentCount-float64(frequency)+0.5)/(float64(frequency)+0.5))
		if idf < 0 {
			idf = paramEpsilon
		}
		index.inverseDocumentFrequency[term] = idf
	}

	return index
}

// Search returns up to limit chunk ids ranked by BM25 relevance to the
// query. Entries that score zero are omitted.
func (index *BM25) Search(query string, limit int) []uuid.UUID {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 || len(index.ids) == 0 {
		return nil
	}

	type scored struct {
		index int
		score float64
	}
	var hits []scored

	for i := range index.ids {
		score := index.score(i, queryTokens)
		if score > 0 {
			hits = append(hits, scored{index: i, score: score})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})

	if len(hits) == 0 {
		return nil
	}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]uuid.UUID, len(hits))
	for i, hit := range hits {
		results[i] = index.ids[hit.index]
	}
	return results
}

// score computes the BM25 score of one entry against the query tokens.
func (index *BM25) score(entry int, queryTokens []string) float64 {
	termFrequency := index.documentTermFrequencies[entry]
	documentLength := float64(index.documentLengths[entry])

	var score float64
	for _, token := range queryTokens {
		idf, exists := index.inverseDocumentFrequency[token]
		if !exists {
			continue
		}

		frequency := float64(termFrequency[token])
		if frequency == 0 {
			continue
		}

		// IDF * (tf * (k1 + 1)) / (tf + k1 * (1 - b + b * dl/avgdl))
		numerator := frequency * (paramK1 + 1)
		denominator := frequency + paramK1*(1-paramB+paramB*documentLength/index.averageDocumentLength)
		score += idf * numerator / denominator
	}

	return score
}
