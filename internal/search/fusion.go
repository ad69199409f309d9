package search

import (
	"sort"

	"github.com/google/uuid"
)

// ScoredID is a fused ranking entry.
type ScoredID struct {
	ID    uuid.UUID
	Score float64
}

// Fuse merges two ranked id lists with reciprocal rank fusion: each id
// scores the sum over the lists containing it of 1/(k + rank + 1),
// rank 0-based within its list. The result is ordered by descending
// combined score; exact ties go to ids present in b, then to
// first-encounter order.
//
// Rank-based fusion is used instead of score blending because the two
// sources (cosine similarity and BM25) do not live on comparable
// scales; an id ranked well in either list surfaces, and one strong in
// both surfaces first.
func Fuse(a, b []uuid.UUID, k int) []ScoredID {
	scores := make(map[uuid.UUID]float64, len(a)+len(b))
	inB := make(map[uuid.UUID]bool, len(b))
	var order []uuid.UUID

	accumulate := func(list []uuid.UUID) {
		for rank, id := range list {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(k+rank+1)
		}
	}
	accumulate(a)
	accumulate(b)
	for _, id := range b {
		inB[id] = true
	}

	sort.SliceStable(order, func(i, j int) bool {
		si, sj := scores[order[i]], scores[order[j]]
		if si != sj {
			return si > sj
		}
		// Exact-score ties prefer lexical-list entries; remaining ties
		// keep first-encounter order via sort stability.
		return inB[order[i]] && !inB[order[j]]
	})

	fused := make([]ScoredID, len(order))
	for i, id := range order {
		fused[i] = ScoredID{ID: id, Score: scores[id]}
	}
	return fused
}
