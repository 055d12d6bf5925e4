package vectorindex

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// ranker scores stored vectors against one query vector by cosine similarity.
type ranker struct {
	query []float32
	norm  float64
}

// newRanker reports false for a zero query, which has no direction to compare against.
func newRanker(query []float32) (ranker, bool) {
	var sq float64
	for _, q := range query {
		sq += float64(q) * float64(q)
	}
	return ranker{query: query, norm: math.Sqrt(sq)}, sq > 0
}

// score is false for a vector of the wrong length or with zero magnitude.
func (r ranker) score(v []float32) (float64, bool) {
	if len(v) != len(r.query) {
		return 0, false
	}
	var dot, sq float64
	for i, x := range v {
		dot += float64(x) * float64(r.query[i])
		sq += float64(x) * float64(x)
	}
	if sq == 0 {
		return 0, false
	}
	return dot / (r.norm * math.Sqrt(sq)), true
}

// top sorts matches best first, breaking score ties by id, and keeps at most k.
func top(matches []Match, k int) []Match {
	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
