package rag

import (
	"cmp"
	"math"
	"slices"
)

// Rank scores every candidate against query by cosine similarity and returns
// at most topK results, best first. Candidates with an empty or zero-norm
// embedding, or with a dimension different from query, are left out rather
// than scored. Equal scores keep their candidate order.
func Rank(query []float32, candidates []Chunk, topK int) []RankedChunk {
	if topK <= 0 || len(query) == 0 {
		return nil
	}
	qNorm := norm(query)
	if qNorm == 0 {
		return nil
	}

	ranked := make([]RankedChunk, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) != len(query) {
			continue
		}
		cNorm := norm(c.Embedding)
		if cNorm == 0 {
			continue
		}
		ranked = append(ranked, RankedChunk{
			Score: dot(query, c.Embedding) / (qNorm * cNorm),
			Chunk: c,
		})
	}

	slices.SortStableFunc(ranked, func(a, b RankedChunk) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// DimensionMismatches counts candidates that carry an embedding whose length
// differs from the query's. Such vectors come from a different model and are
// never compared.
func DimensionMismatches(query []float32, candidates []Chunk) int {
	n := 0
	for _, c := range candidates {
		if len(c.Embedding) > 0 && len(c.Embedding) != len(query) {
			n++
		}
	}
	return n
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
