// Package vector provides the similarity math used by the brute-force search.
package vector

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity between two vectors of equal
// dimension, in the range [-1, 1]. The accumulation is done in float64 even
// though embeddings are stored as float32.
//
// A dimension mismatch is a programming error and returns an error rather
// than a partial result. If either vector has zero norm the similarity is
// defined as 0 so that a degenerate embedding can never inject NaN into a
// ranking.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d != %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
