// Package embed turns text into fixed-length vectors for the cache store's
// nearest-neighbor search. Two implementations are provided: a deterministic
// local embedder that needs no network or model download, and a client for
// OpenAI-compatible embedding endpoints.
package embed

import (
	"context"
	"math"
)

// Embedder maps text to a fixed-length vector. Implementations must be safe
// for concurrent use and must return vectors of exactly Dimensions() length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// DefaultDimensions matches the 384-dimensional space used by the
// MiniLM-class sentence embedding models the cache was designed around.
const DefaultDimensions = 384

// CosineSimilarity returns the cosine similarity of two vectors in [-1, 1].
// Mismatched lengths or zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
