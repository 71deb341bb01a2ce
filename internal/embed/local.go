package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalEmbedder produces deterministic feature-hashed embeddings without any
// network access or model files. Tokens and adjacent-token bigrams are hashed
// into a fixed number of buckets and the result is L2-normalized, so cosine
// similarity between related texts is meaningful even though the vectors are
// not learned.
type LocalEmbedder struct {
	dims int
}

// NewLocalEmbedder creates a local embedder with the given dimensionality.
// dims <= 0 falls back to DefaultDimensions.
func NewLocalEmbedder(dims int) *LocalEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &LocalEmbedder{dims: dims}
}

func (e *LocalEmbedder) Dimensions() int {
	return e.dims
}

// Embed hashes the text's tokens into the vector. The same text always
// produces the same vector. The context is accepted for interface parity and
// checked once up front.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dims)
	tokens := tokenize(text)
	for i, tok := range tokens {
		e.accumulate(vec, tok, 1.0)
		if i > 0 {
			// Bigrams give word order a little weight.
			e.accumulate(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	normalize(vec)
	return vec, nil
}

// accumulate hashes the token twice: once to pick a bucket, once to pick a
// sign, so that unrelated tokens cancel rather than pile up.
func (e *LocalEmbedder) accumulate(vec []float32, token string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(token))
	sum := h.Sum64()

	bucket := int(sum % uint64(e.dims))
	if (sum>>32)&1 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	inv := 1 / math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}
