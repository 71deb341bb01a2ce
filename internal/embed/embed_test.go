package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := NewLocalEmbedder(DefaultDimensions)

	a, err := e.Embed(context.Background(), "review the pull request")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := e.Embed(context.Background(), "review the pull request")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(a) != DefaultDimensions {
		t.Errorf("vector length = %d, want %d", len(a), DefaultDimensions)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestLocalEmbedder_Normalized(t *testing.T) {
	e := NewLocalEmbedder(0)
	if e.Dimensions() != DefaultDimensions {
		t.Errorf("Dimensions() = %d, want default %d", e.Dimensions(), DefaultDimensions)
	}

	vec, err := e.Embed(context.Background(), "write unit tests for the auth module")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("vector norm = %f, want 1", math.Sqrt(norm))
	}
}

func TestLocalEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	e := NewLocalEmbedder(DefaultDimensions)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "fix the login bug in the auth handler")
	near, _ := e.Embed(ctx, "fix login bug auth handler")
	far, _ := e.Embed(ctx, "bake a chocolate cake for the party")

	if got, other := CosineSimilarity(query, near), CosineSimilarity(query, far); got <= other {
		t.Errorf("similarity to related text (%f) not above unrelated text (%f)", got, other)
	}
}

func TestCosineSimilarity_Edges(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("mismatched lengths: got %f, want 0", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector: got %f, want 0", got)
	}
	if got := CosineSimilarity([]float32{1, 2}, []float32{1, 2}); math.Abs(got-1) > 1e-6 {
		t.Errorf("identical vectors: got %f, want 1", got)
	}
}

func TestOpenAIEmbedder_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q, want /v1/embeddings", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req["input"] != "hello" {
			t.Errorf("input = %v, want hello", req["input"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 0, "embedding": []float64{0.1, 0.2, 0.3}},
			},
			"model": "test-model",
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Dimensions: 3,
	})

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	want := []float32{0.1, 0.2, 0.3}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %f, want %f", i, vec[i], want[i])
		}
	}
}

func TestOpenAIEmbedder_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, Dimensions: 3})
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
