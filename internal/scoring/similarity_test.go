package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[text], nil
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{name: "identical vectors", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "opposite vectors", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1},
		{name: "orthogonal vectors", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "scaling does not matter", a: []float64{2, 4}, b: []float64{1, 2}, want: 1},
		{name: "empty vectors", a: nil, b: nil, want: 0},
		{name: "mismatched lengths", a: []float64{1, 2}, b: []float64{1, 2, 3}, want: 0},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 2}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSemanticSimilarity(t *testing.T) {
	ctx := context.Background()

	t.Run("nil embedder falls back to default", func(t *testing.T) {
		got := SemanticSimilarity(ctx, nil, "a", "b")
		assert.InDelta(t, DefaultSimilarity, got, 1e-9)
	})

	t.Run("embedding error falls back to default", func(t *testing.T) {
		embedder := &stubEmbedder{err: errors.New("api down")}
		got := SemanticSimilarity(ctx, embedder, "a", "b")
		assert.InDelta(t, DefaultSimilarity, got, 1e-9)
	})

	t.Run("identical embeddings map to one", func(t *testing.T) {
		embedder := &stubEmbedder{vectors: map[string][]float64{
			"a": {0.5, 0.5},
			"b": {0.5, 0.5},
		}}
		got := SemanticSimilarity(ctx, embedder, "a", "b")
		assert.InDelta(t, 1.0, got, 1e-9)
	})

	t.Run("opposite embeddings map to zero", func(t *testing.T) {
		embedder := &stubEmbedder{vectors: map[string][]float64{
			"a": {1, 0},
			"b": {-1, 0},
		}}
		got := SemanticSimilarity(ctx, embedder, "a", "b")
		assert.InDelta(t, 0.0, got, 1e-9)
	})

	t.Run("orthogonal embeddings map to midpoint", func(t *testing.T) {
		embedder := &stubEmbedder{vectors: map[string][]float64{
			"a": {1, 0},
			"b": {0, 1},
		}}
		got := SemanticSimilarity(ctx, embedder, "a", "b")
		assert.InDelta(t, 0.5, got, 1e-9)
	})
}
