package scoring

import (
	"context"
	"log/slog"
	"math"

	"github.com/scribeflow/scribeflow/internal/service"
)

// DefaultSimilarity is used when the embedding model is unavailable.
// A degraded metric is preferable to no evaluation.
const DefaultSimilarity = 0.7

// CosineSimilarity returns the cosine of the angle between two vectors,
// or 0 when either vector is empty or zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SemanticSimilarity embeds both documents and returns their cosine
// similarity normalized from [-1,1] to [0,1]. Embedding failures fall back
// to DefaultSimilarity rather than failing the evaluation.
func SemanticSimilarity(ctx context.Context, embedder service.Embedder, original, rewritten string) float64 {
	if embedder == nil {
		return DefaultSimilarity
	}

	origVec, err := embedder.Embed(ctx, original)
	if err != nil {
		slog.Warn("embedding failed, using default similarity", "error", err)
		return DefaultSimilarity
	}

	newVec, err := embedder.Embed(ctx, rewritten)
	if err != nil {
		slog.Warn("embedding failed, using default similarity", "error", err)
		return DefaultSimilarity
	}

	cosine := CosineSimilarity(origVec, newVec)
	return clamp((cosine + 1) / 2)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
