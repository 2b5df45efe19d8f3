// Package neighbors implements the similarity index over stored pattern
// embeddings, serving ranked neighbor summaries to the context aggregator.
package neighbors

import (
	"context"
	"fmt"
	"sort"

	"github.com/scribeflow/scribeflow/internal/scoring"
	"github.com/scribeflow/scribeflow/internal/service"
)

// EmbeddingSource provides the stored embeddings the index ranks over.
type EmbeddingSource interface {
	ListPatternEmbeddings(ctx context.Context, authorID string) ([]service.PatternEmbedding, error)
}

// Index ranks an author's pattern summaries by similarity to the author's
// overall correction profile (the centroid of their embeddings). The scan
// is brute force; per-author pattern counts stay small enough that an ANN
// structure would be overhead.
type Index struct {
	source EmbeddingSource
}

// NewIndex creates a similarity index over the given embedding source.
func NewIndex(source EmbeddingSource) *Index {
	return &Index{source: source}
}

// QueryNeighbors returns up to limit pattern summaries ranked by cosine
// similarity to the author's embedding centroid, most similar first.
func (i *Index) QueryNeighbors(ctx context.Context, authorID string, limit int) ([]string, error) {
	embeddings, err := i.source.ListPatternEmbeddings(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	centroid := centroid(embeddings)

	type ranked struct {
		summary string
		score   float64
	}
	scored := make([]ranked, 0, len(embeddings))
	for _, embedding := range embeddings {
		scored = append(scored, ranked{
			summary: embedding.Summary,
			score:   scoring.CosineSimilarity(centroid, embedding.Vector),
		})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].score > scored[b].score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	summaries := make([]string, len(scored))
	for idx, r := range scored {
		summaries[idx] = r.summary
	}
	return summaries, nil
}

// centroid averages the embedding vectors. Vectors of mismatched length
// are skipped rather than corrupting the mean.
func centroid(embeddings []service.PatternEmbedding) []float64 {
	dim := len(embeddings[0].Vector)
	sum := make([]float64, dim)
	count := 0

	for _, embedding := range embeddings {
		if len(embedding.Vector) != dim {
			continue
		}
		for j, v := range embedding.Vector {
			sum[j] += v
		}
		count++
	}

	if count == 0 {
		return sum
	}
	for j := range sum {
		sum[j] /= float64(count)
	}
	return sum
}
