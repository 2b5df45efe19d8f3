// Package gather assembles the context bundle consumed by the generation
// workflow: author profile, target document, correction-pattern history,
// historical example pairs, and similarity-ranked pattern neighbors.
package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/scribeflow/scribeflow/internal/common"
	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/scribeflow/scribeflow/internal/service"
)

// Bundle limits. High-frequency patterns dominate the prompt budget, so the
// pattern list is the largest slice.
const (
	maxPatterns  = 20
	maxExamples  = 5
	maxNeighbors = 10
)

// Bundle is everything the workflow needs to generate a rewrite.
// Profile is nil when the author record is missing; generation proceeds
// degraded rather than failing.
type Bundle struct {
	Profile   *model.Author
	Document  *model.Document
	Patterns  []model.CorrectionPattern
	Examples  []model.ExamplePair
	Neighbors []string
}

// Aggregator gathers context from the document, pattern, and author
// services. It is read-only across all of them.
type Aggregator struct {
	documents service.DocumentStore
	patterns  service.PatternStore
	neighbors service.NeighborIndex
	registry  service.AuthorRegistry
}

// New creates a context aggregator.
func New(documents service.DocumentStore, patterns service.PatternStore, neighbors service.NeighborIndex, registry service.AuthorRegistry) *Aggregator {
	return &Aggregator{
		documents: documents,
		patterns:  patterns,
		neighbors: neighbors,
		registry:  registry,
	}
}

// Gather returns the context bundle for one (author, document) pair.
// A missing document is an error; a missing author is not.
func (a *Aggregator) Gather(ctx context.Context, authorID, documentID string) (*Bundle, error) {
	doc, err := a.documents.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("document %s: %w", documentID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load document %s: %w", documentID, err)
	}

	bundle := &Bundle{Document: doc}

	profile, err := a.registry.GetAuthor(ctx, authorID)
	switch {
	case err == nil:
		bundle.Profile = profile
	case errors.Is(err, common.ErrNotFound):
		slog.Warn("author record missing, generating without profile", "author_id", authorID)
	default:
		return nil, fmt.Errorf("failed to load author %s: %w", authorID, err)
	}

	patterns, err := a.patterns.GetPatterns(ctx, authorID, maxPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to load correction patterns: %w", err)
	}
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Frequency > patterns[j].Frequency
	})
	if len(patterns) > maxPatterns {
		patterns = patterns[:maxPatterns]
	}
	bundle.Patterns = patterns

	examples, err := a.patterns.GetHistoricalPairs(ctx, authorID, maxExamples)
	if err != nil {
		return nil, fmt.Errorf("failed to load historical pairs: %w", err)
	}
	bundle.Examples = examples

	neighbors, err := a.neighbors.QueryNeighbors(ctx, authorID, maxNeighbors)
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern neighbors: %w", err)
	}
	bundle.Neighbors = neighbors

	return bundle, nil
}
