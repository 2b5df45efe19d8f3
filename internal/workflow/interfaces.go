package workflow

import (
	"context"

	"github.com/scribeflow/scribeflow/internal/gather"
)

// Gatherer assembles the context bundle for one generation run.
type Gatherer interface {
	Gather(ctx context.Context, authorID, documentID string) (*gather.Bundle, error)
}
