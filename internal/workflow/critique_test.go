package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsRefinement(t *testing.T) {
	tests := []struct {
		name     string
		critique string
		keywords []string
		want     bool
	}{
		{
			name:     "clean critique",
			critique: "The draft is accurate and complete.",
			keywords: DefaultCritiqueKeywords,
			want:     false,
		},
		{
			name:     "flags an error",
			critique: "There is an error in the medication list.",
			keywords: DefaultCritiqueKeywords,
			want:     true,
		},
		{
			name:     "case insensitive match",
			critique: "The allergy history is MISSING.",
			keywords: DefaultCritiqueKeywords,
			want:     true,
		},
		{
			name:     "keyword inside a larger word",
			critique: "The plan could be improved substantially.",
			keywords: DefaultCritiqueKeywords,
			want:     true,
		},
		{
			name:     "empty critique",
			critique: "",
			keywords: DefaultCritiqueKeywords,
			want:     false,
		},
		{
			name:     "custom keyword set",
			critique: "The note has a factual slip.",
			keywords: []string{"slip"},
			want:     true,
		},
		{
			name:     "no keywords never refines",
			critique: "error error error",
			keywords: nil,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsRefinement(tt.critique, tt.keywords))
		})
	}
}
