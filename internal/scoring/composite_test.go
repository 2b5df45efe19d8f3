package scoring

import (
	"context"
	"testing"

	"github.com/scribeflow/scribeflow/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{name: "default weights", weights: DefaultWeights(), wantErr: false},
		{name: "custom weights summing to one", weights: Weights{EditRate: 0.5, WordErrorRate: 0.2, Similarity: 0.3}, wantErr: false},
		{name: "sum below one", weights: Weights{EditRate: 0.3, WordErrorRate: 0.3, Similarity: 0.3}, wantErr: true},
		{name: "sum above one", weights: Weights{EditRate: 0.5, WordErrorRate: 0.5, Similarity: 0.5}, wantErr: true},
		{name: "negative weight", weights: Weights{EditRate: -0.2, WordErrorRate: 0.6, Similarity: 0.6}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewEngineRejectsBadWeights(t *testing.T) {
	_, err := NewEngine(nil, Weights{EditRate: 1, WordErrorRate: 1, Similarity: 1})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestQualityScore(t *testing.T) {
	engine, err := NewEngine(nil, DefaultWeights())
	require.NoError(t, err)

	tests := []struct {
		name       string
		ser        float64
		wer        float64
		similarity float64
		want       float64
	}{
		{name: "perfect rewrite", ser: 0, wer: 0, similarity: 1, want: 1.0},
		{name: "worst case", ser: 1, wer: 1, similarity: 0, want: 0.0},
		{name: "default similarity midpoint", ser: 0.5, wer: 0.5, similarity: 0.7, want: 0.3*0.5 + 0.3*0.5 + 0.4*0.7},
		{name: "heavy edits with high similarity", ser: 1, wer: 1, similarity: 1, want: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, engine.QualityScore(tt.ser, tt.wer, tt.similarity), 1e-9)
		})
	}
}

func TestExpansionScore(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{name: "no text", ratio: 0, want: 0},
		{name: "half length", ratio: 0.5, want: 0.25},
		{name: "no expansion", ratio: 1.0, want: 0.5},
		{name: "ramp midpoint", ratio: 1.25, want: 0.75},
		{name: "ideal band lower edge", ratio: 1.5, want: 1.0},
		{name: "ideal band interior", ratio: 2.0, want: 1.0},
		{name: "ideal band upper edge", ratio: 2.5, want: 1.0},
		{name: "decay past band", ratio: 3.0, want: 0.75},
		{name: "decay to floor", ratio: 5.0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ExpansionScore(tt.ratio), 1e-9)
		})
	}
}

func TestImprovementScore(t *testing.T) {
	t.Run("weights quality and expansion", func(t *testing.T) {
		// Four words rewritten to eight: ratio 2.0 sits in the ideal band.
		original := "patient stable vitals normal"
		rewritten := "the patient remains stable and vitals are normal"
		got := ImprovementScore(0.8, original, rewritten)
		assert.InDelta(t, 0.7*0.8+0.3*1.0, got, 1e-9)
	})

	t.Run("verbatim rewrite earns the neutral expansion score", func(t *testing.T) {
		text := "patient stable vitals normal"
		got := ImprovementScore(1.0, text, text)
		assert.InDelta(t, 0.7*1.0+0.3*0.5, got, 1e-9)
	})

	t.Run("empty original contributes nothing", func(t *testing.T) {
		got := ImprovementScore(0.5, "", "whatever text")
		assert.InDelta(t, 0.7*0.5, got, 1e-9)
	})
}

func TestEngineScore(t *testing.T) {
	ctx := context.Background()

	t.Run("identical documents with no embedder", func(t *testing.T) {
		engine, err := NewEngine(nil, DefaultWeights())
		require.NoError(t, err)

		text := "Patient is stable. Vitals normal."
		metrics := engine.Score(ctx, text, text)

		assert.Zero(t, metrics.SentenceEditRate)
		assert.Zero(t, metrics.WordErrorRate)
		assert.InDelta(t, DefaultSimilarity, metrics.Similarity, 1e-9)
		assert.InDelta(t, 0.3+0.3+0.4*DefaultSimilarity, metrics.QualityScore, 1e-9)
	})

	t.Run("terse dictation expanded into prose", func(t *testing.T) {
		original := "Pt c/o chest pain. Hx of HTN and diabetis."
		rewritten := "Patient complains of chest pain. History of hypertension and diabetes."

		embedder := &stubEmbedder{vectors: map[string][]float64{
			original:  {0.8, 0.59, 0.1},
			rewritten: {0.79, 0.6, 0.11},
		}}
		engine, err := NewEngine(embedder, DefaultWeights())
		require.NoError(t, err)

		metrics := engine.Score(ctx, original, rewritten)

		// Expanded abbreviations are partial edits, so both rates stay
		// well below a full rewrite and the composite clears 0.7 on the
		// strength of similarity.
		assert.Greater(t, metrics.SentenceEditRate, 0.0)
		assert.Less(t, metrics.SentenceEditRate, 0.6)
		assert.Greater(t, metrics.WordErrorRate, 0.0)
		assert.Less(t, metrics.WordErrorRate, 0.6)
		assert.Greater(t, metrics.Similarity, 0.7)
		assert.Greater(t, metrics.QualityScore, 0.7)
	})

	t.Run("unrelated rewrite scores poorly", func(t *testing.T) {
		original := "Pt c/o chest pain. Hx of HTN and diabetis."
		rewritten := "Quarterly sales review scheduled for Monday. Bring updated figures."

		embedder := &stubEmbedder{vectors: map[string][]float64{
			original:  {1, 0},
			rewritten: {0, 1},
		}}
		engine, err := NewEngine(embedder, DefaultWeights())
		require.NoError(t, err)

		metrics := engine.Score(ctx, original, rewritten)

		assert.Greater(t, metrics.SentenceEditRate, 0.5)
		assert.Greater(t, metrics.WordErrorRate, 0.5)
		assert.Less(t, metrics.QualityScore, 0.6)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		engine, err := NewEngine(nil, DefaultWeights())
		require.NoError(t, err)

		original := "Pt seen today. Wound healing well."
		rewritten := "The patient was seen today. The wound is healing well."
		first := engine.Score(ctx, original, rewritten)
		second := engine.Score(ctx, original, rewritten)
		assert.Equal(t, first, second)
	})

	t.Run("all metrics stay in bounds", func(t *testing.T) {
		engine, err := NewEngine(nil, DefaultWeights())
		require.NoError(t, err)

		pairs := [][2]string{
			{"", ""},
			{"one", ""},
			{"", "one"},
			{"a b c", "x y z w v u t s r q p o n m"},
			{"same text here", "same text here"},
		}
		for _, pair := range pairs {
			metrics := engine.Score(ctx, pair[0], pair[1])
			for name, v := range map[string]float64{
				"ser":         metrics.SentenceEditRate,
				"wer":         metrics.WordErrorRate,
				"similarity":  metrics.Similarity,
				"quality":     metrics.QualityScore,
				"improvement": metrics.ImprovementScore,
			} {
				assert.GreaterOrEqual(t, v, 0.0, "%s for %q -> %q", name, pair[0], pair[1])
				assert.LessOrEqual(t, v, 1.0, "%s for %q -> %q", name, pair[0], pair[1])
			}
		}
	})
}
