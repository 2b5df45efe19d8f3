package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/scribeflow/scribeflow/internal/common"
	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/scribeflow/scribeflow/internal/service"
)

// Expansion ratio bands for the improvement score. A rewrite is expected to
// expand terse dictation; the ideal band rewards roughly doubling the text.
const (
	expansionIdealLow  = 1.5
	expansionIdealHigh = 2.5
	expansionDecayRate = 0.5
)

// Weights configures the quality score composite. The three weights must
// sum to 1.
type Weights struct {
	EditRate      float64
	WordErrorRate float64
	Similarity    float64
}

// DefaultWeights returns the standard quality score weighting.
func DefaultWeights() Weights {
	return Weights{
		EditRate:      0.3,
		WordErrorRate: 0.3,
		Similarity:    0.4,
	}
}

// Validate rejects weight sets that do not sum to 1.
func (w Weights) Validate() error {
	sum := w.EditRate + w.WordErrorRate + w.Similarity
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: quality weights must sum to 1, got %.4f", common.ErrInvalidConfig, sum)
	}
	if w.EditRate < 0 || w.WordErrorRate < 0 || w.Similarity < 0 {
		return fmt.Errorf("%w: quality weights cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// Engine folds the individual metrics into composite scores.
type Engine struct {
	embedder service.Embedder
	weights  Weights
}

// NewEngine creates a scoring engine. The embedder may be nil, in which case
// similarity falls back to DefaultSimilarity.
func NewEngine(embedder service.Embedder, weights Weights) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Engine{embedder: embedder, weights: weights}, nil
}

// Metrics holds every metric computed for one (original, rewritten) pair.
// All values are in [0,1].
type Metrics struct {
	SentenceEditRate float64
	WordErrorRate    float64
	Similarity       float64
	QualityScore     float64
	ImprovementScore float64
}

// Score computes all metrics and composites for an original document and
// its rewrite.
func (e *Engine) Score(ctx context.Context, original, rewritten string) Metrics {
	ser := SentenceEditRate(original, rewritten)
	wer := WordErrorRate(original, rewritten)
	sim := SemanticSimilarity(ctx, e.embedder, original, rewritten)

	quality := e.QualityScore(ser, wer, sim)
	improvement := ImprovementScore(quality, original, rewritten)

	return Metrics{
		SentenceEditRate: ser,
		WordErrorRate:    wer,
		Similarity:       sim,
		QualityScore:     quality,
		ImprovementScore: improvement,
	}
}

// QualityScore combines the edit rates and similarity into one composite,
// clamped to [0,1].
func (e *Engine) QualityScore(ser, wer, similarity float64) float64 {
	score := e.weights.EditRate*(1-ser) +
		e.weights.WordErrorRate*(1-wer) +
		e.weights.Similarity*similarity
	return clamp(score)
}

// ImprovementScore combines quality with an expansion-ratio score that
// rewards a rewritten/original word-count ratio in the ideal band.
func ImprovementScore(quality float64, original, rewritten string) float64 {
	ratio := expansionRatio(original, rewritten)
	return clamp(0.7*quality + 0.3*ExpansionScore(ratio))
}

// ExpansionScore maps a word-count ratio onto [0,1]: 1.0 inside the ideal
// band, proportional penalty below 1.0, a ramp between 1.0 and the band,
// and linear decay above it.
func ExpansionScore(ratio float64) float64 {
	switch {
	case ratio < 0:
		return 0
	case ratio < 1.0:
		return 0.5 * ratio
	case ratio < expansionIdealLow:
		// Ramp from 0.5 at ratio 1.0 up to 1.0 at the band edge.
		return 0.5 + 0.5*(ratio-1.0)/(expansionIdealLow-1.0)
	case ratio <= expansionIdealHigh:
		return 1.0
	default:
		return clamp(1.0 - (ratio-expansionIdealHigh)*expansionDecayRate)
	}
}

func expansionRatio(original, rewritten string) float64 {
	origWords := model.CountWords(original)
	if origWords == 0 {
		return 0
	}
	return float64(model.CountWords(rewritten)) / float64(origWords)
}
