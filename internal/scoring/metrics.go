// Package scoring computes calibrated quality metrics from two free-text
// documents: edit-based rates, embedding-based similarity, and the two
// composite scores built from them. All functions are deterministic given
// identical inputs.
package scoring

import (
	"regexp"
	"strings"
)

var (
	sentenceDelims = regexp.MustCompile(`[.!?]+`)
	wordToken      = regexp.MustCompile(`[\p{L}\p{N}]+(?:['-][\p{L}\p{N}]+)*`)
)

// SplitSentences splits text on sentence delimiters, discarding empty
// fragments.
func SplitSentences(text string) []string {
	parts := sentenceDelims.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// Tokenize extracts case-folded word tokens from text.
func Tokenize(text string) []string {
	return wordToken.FindAllString(strings.ToLower(text), -1)
}

// SentenceEditRate computes the fraction of sentence-level edit work
// needed to transform original into rewritten, capped at 1.0. Aligned
// sentence pairs cost their normalized word-level distance rather than a
// flat substitution, so a paraphrased sentence counts as a partial edit
// instead of a complete replacement.
func SentenceEditRate(original, rewritten string) float64 {
	origSentences := SplitSentences(original)
	newSentences := SplitSentences(rewritten)
	distance := alignmentCost(origSentences, newSentences, sentenceSubstitutionCost)
	rate := distance / float64(max(1, len(origSentences)))
	return min(rate, 1.0)
}

// WordErrorRate computes the same edit rate at word granularity. Aligned
// token pairs cost their normalized character-level distance, so a
// near-miss token like a corrected misspelling counts as a small edit.
func WordErrorRate(original, rewritten string) float64 {
	origWords := Tokenize(original)
	newWords := Tokenize(rewritten)
	distance := alignmentCost(origWords, newWords, tokenSubstitutionCost)
	rate := distance / float64(max(1, len(origWords)))
	return min(rate, 1.0)
}

// tokenSubstitutionCost is the rune-level edit distance between two
// tokens, normalized by the longer token's length. Identical tokens cost
// nothing; tokens with no characters in common cost a full substitution.
func tokenSubstitutionCost(a, b string) float64 {
	if a == b {
		return 0
	}
	ra := []rune(a)
	rb := []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 0
	}
	return float64(runeDistance(ra, rb)) / float64(longest)
}

// sentenceSubstitutionCost is the token-level alignment cost between two
// sentences, normalized by the longer sentence's token count and capped
// at 1.0.
func sentenceSubstitutionCost(a, b string) float64 {
	tokensA := Tokenize(a)
	tokensB := Tokenize(b)
	longest := max(len(tokensA), len(tokensB))
	if longest == 0 {
		return 0
	}
	cost := alignmentCost(tokensA, tokensB, tokenSubstitutionCost) / float64(longest)
	return min(cost, 1.0)
}

// alignmentCost computes the weighted edit distance between two sequences:
// insertions and deletions cost one, substitutions cost subCost(a, b) in
// [0,1]. With a constant substitution cost of one this degenerates to the
// classic Levenshtein distance.
func alignmentCost(a, b []string, subCost func(string, string) float64) float64 {
	if len(a) == 0 {
		return float64(len(b))
	}
	if len(b) == 0 {
		return float64(len(a))
	}

	// Two-row dynamic program keeps memory proportional to len(b).
	prev := make([]float64, len(b)+1)
	curr := make([]float64, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = float64(j)
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = float64(i)
		for j := 1; j <= len(b); j++ {
			substitution := prev[j-1] + subCost(a[i-1], b[j-1])
			deletion := prev[j] + 1
			insertion := curr[j-1] + 1
			curr[j] = min(substitution, min(deletion, insertion))
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// runeDistance computes the Levenshtein distance between two rune slices.
func runeDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1]
				continue
			}
			substitution := prev[j-1]
			deletion := prev[j]
			insertion := curr[j-1]
			curr[j] = 1 + min(substitution, min(deletion, insertion))
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
