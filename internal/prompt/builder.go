// Package prompt renders gathered context into the fixed set of
// instruction templates used by the generation workflow.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scribeflow/scribeflow/internal/gather"
	"github.com/scribeflow/scribeflow/internal/model"
)

// System returns the system prompt shared by all completion calls.
func System() string {
	return `You are a clinical documentation specialist. You rewrite rough dictated notes into clear, complete, professionally formatted documents. Preserve every clinical fact; never invent findings. Expand abbreviations, fix spelling and grammar, and structure the note with standard section headings.`
}

// Draft renders the draft-generation prompt from the context bundle and
// the per-category correction histogram computed by the pattern-matching
// step. Histogram categories are listed heaviest first.
func Draft(bundle *gather.Bundle, histogram map[model.PatternCategory]int) string {
	var sb strings.Builder

	if bundle.Profile != nil {
		fmt.Fprintf(&sb, "Author: %s (%s, experience level: %s)\n\n",
			bundle.Profile.Name,
			bundle.Profile.Specialty,
			bundle.Profile.Experience)
	}

	if len(histogram) > 0 {
		sb.WriteString("Correction focus areas for this author, weighted by recorded frequency:\n")
		for _, entry := range sortHistogram(histogram) {
			fmt.Fprintf(&sb, "- %s: %d recorded corrections\n", entry.category, entry.weight)
		}
		sb.WriteString("\n")
	}

	if len(bundle.Patterns) > 0 {
		sb.WriteString("This author's recurring corrections (most frequent first):\n")
		for _, p := range bundle.Patterns {
			fmt.Fprintf(&sb, "- [%s] %q should be %q (seen %d times)\n",
				p.Category, p.OriginalSpan, p.CorrectedSpan, p.Frequency)
		}
		sb.WriteString("\n")
	}

	if len(bundle.Examples) > 0 {
		sb.WriteString("Past corrected examples from this author:\n")
		for i, ex := range bundle.Examples {
			fmt.Fprintf(&sb, "Example %d original: %s\nExample %d corrected: %s\n",
				i+1, ex.Original, i+1, ex.Corrected)
		}
		sb.WriteString("\n")
	}

	if len(bundle.Neighbors) > 0 {
		sb.WriteString("Similar correction patterns from the pattern index:\n")
		for _, n := range bundle.Neighbors {
			fmt.Fprintf(&sb, "- %s\n", n)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, `Rewrite the following dictated note into an improved document.

Dictated note:
%s

Respond with ONLY the rewritten document text, no commentary.`, bundle.Document.Text)

	return sb.String()
}

type histogramEntry struct {
	category model.PatternCategory
	weight   int
}

// sortHistogram orders categories by descending weight, then by name so
// equal weights render deterministically.
func sortHistogram(histogram map[model.PatternCategory]int) []histogramEntry {
	entries := make([]histogramEntry, 0, len(histogram))
	for category, weight := range histogram {
		entries = append(entries, histogramEntry{category: category, weight: weight})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return entries[i].category < entries[j].category
	})
	return entries
}

// Critique renders the self-critique prompt comparing the generated text
// against the original.
func Critique(original, generated string) string {
	return fmt.Sprintf(`Review the rewritten document below against the original dictation. Identify any errors, missing clinical facts, unclear phrasing, or formatting problems.

Original dictation:
%s

Rewritten document:
%s

List each issue you find. If the rewrite is faithful and complete, say so briefly.`,
		original,
		generated)
}

// Refinement renders the refinement prompt combining the original draft
// prompt, the generated text, and the critique.
func Refinement(draftPrompt, generated, critique string) string {
	return fmt.Sprintf(`A rewritten document was produced for the task below, and a review found issues with it. Produce a revised version that addresses every issue while preserving all clinical content.

Original task:
%s

Previous rewrite:
%s

Review findings:
%s

Respond with ONLY the revised document text, no commentary.`,
		draftPrompt,
		generated,
		critique)
}
