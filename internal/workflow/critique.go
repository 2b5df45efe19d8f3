package workflow

import "strings"

// DefaultCritiqueKeywords is the heuristic keyword set that flags a
// critique as signaling defects. Known approximation: a structured
// critique schema may replace this, but the keyword behavior is load
// bearing for parity with historical runs.
var DefaultCritiqueKeywords = []string{
	"error",
	"missing",
	"unclear",
	"should",
	"improve",
}

// NeedsRefinement reports whether the critique text contains any of the
// defect keywords (case-insensitive substring match).
func NeedsRefinement(critique string, keywords []string) bool {
	lowered := strings.ToLower(critique)
	for _, keyword := range keywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
