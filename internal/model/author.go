package model

import "time"

// ExperienceLevel is the five-point descriptor on an author's profile.
// It is a profile attribute owned by the author registry and is distinct
// from the three-level quality Tier used for bucket decisions.
type ExperienceLevel string

// Experience level constants.
const (
	ExperienceExcellent        ExperienceLevel = "Excellent"
	ExperienceGood             ExperienceLevel = "Good"
	ExperienceAverage          ExperienceLevel = "Average"
	ExperiencePoor             ExperienceLevel = "Poor"
	ExperienceNeedsImprovement ExperienceLevel = "NeedsImprovement"
)

// Valid reports whether l is a known experience level.
func (l ExperienceLevel) Valid() bool {
	switch l {
	case ExperienceExcellent, ExperienceGood, ExperienceAverage, ExperiencePoor, ExperienceNeedsImprovement:
		return true
	}
	return false
}

// Author is the profile record for a dictating author.
type Author struct {
	CreatedAt  time.Time
	ID         string
	Name       string
	Specialty  string
	Experience ExperienceLevel
	Tier       Tier
}
