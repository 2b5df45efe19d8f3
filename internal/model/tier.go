package model

// Tier is an author's quality bucket, used to route future documents and
// track improvement over time.
type Tier string

// Tier constants, best to worst.
const (
	TierTop Tier = "Top"
	TierMid Tier = "Mid"
	TierLow Tier = "Low"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierTop, TierMid, TierLow:
		return true
	}
	return false
}
