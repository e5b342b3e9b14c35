package constants

// Tier is the coarse confidence attached to a proposed value.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Rank orders tiers so that high > medium > low. Unknown tiers rank below low.
func (t Tier) Rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}

// Outranks reports whether t is strictly stronger than other.
func (t Tier) Outranks(other Tier) bool { return t.Rank() > other.Rank() }

// Tiers lists the valid tiers, strongest first.
func Tiers() []string {
	return []string{string(TierHigh), string(TierMedium), string(TierLow)}
}
