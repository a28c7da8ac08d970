package models

// Confidence tiers bucket a continuous detection confidence into a discrete
// exploration recommendation. The thresholds are owned by the orchestration core,
// not by evaluator implementations.
const (
	TierRejected       = "tier_0" // below threshold, never persisted
	TierReconnaissance = "tier_1"
	TierExploration    = "tier_2"
	TierDrillReady     = "tier_3"
)

const (
	TierDrillReadyThreshold     = 0.85
	TierExplorationThreshold    = 0.70
	TierReconnaissanceThreshold = 0.55
)

// TierForConfidence maps a confidence score in [0,1] to its tier.
func TierForConfidence(confidence float64) string {
	switch {
	case confidence >= TierDrillReadyThreshold:
		return TierDrillReady
	case confidence >= TierExplorationThreshold:
		return TierExploration
	case confidence >= TierReconnaissanceThreshold:
		return TierReconnaissance
	default:
		return TierRejected
	}
}
