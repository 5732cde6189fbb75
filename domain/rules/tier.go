package rules

import (
	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/valueobjects"
)

// TierFor places a tutor in a tier from cumulative counters. An excessive
// cancellation ratio forces the lowest tier before anything else is
// considered; otherwise the tier comes from threshold comparison on session
// count and reputation score.
func TierFor(completedSessions, reputationScore int, cancellationRatio float64, policy *config.PolicyConfig) valueobjects.Tier {
	if policy == nil {
		policy = config.DefaultPolicyConfig()
	}

	if cancellationRatio > policy.MaxCancellationRatio {
		return valueobjects.TierStandard
	}

	if completedSessions >= policy.PremiumMinSessions && reputationScore >= policy.PremiumMinScore {
		return valueobjects.TierPremium
	}
	if completedSessions >= policy.AdvancedMinSessions && reputationScore >= policy.AdvancedMinScore {
		return valueobjects.TierAdvanced
	}
	return valueobjects.TierStandard
}
