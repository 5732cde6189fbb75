package rules_test

import (
	"testing"

	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/rules"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	policy := config.DefaultPolicyConfig()

	tests := []struct {
		name              string
		completedSessions int
		reputationScore   int
		cancellationRatio float64
		want              valueobjects.Tier
	}{
		{
			name: "fresh tutor is standard",
			want: valueobjects.TierStandard,
		},
		{
			name:              "meets advanced thresholds",
			completedSessions: policy.AdvancedMinSessions,
			reputationScore:   policy.AdvancedMinScore,
			want:              valueobjects.TierAdvanced,
		},
		{
			name:              "meets premium thresholds",
			completedSessions: policy.PremiumMinSessions,
			reputationScore:   policy.PremiumMinScore,
			want:              valueobjects.TierPremium,
		},
		{
			name:              "sessions without score stays standard",
			completedSessions: policy.PremiumMinSessions,
			reputationScore:   policy.AdvancedMinScore - 1,
			want:              valueobjects.TierStandard,
		},
		{
			name:              "excessive cancellations force standard",
			completedSessions: policy.PremiumMinSessions,
			reputationScore:   100,
			cancellationRatio: policy.MaxCancellationRatio + 0.01,
			want:              valueobjects.TierStandard,
		},
		{
			name:              "ratio exactly at limit is still allowed",
			completedSessions: policy.PremiumMinSessions,
			reputationScore:   policy.PremiumMinScore,
			cancellationRatio: policy.MaxCancellationRatio,
			want:              valueobjects.TierPremium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.TierFor(tt.completedSessions, tt.reputationScore, tt.cancellationRatio, policy)
			assert.True(t, got.Equals(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}
