package rules_test

import (
	"testing"
	"time"

	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/rules"

	"github.com/stretchr/testify/assert"
)

func activeSnapshot(age time.Duration) rules.AccountSnapshot {
	return rules.AccountSnapshot{
		Active:    true,
		CreatedAt: time.Now().Add(-age),
	}
}

func TestCanTransitionRole(t *testing.T) {
	policy := config.DefaultPolicyConfig()
	oldEnough := time.Duration(policy.RoleUpgradeMinAccountAgeDays) * 24 * time.Hour

	tests := []struct {
		name     string
		current  valueobjects.Role
		target   valueobjects.Role
		snapshot rules.AccountSnapshot
		want     bool
	}{
		{
			name:     "student to tutor with mature active account",
			current:  valueobjects.RoleStudent,
			target:   valueobjects.RoleTutor,
			snapshot: activeSnapshot(oldEnough + time.Hour),
			want:     true,
		},
		{
			name:     "self transition is always rejected",
			current:  valueobjects.RoleStudent,
			target:   valueobjects.RoleStudent,
			snapshot: activeSnapshot(365 * 24 * time.Hour),
			want:     false,
		},
		{
			name:     "admin target is rejected",
			current:  valueobjects.RoleStudent,
			target:   valueobjects.RoleAdmin,
			snapshot: activeSnapshot(365 * 24 * time.Hour),
			want:     false,
		},
		{
			name:     "admin source is rejected",
			current:  valueobjects.RoleAdmin,
			target:   valueobjects.RoleTutor,
			snapshot: activeSnapshot(365 * 24 * time.Hour),
			want:     false,
		},
		{
			name:    "inactive account is rejected regardless of age",
			current: valueobjects.RoleStudent,
			target:  valueobjects.RoleTutor,
			snapshot: rules.AccountSnapshot{
				Active:    false,
				CreatedAt: time.Now().Add(-365 * 24 * time.Hour),
			},
			want: false,
		},
		{
			name:     "account younger than threshold is rejected",
			current:  valueobjects.RoleStudent,
			target:   valueobjects.RoleTutor,
			snapshot: activeSnapshot(oldEnough - 25*time.Hour),
			want:     false,
		},
		{
			name:     "age measured in whole days, partial day does not count",
			current:  valueobjects.RoleStudent,
			target:   valueobjects.RoleTutor,
			snapshot: activeSnapshot(oldEnough - time.Hour),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.CanTransitionRole(tt.current, tt.target, tt.snapshot, policy)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldLockAccount(t *testing.T) {
	policy := config.DefaultPolicyConfig()

	t.Run("active under threshold is not locked", func(t *testing.T) {
		snapshot := activeSnapshot(time.Hour)
		assert.False(t, rules.ShouldLockAccount(snapshot, policy.MaxFailedLoginAttempts-1, policy))
	})

	t.Run("active at threshold is locked", func(t *testing.T) {
		snapshot := activeSnapshot(time.Hour)
		assert.True(t, rules.ShouldLockAccount(snapshot, policy.MaxFailedLoginAttempts, policy))
	})

	t.Run("inactive account is lockable even at zero attempts", func(t *testing.T) {
		snapshot := rules.AccountSnapshot{Active: false, CreatedAt: time.Now()}
		assert.True(t, rules.ShouldLockAccount(snapshot, 0, policy))
	})
}
