// Package rules contains the pure business-rule evaluators. Functions here
// never perform I/O and never treat a "no" answer as an error; they compute
// decisions from snapshots and policy thresholds.
package rules

import (
	"time"

	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/pkg/utils"
)

// AccountSnapshot is the slice of user state the evaluators need. Use cases
// may build one by hand for hypothetical checks without loading an aggregate.
type AccountSnapshot struct {
	Active    bool
	CreatedAt time.Time
}

// SnapshotUser builds an AccountSnapshot from a user aggregate
func SnapshotUser(user *entities.User) AccountSnapshot {
	return AccountSnapshot{
		Active:    user.IsActive(),
		CreatedAt: user.CreatedAt(),
	}
}

// CanTransitionRole decides whether an account may move between roles.
// Self-transitions are never allowed; admin is only reachable through the
// out-of-band administrative path; inactive accounts cannot change role;
// otherwise the account must be old enough, measured in whole days.
func CanTransitionRole(current, target valueobjects.Role, snapshot AccountSnapshot, policy *config.PolicyConfig) bool {
	if policy == nil {
		policy = config.DefaultPolicyConfig()
	}

	if current.Equals(target) {
		return false
	}
	if current.IsAdmin() || target.IsAdmin() {
		return false
	}
	if !snapshot.Active {
		return false
	}

	return utils.WholeDaysBetween(snapshot.CreatedAt, time.Now()) >= policy.RoleUpgradeMinAccountAgeDays
}

// ShouldLockAccount decides whether an account should be locked. An already
// inactive account is always reported as lockable, whatever the attempt
// count, so callers short-circuit login flows uniformly.
func ShouldLockAccount(snapshot AccountSnapshot, failedAttempts int, policy *config.PolicyConfig) bool {
	if policy == nil {
		policy = config.DefaultPolicyConfig()
	}

	if !snapshot.Active {
		return true
	}
	return failedAttempts >= policy.MaxFailedLoginAttempts
}
