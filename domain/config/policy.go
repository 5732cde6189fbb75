package config

import "time"

// PolicyConfig holds all configurable business rules and thresholds.
// Every numeric policy constant the rule evaluator consults lives here so the
// thresholds are deployment configuration, not hard-coded behavior.
type PolicyConfig struct {
	// Role transitions
	RoleUpgradeMinAccountAgeDays int

	// Account locking
	MaxFailedLoginAttempts int

	// Tutor tiering
	MaxCancellationRatio float64
	PremiumMinSessions   int
	PremiumMinScore      int
	AdvancedMinSessions  int
	AdvancedMinScore     int

	// Tutor constraints
	MaxSubjectsPerTutor int
	MinHourlyRate       float64
	MaxHourlyRate       float64
	MaxBioLength        int

	// User constraints
	MaxDisplayNameLength int

	// Matching requests
	MaxOpenRequestsPerStudent int
	RequestTTL                time.Duration
}

// DefaultPolicyConfig returns the default policy configuration
func DefaultPolicyConfig() *PolicyConfig {
	return &PolicyConfig{
		RoleUpgradeMinAccountAgeDays: 7,

		MaxFailedLoginAttempts: 5,

		MaxCancellationRatio: 0.3,
		PremiumMinSessions:   50,
		PremiumMinScore:      75,
		AdvancedMinSessions:  10,
		AdvancedMinScore:     50,

		MaxSubjectsPerTutor: 10,
		MinHourlyRate:       1.0,
		MaxHourlyRate:       500.0,
		MaxBioLength:        2000,

		MaxDisplayNameLength: 100,

		MaxOpenRequestsPerStudent: 5,
		RequestTTL:                14 * 24 * time.Hour,
	}
}

// ProductionPolicyConfig returns production-specific policy
func ProductionPolicyConfig() *PolicyConfig {
	cfg := DefaultPolicyConfig()

	// Stricter limits for production
	cfg.MaxOpenRequestsPerStudent = 3
	cfg.MaxSubjectsPerTutor = 5

	return cfg
}

// DevelopmentPolicyConfig returns development-specific policy
func DevelopmentPolicyConfig() *PolicyConfig {
	cfg := DefaultPolicyConfig()

	// Permissive settings so local flows are easy to exercise
	cfg.RoleUpgradeMinAccountAgeDays = 0
	cfg.MaxOpenRequestsPerStudent = 50
	cfg.RequestTTL = time.Hour

	return cfg
}

// LoadPolicyConfig loads policy configuration based on environment
func LoadPolicyConfig(environment string) *PolicyConfig {
	switch environment {
	case "production":
		return ProductionPolicyConfig()
	case "development":
		return DevelopmentPolicyConfig()
	default:
		return DefaultPolicyConfig()
	}
}
