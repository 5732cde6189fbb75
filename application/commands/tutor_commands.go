package commands

import (
	"tutormatch-backend/pkg/utils"
)

// PromoteToTutorCommand upgrades an eligible student account and opens a
// tutor profile in the same operation
type PromoteToTutorCommand struct {
	UserID     string   `json:"user_id" validate:"required,uuid"`
	Subjects   []string `json:"subjects" validate:"required,min=1,max=10,dive,min=1,max=60"`
	HourlyRate float64  `json:"hourly_rate" validate:"required,gt=0"`
	Bio        string   `json:"bio" validate:"max=2000"`
}

// Validate implements bus.Command
func (c PromoteToTutorCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UpdateTutorProfileCommand applies a partial tutor profile update
type UpdateTutorProfileCommand struct {
	TutorID    string    `json:"tutor_id" validate:"required,uuid"`
	ActorID    string    `json:"actor_id" validate:"required"`
	Subjects   *[]string `json:"subjects,omitempty" validate:"omitempty,min=1,max=10,dive,min=1,max=60"`
	HourlyRate *float64  `json:"hourly_rate,omitempty" validate:"omitempty,gt=0"`
	Bio        *string   `json:"bio,omitempty" validate:"omitempty,max=2000"`
}

// Validate implements bus.Command
func (c UpdateTutorProfileCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// RecordSessionOutcomeCommand records a finished or cancelled session
// against the tutor's counters and re-evaluates the tier
type RecordSessionOutcomeCommand struct {
	TutorID string `json:"tutor_id" validate:"required,uuid"`
	Outcome string `json:"outcome" validate:"required,oneof=completed cancelled"`
	// Score optionally refreshes the reputation score in the same operation
	Score *int `json:"score,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// Validate implements bus.Command
func (c RecordSessionOutcomeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ChangeTutorStatusCommand moves a tutor along the status transition table
type ChangeTutorStatusCommand struct {
	TutorID string `json:"tutor_id" validate:"required,uuid"`
	Status  string `json:"status" validate:"required,oneof=pending active suspended retired"`
}

// Validate implements bus.Command
func (c ChangeTutorStatusCommand) Validate() error {
	return utils.ValidateStruct(c)
}
