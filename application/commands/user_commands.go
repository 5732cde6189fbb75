// Package commands defines the write-side command types. Each command
// carries transport-level validation tags; domain rules are enforced by the
// aggregates, not here.
package commands

import (
	"tutormatch-backend/pkg/utils"
)

// RegisterUserCommand creates a new user account
type RegisterUserCommand struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Timezone    string `json:"timezone" validate:"max=64"`
	Role        string `json:"role" validate:"omitempty,oneof=student tutor"`
}

// Validate implements bus.Command
func (c RegisterUserCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UpdateUserProfileCommand applies a partial profile update. Nil fields are
// left untouched.
type UpdateUserProfileCommand struct {
	UserID      string  `json:"user_id" validate:"required,uuid"`
	ActorID     string  `json:"actor_id" validate:"required"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=100"`
	Timezone    *string `json:"timezone,omitempty" validate:"omitempty,max=64"`
}

// Validate implements bus.Command
func (c UpdateUserProfileCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ChangeUserStatusCommand moves a user along the status transition table
type ChangeUserStatusCommand struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Status string `json:"status" validate:"required,oneof=pending active suspended deactivated"`
}

// Validate implements bus.Command
func (c ChangeUserStatusCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ChangeUserRoleCommand changes a user's role subject to eligibility rules
type ChangeUserRoleCommand struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Role   string `json:"role" validate:"required,oneof=student tutor"`
}

// Validate implements bus.Command
func (c ChangeUserRoleCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// RecordFailedLoginCommand bumps the failed-login counter and locks the
// account when the policy threshold is reached
type RecordFailedLoginCommand struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// Validate implements bus.Command
func (c RecordFailedLoginCommand) Validate() error {
	return utils.ValidateStruct(c)
}
