package commands

import (
	"tutormatch-backend/pkg/utils"
)

// CreateMatchingRequestCommand opens a new matching request for a student
type CreateMatchingRequestCommand struct {
	StudentID     string  `json:"student_id" validate:"required,uuid"`
	Subject       string  `json:"subject" validate:"required,min=1,max=60"`
	BudgetPerHour float64 `json:"budget_per_hour" validate:"required,gt=0"`
	Schedule      string  `json:"schedule" validate:"max=200"`
	Notes         string  `json:"notes" validate:"max=1000"`
}

// Validate implements bus.Command
func (c CreateMatchingRequestCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// AssignTutorCommand proposes a tutor for a pending request
type AssignTutorCommand struct {
	RequestID string `json:"request_id" validate:"required,uuid"`
	TutorID   string `json:"tutor_id" validate:"required,uuid"`
}

// Validate implements bus.Command
func (c AssignTutorCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ConfirmMatchCommand confirms a matched request
type ConfirmMatchCommand struct {
	RequestID string `json:"request_id" validate:"required,uuid"`
}

// Validate implements bus.Command
func (c ConfirmMatchCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// CancelMatchingRequestCommand cancels an open request
type CancelMatchingRequestCommand struct {
	RequestID string `json:"request_id" validate:"required,uuid"`
	Reason    string `json:"reason" validate:"max=500"`
}

// Validate implements bus.Command
func (c CancelMatchingRequestCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ExpireMatchingRequestsCommand sweeps pending requests past their TTL.
// Limit bounds how many requests one sweep may touch.
type ExpireMatchingRequestsCommand struct {
	Limit int `json:"limit" validate:"omitempty,gte=1,lte=1000"`
}

// Validate implements bus.Command
func (c ExpireMatchingRequestsCommand) Validate() error {
	return utils.ValidateStruct(c)
}
