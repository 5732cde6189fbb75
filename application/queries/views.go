// Package queries defines the read-side query types and the view models
// they return. Views are flat JSON-friendly projections of the aggregates.
package queries

import (
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/pkg/utils"
)

// UserView is the read model for a user account
type UserView struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	Timezone     string `json:"timezone,omitempty"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	FailedLogins int    `json:"failedLogins"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
	Version      int    `json:"version"`
}

// NewUserView projects a user aggregate into its read model
func NewUserView(user *entities.User) UserView {
	return UserView{
		ID:           user.ID().String(),
		Email:        user.Email().String(),
		DisplayName:  user.DisplayName(),
		Timezone:     user.Timezone(),
		Role:         user.Role().String(),
		Status:       string(user.Status()),
		FailedLogins: user.FailedLogins(),
		CreatedAt:    utils.FormatRFC3339(user.CreatedAt()),
		UpdatedAt:    utils.FormatRFC3339(user.UpdatedAt()),
		Version:      user.Version(),
	}
}

// TutorView is the read model for a tutor profile
type TutorView struct {
	ID                string   `json:"id"`
	UserID            string   `json:"userId"`
	Subjects          []string `json:"subjects"`
	HourlyRate        float64  `json:"hourlyRate"`
	Bio               string   `json:"bio,omitempty"`
	CompletedSessions int      `json:"completedSessions"`
	CancelledSessions int      `json:"cancelledSessions"`
	CancellationRatio float64  `json:"cancellationRatio"`
	ReputationScore   int      `json:"reputationScore"`
	Tier              string   `json:"tier"`
	Status            string   `json:"status"`
	CreatedAt         string   `json:"createdAt"`
	UpdatedAt         string   `json:"updatedAt"`
	Version           int      `json:"version"`
}

// NewTutorView projects a tutor aggregate into its read model
func NewTutorView(tutor *entities.Tutor) TutorView {
	return TutorView{
		ID:                tutor.ID().String(),
		UserID:            tutor.UserID().String(),
		Subjects:          tutor.Subjects(),
		HourlyRate:        tutor.HourlyRate(),
		Bio:               tutor.Bio(),
		CompletedSessions: tutor.CompletedSessions(),
		CancelledSessions: tutor.CancelledSessions(),
		CancellationRatio: tutor.CancellationRatio(),
		ReputationScore:   tutor.ReputationScore(),
		Tier:              tutor.Tier().String(),
		Status:            string(tutor.Status()),
		CreatedAt:         utils.FormatRFC3339(tutor.CreatedAt()),
		UpdatedAt:         utils.FormatRFC3339(tutor.UpdatedAt()),
		Version:           tutor.Version(),
	}
}

// MatchingRequestView is the read model for a matching request
type MatchingRequestView struct {
	ID            string  `json:"id"`
	StudentID     string  `json:"studentId"`
	Subject       string  `json:"subject"`
	BudgetPerHour float64 `json:"budgetPerHour"`
	Schedule      string  `json:"schedule,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	Status        string  `json:"status"`
	TutorID       string  `json:"tutorId,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
	Version       int     `json:"version"`
}

// NewMatchingRequestView projects a request aggregate into its read model
func NewMatchingRequestView(request *entities.MatchingRequest) MatchingRequestView {
	view := MatchingRequestView{
		ID:            request.ID().String(),
		StudentID:     request.StudentID().String(),
		Subject:       request.Subject(),
		BudgetPerHour: request.BudgetPerHour(),
		Schedule:      request.Schedule(),
		Notes:         request.Notes(),
		Status:        string(request.Status()),
		CreatedAt:     utils.FormatRFC3339(request.CreatedAt()),
		UpdatedAt:     utils.FormatRFC3339(request.UpdatedAt()),
		Version:       request.Version(),
	}
	if !request.TutorID().IsZero() {
		view.TutorID = request.TutorID().String()
	}
	return view
}

// PagedView wraps one page of views with its pagination facts
type PagedView[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}
