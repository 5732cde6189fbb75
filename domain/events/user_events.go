package events

import (
	"time"

	"tutormatch-backend/domain/core/valueobjects"
)

// UserCreated is raised when a new user account is registered
type UserCreated struct {
	BaseEvent
	UserID      valueobjects.UserID `json:"user_id"`
	Email       string              `json:"email"`
	DisplayName string              `json:"display_name"`
	Role        string              `json:"role"`
}

// NewUserCreated creates a UserCreated event
func NewUserCreated(userID valueobjects.UserID, email, displayName, role string, timestamp time.Time) UserCreated {
	return UserCreated{
		BaseEvent:   newBase(userID.String(), EventUserCreated, timestamp),
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
		Role:        role,
	}
}

// UserUpdated is raised when profile fields change. ChangedFields lists
// exactly the fields the mutation touched.
type UserUpdated struct {
	BaseEvent
	UserID        valueobjects.UserID `json:"user_id"`
	ChangedFields []string            `json:"changed_fields"`
	ActorID       string              `json:"actor_id,omitempty"`
}

// NewUserUpdated creates a UserUpdated event
func NewUserUpdated(userID valueobjects.UserID, changedFields []string, actorID string, timestamp time.Time) UserUpdated {
	return UserUpdated{
		BaseEvent:     newBase(userID.String(), EventUserUpdated, timestamp),
		UserID:        userID,
		ChangedFields: changedFields,
		ActorID:       actorID,
	}
}

// UserStatusChanged is raised when a user's status transitions
type UserStatusChanged struct {
	BaseEvent
	UserID valueobjects.UserID `json:"user_id"`
	From   string              `json:"from"`
	To     string              `json:"to"`
}

// NewUserStatusChanged creates a UserStatusChanged event
func NewUserStatusChanged(userID valueobjects.UserID, from, to string, timestamp time.Time) UserStatusChanged {
	return UserStatusChanged{
		BaseEvent: newBase(userID.String(), EventUserStatusChanged, timestamp),
		UserID:    userID,
		From:      from,
		To:        to,
	}
}

// UserRoleChanged is raised when a user's role transitions
type UserRoleChanged struct {
	BaseEvent
	UserID valueobjects.UserID `json:"user_id"`
	From   string              `json:"from"`
	To     string              `json:"to"`
}

// NewUserRoleChanged creates a UserRoleChanged event
func NewUserRoleChanged(userID valueobjects.UserID, from, to string, timestamp time.Time) UserRoleChanged {
	return UserRoleChanged{
		BaseEvent: newBase(userID.String(), EventUserRoleChanged, timestamp),
		UserID:    userID,
		From:      from,
		To:        to,
	}
}

// UserAccountLocked is raised when repeated failed logins lock an account
type UserAccountLocked struct {
	BaseEvent
	UserID         valueobjects.UserID `json:"user_id"`
	FailedAttempts int                 `json:"failed_attempts"`
}

// NewUserAccountLocked creates a UserAccountLocked event
func NewUserAccountLocked(userID valueobjects.UserID, failedAttempts int, timestamp time.Time) UserAccountLocked {
	return UserAccountLocked{
		BaseEvent:      newBase(userID.String(), EventUserAccountLocked, timestamp),
		UserID:         userID,
		FailedAttempts: failedAttempts,
	}
}
