package events

import (
	"time"

	"tutormatch-backend/domain/core/valueobjects"
)

// TutorCreated is raised when a tutor profile is created
type TutorCreated struct {
	BaseEvent
	TutorID  valueobjects.TutorID `json:"tutor_id"`
	UserID   valueobjects.UserID  `json:"user_id"`
	Subjects []string             `json:"subjects"`
}

// NewTutorCreated creates a TutorCreated event
func NewTutorCreated(tutorID valueobjects.TutorID, userID valueobjects.UserID, subjects []string, timestamp time.Time) TutorCreated {
	return TutorCreated{
		BaseEvent: newBase(tutorID.String(), EventTutorCreated, timestamp),
		TutorID:   tutorID,
		UserID:    userID,
		Subjects:  subjects,
	}
}

// TutorUpdated is raised when tutor profile fields change
type TutorUpdated struct {
	BaseEvent
	TutorID       valueobjects.TutorID `json:"tutor_id"`
	ChangedFields []string             `json:"changed_fields"`
	ActorID       string               `json:"actor_id,omitempty"`
}

// NewTutorUpdated creates a TutorUpdated event
func NewTutorUpdated(tutorID valueobjects.TutorID, changedFields []string, actorID string, timestamp time.Time) TutorUpdated {
	return TutorUpdated{
		BaseEvent:     newBase(tutorID.String(), EventTutorUpdated, timestamp),
		TutorID:       tutorID,
		ChangedFields: changedFields,
		ActorID:       actorID,
	}
}

// TutorSessionCompleted is raised when a tutoring session finishes
type TutorSessionCompleted struct {
	BaseEvent
	TutorID           valueobjects.TutorID `json:"tutor_id"`
	CompletedSessions int                  `json:"completed_sessions"`
}

// NewTutorSessionCompleted creates a TutorSessionCompleted event
func NewTutorSessionCompleted(tutorID valueobjects.TutorID, completedSessions int, timestamp time.Time) TutorSessionCompleted {
	return TutorSessionCompleted{
		BaseEvent:         newBase(tutorID.String(), EventTutorSessionCompleted, timestamp),
		TutorID:           tutorID,
		CompletedSessions: completedSessions,
	}
}

// TutorTierChanged is raised when recalculation moves a tutor to another tier
type TutorTierChanged struct {
	BaseEvent
	TutorID valueobjects.TutorID `json:"tutor_id"`
	From    string               `json:"from"`
	To      string               `json:"to"`
}

// NewTutorTierChanged creates a TutorTierChanged event
func NewTutorTierChanged(tutorID valueobjects.TutorID, from, to string, timestamp time.Time) TutorTierChanged {
	return TutorTierChanged{
		BaseEvent: newBase(tutorID.String(), EventTutorTierChanged, timestamp),
		TutorID:   tutorID,
		From:      from,
		To:        to,
	}
}

// TutorStatusChanged is raised when a tutor's status transitions
type TutorStatusChanged struct {
	BaseEvent
	TutorID valueobjects.TutorID `json:"tutor_id"`
	From    string               `json:"from"`
	To      string               `json:"to"`
}

// NewTutorStatusChanged creates a TutorStatusChanged event
func NewTutorStatusChanged(tutorID valueobjects.TutorID, from, to string, timestamp time.Time) TutorStatusChanged {
	return TutorStatusChanged{
		BaseEvent: newBase(tutorID.String(), EventTutorStatusChanged, timestamp),
		TutorID:   tutorID,
		From:      from,
		To:        to,
	}
}
