package events

import (
	"time"

	"tutormatch-backend/domain/core/valueobjects"
)

// MatchingRequestCreated is raised when a student opens a matching request
type MatchingRequestCreated struct {
	BaseEvent
	RequestID valueobjects.RequestID `json:"request_id"`
	StudentID valueobjects.UserID    `json:"student_id"`
	Subject   string                 `json:"subject"`
}

// NewMatchingRequestCreated creates a MatchingRequestCreated event
func NewMatchingRequestCreated(requestID valueobjects.RequestID, studentID valueobjects.UserID, subject string, timestamp time.Time) MatchingRequestCreated {
	return MatchingRequestCreated{
		BaseEvent: newBase(requestID.String(), EventMatchingRequestCreated, timestamp),
		RequestID: requestID,
		StudentID: studentID,
		Subject:   subject,
	}
}

// MatchingTutorAssigned is raised when a tutor is proposed for a request
type MatchingTutorAssigned struct {
	BaseEvent
	RequestID valueobjects.RequestID `json:"request_id"`
	StudentID valueobjects.UserID    `json:"student_id"`
	TutorID   valueobjects.TutorID   `json:"tutor_id"`
}

// NewMatchingTutorAssigned creates a MatchingTutorAssigned event
func NewMatchingTutorAssigned(requestID valueobjects.RequestID, studentID valueobjects.UserID, tutorID valueobjects.TutorID, timestamp time.Time) MatchingTutorAssigned {
	return MatchingTutorAssigned{
		BaseEvent: newBase(requestID.String(), EventMatchingTutorAssigned, timestamp),
		RequestID: requestID,
		StudentID: studentID,
		TutorID:   tutorID,
	}
}

// MatchingRequestConfirmed is raised when the student confirms the match
type MatchingRequestConfirmed struct {
	BaseEvent
	RequestID valueobjects.RequestID `json:"request_id"`
	TutorID   valueobjects.TutorID   `json:"tutor_id"`
}

// NewMatchingRequestConfirmed creates a MatchingRequestConfirmed event
func NewMatchingRequestConfirmed(requestID valueobjects.RequestID, tutorID valueobjects.TutorID, timestamp time.Time) MatchingRequestConfirmed {
	return MatchingRequestConfirmed{
		BaseEvent: newBase(requestID.String(), EventMatchingRequestConfirmed, timestamp),
		RequestID: requestID,
		TutorID:   tutorID,
	}
}

// MatchingRequestCancelled is raised when a request is cancelled
type MatchingRequestCancelled struct {
	BaseEvent
	RequestID valueobjects.RequestID `json:"request_id"`
	Reason    string                 `json:"reason,omitempty"`
}

// NewMatchingRequestCancelled creates a MatchingRequestCancelled event
func NewMatchingRequestCancelled(requestID valueobjects.RequestID, reason string, timestamp time.Time) MatchingRequestCancelled {
	return MatchingRequestCancelled{
		BaseEvent: newBase(requestID.String(), EventMatchingRequestCancelled, timestamp),
		RequestID: requestID,
		Reason:    reason,
	}
}

// MatchingRequestExpired is raised when an unanswered request ages out
type MatchingRequestExpired struct {
	BaseEvent
	RequestID valueobjects.RequestID `json:"request_id"`
}

// NewMatchingRequestExpired creates a MatchingRequestExpired event
func NewMatchingRequestExpired(requestID valueobjects.RequestID, timestamp time.Time) MatchingRequestExpired {
	return MatchingRequestExpired{
		BaseEvent: newBase(requestID.String(), EventMatchingRequestExpired, timestamp),
		RequestID: requestID,
	}
}
