package queries

import (
	"errors"
	"strings"
)

// GetTutorQuery fetches a single tutor profile by ID
type GetTutorQuery struct {
	TutorID string
}

// Validate validates the GetTutorQuery
func (q GetTutorQuery) Validate() error {
	if q.TutorID == "" {
		return errors.New("tutor ID is required")
	}
	return nil
}

// GetTutorByUserIDQuery fetches the tutor profile backing a user account
type GetTutorByUserIDQuery struct {
	UserID string
}

// Validate validates the GetTutorByUserIDQuery
func (q GetTutorByUserIDQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// ListTutorsQuery fetches one page of tutors, optionally narrowed to a
// subject
type ListTutorsQuery struct {
	Subject  string
	Page     int
	PageSize int
	Sort     string
	Desc     bool
}

// Validate validates the ListTutorsQuery
func (q ListTutorsQuery) Validate() error {
	if q.Page < 0 || q.PageSize < 0 {
		return errors.New("page and page size cannot be negative")
	}
	if q.Subject != strings.TrimSpace(q.Subject) {
		return errors.New("subject cannot have surrounding whitespace")
	}
	return nil
}
