package queries

import (
	"errors"
	"strings"
)

// GetUserQuery fetches a single user by ID
type GetUserQuery struct {
	UserID string
}

// Validate validates the GetUserQuery
func (q GetUserQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

// GetUserByEmailQuery fetches a single user by email
type GetUserByEmailQuery struct {
	Email string
}

// Validate validates the GetUserByEmailQuery
func (q GetUserByEmailQuery) Validate() error {
	if strings.TrimSpace(q.Email) == "" {
		return errors.New("email is required")
	}
	return nil
}

// ListUsersQuery fetches one page of users
type ListUsersQuery struct {
	Page     int
	PageSize int
	Sort     string
	Desc     bool
}

// Validate validates the ListUsersQuery
func (q ListUsersQuery) Validate() error {
	if q.Page < 0 || q.PageSize < 0 {
		return errors.New("page and page size cannot be negative")
	}
	return nil
}
