package queries

import "errors"

// GetMatchingRequestQuery fetches a single request by ID
type GetMatchingRequestQuery struct {
	RequestID string
}

// Validate validates the GetMatchingRequestQuery
func (q GetMatchingRequestQuery) Validate() error {
	if q.RequestID == "" {
		return errors.New("request ID is required")
	}
	return nil
}

// ListStudentRequestsQuery fetches one page of a student's requests
type ListStudentRequestsQuery struct {
	StudentID string
	Page      int
	PageSize  int
}

// Validate validates the ListStudentRequestsQuery
func (q ListStudentRequestsQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student ID is required")
	}
	if q.Page < 0 || q.PageSize < 0 {
		return errors.New("page and page size cannot be negative")
	}
	return nil
}

// ListMatchingRequestsQuery fetches one page of all requests
type ListMatchingRequestsQuery struct {
	Page     int
	PageSize int
	Sort     string
	Desc     bool
}

// Validate validates the ListMatchingRequestsQuery
func (q ListMatchingRequestsQuery) Validate() error {
	if q.Page < 0 || q.PageSize < 0 {
		return errors.New("page and page size cannot be negative")
	}
	return nil
}
