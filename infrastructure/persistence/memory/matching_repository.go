package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	pkgerrors "tutormatch-backend/pkg/errors"
)

type requestRecord struct {
	id            valueobjects.RequestID
	studentID     valueobjects.UserID
	subject       string
	budgetPerHour float64
	schedule      string
	notes         string
	status        entities.RequestStatus
	tutorID       valueobjects.TutorID
	createdAt     time.Time
	updatedAt     time.Time
	version       int
}

func snapshotRequest(request *entities.MatchingRequest) requestRecord {
	return requestRecord{
		id:            request.ID(),
		studentID:     request.StudentID(),
		subject:       request.Subject(),
		budgetPerHour: request.BudgetPerHour(),
		schedule:      request.Schedule(),
		notes:         request.Notes(),
		status:        request.Status(),
		tutorID:       request.TutorID(),
		createdAt:     request.CreatedAt(),
		updatedAt:     request.UpdatedAt(),
		version:       request.Version(),
	}
}

func (r requestRecord) materialize() *entities.MatchingRequest {
	return entities.ReconstructMatchingRequest(
		r.id, r.studentID, r.subject, r.budgetPerHour, r.schedule, r.notes,
		r.status, r.tutorID, r.createdAt, r.updatedAt, r.version,
	)
}

func (r requestRecord) open() bool {
	return r.status == entities.RequestStatusPending || r.status == entities.RequestStatusMatched
}

// MatchingRequestRepository is the in-memory ports.MatchingRequestRepository
type MatchingRequestRepository struct {
	mu   sync.RWMutex
	byID map[string]requestRecord
}

// NewMatchingRequestRepository creates an empty in-memory request repository
func NewMatchingRequestRepository() *MatchingRequestRepository {
	return &MatchingRequestRepository{byID: make(map[string]requestRecord)}
}

// Save persists a request
func (r *MatchingRequestRepository) Save(ctx context.Context, request *entities.MatchingRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[request.ID().String()] = snapshotRequest(request)
	return nil
}

// FindByID retrieves a request by ID, (nil, nil) on miss
func (r *MatchingRequestRepository) FindByID(ctx context.Context, id valueobjects.RequestID) (*entities.MatchingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.byID[id.String()]
	if !exists {
		return nil, nil
	}
	return record.materialize(), nil
}

// FindByStudentID retrieves one page of a student's requests, newest first
func (r *MatchingRequestRepository) FindByStudentID(ctx context.Context, studentID valueobjects.UserID, page ports.Page) (ports.PagedResult[*entities.MatchingRequest], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]requestRecord, 0)
	for _, record := range r.byID {
		if record.studentID.Equals(studentID) {
			records = append(records, record)
		}
	}
	sortRequests(records, true)

	total := len(records)
	records = slicePage(records, page)

	requests := make([]*entities.MatchingRequest, 0, len(records))
	for _, record := range records {
		requests = append(requests, record.materialize())
	}
	return ports.PagedResult[*entities.MatchingRequest]{Items: requests, Total: total}, nil
}

// CountOpenByStudentID counts the student's pending and matched requests
func (r *MatchingRequestRepository) CountOpenByStudentID(ctx context.Context, studentID valueobjects.UserID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, record := range r.byID {
		if record.studentID.Equals(studentID) && record.open() {
			count++
		}
	}
	return count, nil
}

// FindPendingCreatedBefore retrieves pending requests older than the cutoff,
// oldest first, up to limit
func (r *MatchingRequestRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.MatchingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]requestRecord, 0)
	for _, record := range r.byID {
		if record.status == entities.RequestStatusPending && record.createdAt.Before(cutoff) {
			records = append(records, record)
		}
	}
	sortRequests(records, false)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	requests := make([]*entities.MatchingRequest, 0, len(records))
	for _, record := range records {
		requests = append(requests, record.materialize())
	}
	return requests, nil
}

// FindAll retrieves one page of requests ordered by creation time
func (r *MatchingRequestRepository) FindAll(ctx context.Context, page ports.Page) (ports.PagedResult[*entities.MatchingRequest], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]requestRecord, 0, len(r.byID))
	for _, record := range r.byID {
		records = append(records, record)
	}
	sortRequests(records, page.Desc)

	total := len(records)
	records = slicePage(records, page)

	requests := make([]*entities.MatchingRequest, 0, len(records))
	for _, record := range records {
		requests = append(requests, record.materialize())
	}
	return ports.PagedResult[*entities.MatchingRequest]{Items: requests, Total: total}, nil
}

// sortRequests orders records by creation time with the id as a tiebreak,
// matching the SQL driver's ordering
func sortRequests(records []requestRecord, desc bool) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.createdAt.Equal(b.createdAt) {
			if desc {
				return a.createdAt.After(b.createdAt)
			}
			return a.createdAt.Before(b.createdAt)
		}
		return a.id.String() < b.id.String()
	})
}

// Delete removes a request
func (r *MatchingRequestRepository) Delete(ctx context.Context, id valueobjects.RequestID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id.String()]; !exists {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("matching request %s", id))
	}
	delete(r.byID, id.String())
	return nil
}
