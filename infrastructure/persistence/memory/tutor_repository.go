package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	pkgerrors "tutormatch-backend/pkg/errors"
)

type tutorRecord struct {
	id                valueobjects.TutorID
	userID            valueobjects.UserID
	subjects          []string
	hourlyRate        float64
	bio               string
	completedSessions int
	cancelledSessions int
	reputationScore   int
	tier              valueobjects.Tier
	status            entities.TutorStatus
	createdAt         time.Time
	updatedAt         time.Time
	version           int
}

func snapshotTutor(tutor *entities.Tutor) tutorRecord {
	return tutorRecord{
		id:                tutor.ID(),
		userID:            tutor.UserID(),
		subjects:          tutor.Subjects(),
		hourlyRate:        tutor.HourlyRate(),
		bio:               tutor.Bio(),
		completedSessions: tutor.CompletedSessions(),
		cancelledSessions: tutor.CancelledSessions(),
		reputationScore:   tutor.ReputationScore(),
		tier:              tutor.Tier(),
		status:            tutor.Status(),
		createdAt:         tutor.CreatedAt(),
		updatedAt:         tutor.UpdatedAt(),
		version:           tutor.Version(),
	}
}

func (r tutorRecord) materialize() *entities.Tutor {
	return entities.ReconstructTutor(
		r.id, r.userID, r.subjects, r.hourlyRate, r.bio,
		r.completedSessions, r.cancelledSessions, r.reputationScore,
		r.tier, r.status, r.createdAt, r.updatedAt, r.version,
	)
}

// TutorRepository is the in-memory ports.TutorRepository
type TutorRepository struct {
	mu       sync.RWMutex
	byID     map[string]tutorRecord
	byUserID map[string]string // user ID -> tutor ID
}

// NewTutorRepository creates an empty in-memory tutor repository
func NewTutorRepository() *TutorRepository {
	return &TutorRepository{
		byID:     make(map[string]tutorRecord),
		byUserID: make(map[string]string),
	}
}

// Save persists a tutor, enforcing one profile per user
func (r *TutorRepository) Save(ctx context.Context, tutor *entities.Tutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := tutor.ID().String()
	userID := tutor.UserID().String()

	if ownerID, taken := r.byUserID[userID]; taken && ownerID != id {
		return pkgerrors.NewConflictError(fmt.Sprintf("user %s already has a tutor profile", userID))
	}

	r.byID[id] = snapshotTutor(tutor)
	r.byUserID[userID] = id
	return nil
}

// FindByID retrieves a tutor by ID, (nil, nil) on miss
func (r *TutorRepository) FindByID(ctx context.Context, id valueobjects.TutorID) (*entities.Tutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.byID[id.String()]
	if !exists {
		return nil, nil
	}
	return record.materialize(), nil
}

// FindByUserID retrieves the tutor profile backing a user, (nil, nil) on miss
func (r *TutorRepository) FindByUserID(ctx context.Context, userID valueobjects.UserID) (*entities.Tutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byUserID[userID.String()]
	if !exists {
		return nil, nil
	}
	record := r.byID[id]
	return record.materialize(), nil
}

// FindBySubject retrieves one page of active tutors teaching a subject
func (r *TutorRepository) FindBySubject(ctx context.Context, subject string, page ports.Page) (ports.PagedResult[*entities.Tutor], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(subject)
	records := make([]tutorRecord, 0)
	for _, record := range r.byID {
		if record.status != entities.TutorStatusActive {
			continue
		}
		for _, s := range record.subjects {
			if strings.ToLower(s) == needle {
				records = append(records, record)
				break
			}
		}
	}
	sortTutors(records, page.Desc)

	total := len(records)
	records = slicePage(records, page)

	tutors := make([]*entities.Tutor, 0, len(records))
	for _, record := range records {
		tutors = append(tutors, record.materialize())
	}
	return ports.PagedResult[*entities.Tutor]{Items: tutors, Total: total}, nil
}

// FindAll retrieves one page of tutors ordered by creation time
func (r *TutorRepository) FindAll(ctx context.Context, page ports.Page) (ports.PagedResult[*entities.Tutor], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]tutorRecord, 0, len(r.byID))
	for _, record := range r.byID {
		records = append(records, record)
	}
	sortTutors(records, page.Desc)

	total := len(records)
	records = slicePage(records, page)

	tutors := make([]*entities.Tutor, 0, len(records))
	for _, record := range records {
		tutors = append(tutors, record.materialize())
	}
	return ports.PagedResult[*entities.Tutor]{Items: tutors, Total: total}, nil
}

// Delete removes a tutor profile
func (r *TutorRepository) Delete(ctx context.Context, id valueobjects.TutorID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.byID[id.String()]
	if !exists {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("tutor %s", id))
	}
	delete(r.byUserID, record.userID.String())
	delete(r.byID, id.String())
	return nil
}

// sortTutors orders records by creation time with the id as a tiebreak,
// matching the SQL driver's ordering
func sortTutors(records []tutorRecord, desc bool) {
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
