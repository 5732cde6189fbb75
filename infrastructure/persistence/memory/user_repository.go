// Package memory provides in-memory implementations of the persistence
// ports. They back local development and tests; every repository is safe
// for concurrent use and stores detached snapshots, never live aggregates.
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

type userRecord struct {
	id           valueobjects.UserID
	email        valueobjects.Email
	displayName  string
	timezone     string
	role         valueobjects.Role
	status       entities.UserStatus
	failedLogins int
	createdAt    time.Time
	updatedAt    time.Time
	version      int
}

func snapshotUser(user *entities.User) userRecord {
	return userRecord{
		id:           user.ID(),
		email:        user.Email(),
		displayName:  user.DisplayName(),
		timezone:     user.Timezone(),
		role:         user.Role(),
		status:       user.Status(),
		failedLogins: user.FailedLogins(),
		createdAt:    user.CreatedAt(),
		updatedAt:    user.UpdatedAt(),
		version:      user.Version(),
	}
}

func (r userRecord) materialize() *entities.User {
	return entities.ReconstructUser(
		r.id, r.email, r.displayName, r.timezone, r.role, r.status,
		r.failedLogins, r.createdAt, r.updatedAt, r.version,
	)
}

// UserRepository is the in-memory ports.UserRepository
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]userRecord
	byEmail map[string]string // normalized email -> user ID
}

// NewUserRepository creates an empty in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]userRecord),
		byEmail: make(map[string]string),
	}
}

// Save persists a user, enforcing email uniqueness
func (r *UserRepository) Save(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := user.ID().String()
	email := user.Email().String()

	if ownerID, taken := r.byEmail[email]; taken && ownerID != id {
		return pkgerrors.NewConflictError(fmt.Sprintf("email %s is already registered", email))
	}

	// An email change frees the old address
	if prev, exists := r.byID[id]; exists && prev.email.String() != email {
		delete(r.byEmail, prev.email.String())
	}

	r.byID[id] = snapshotUser(user)
	r.byEmail[email] = id
	return nil
}

// FindByID retrieves a user by ID, (nil, nil) on miss
func (r *UserRepository) FindByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.byID[id.String()]
	if !exists {
		return nil, nil
	}
	return record.materialize(), nil
}

// FindByEmail retrieves a user by normalized email, (nil, nil) on miss
func (r *UserRepository) FindByEmail(ctx context.Context, email valueobjects.Email) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byEmail[email.String()]
	if !exists {
		return nil, nil
	}
	record := r.byID[id]
	return record.materialize(), nil
}

// FindAll retrieves one page of users ordered by creation time
func (r *UserRepository) FindAll(ctx context.Context, page ports.Page) (ports.PagedResult[*entities.User], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]userRecord, 0, len(r.byID))
	for _, record := range r.byID {
		records = append(records, record)
	}
	// Same ordering as the SQL driver: created_at with direction, id as the
	// tiebreak so pages are stable when timestamps collide
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.createdAt.Equal(b.createdAt) {
			if page.Desc {
				return a.createdAt.After(b.createdAt)
			}
			return a.createdAt.Before(b.createdAt)
		}
		return a.id.String() < b.id.String()
	})

	total := len(records)
	records = slicePage(records, page)

	users := make([]*entities.User, 0, len(records))
	for _, record := range records {
		users = append(users, record.materialize())
	}
	return ports.PagedResult[*entities.User]{Items: users, Total: total}, nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id valueobjects.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.byID[id.String()]
	if !exists {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("user %s", id))
	}
	delete(r.byEmail, record.email.String())
	delete(r.byID, id.String())
	return nil
}

// slicePage cuts one page out of a sorted slice
func slicePage[T any](items []T, page ports.Page) []T {
	offset := page.Offset()
	if offset >= len(items) {
		return nil
	}
	end := offset + page.Size
	if page.Size <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
