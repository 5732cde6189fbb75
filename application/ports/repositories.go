package ports

import (
	"context"
	"time"

	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/events"
)

// Page describes a bounded window over a collection. Implementations clamp
// Size to a sane maximum and treat Number as 1-based.
type Page struct {
	Number int
	Size   int
	Sort   string
	Desc   bool
}

// Offset returns the number of items to skip for this page
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// PagedResult couples one page of items with the stable total count taken at
// query time.
type PagedResult[T any] struct {
	Items []T
	Total int
}

// UserRepository defines the interface for user persistence.
// This is a port in hexagonal architecture - the domain doesn't know about
// the implementation. FindByID returns (nil, nil) when no user exists; a
// missing aggregate is an answer, not a failure.
type UserRepository interface {
	// Save persists a user (create or update)
	Save(ctx context.Context, user *entities.User) error

	// FindByID retrieves a user by ID, (nil, nil) on miss
	FindByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error)

	// FindByEmail retrieves a user by normalized email, (nil, nil) on miss
	FindByEmail(ctx context.Context, email valueobjects.Email) (*entities.User, error)

	// FindAll retrieves one page of users plus the total count
	FindAll(ctx context.Context, page Page) (PagedResult[*entities.User], error)

	// Delete removes a user
	Delete(ctx context.Context, id valueobjects.UserID) error
}

// TutorRepository defines the interface for tutor profile persistence
type TutorRepository interface {
	// Save persists a tutor profile (create or update)
	Save(ctx context.Context, tutor *entities.Tutor) error

	// FindByID retrieves a tutor by ID, (nil, nil) on miss
	FindByID(ctx context.Context, id valueobjects.TutorID) (*entities.Tutor, error)

	// FindByUserID retrieves the tutor profile backing a user account,
	// (nil, nil) on miss
	FindByUserID(ctx context.Context, userID valueobjects.UserID) (*entities.Tutor, error)

	// FindBySubject retrieves one page of active tutors teaching a subject
	FindBySubject(ctx context.Context, subject string, page Page) (PagedResult[*entities.Tutor], error)

	// FindAll retrieves one page of tutors plus the total count
	FindAll(ctx context.Context, page Page) (PagedResult[*entities.Tutor], error)

	// Delete removes a tutor profile
	Delete(ctx context.Context, id valueobjects.TutorID) error
}

// MatchingRequestRepository defines the interface for matching request
// persistence
type MatchingRequestRepository interface {
	// Save persists a request (create or update)
	Save(ctx context.Context, request *entities.MatchingRequest) error

	// FindByID retrieves a request by ID, (nil, nil) on miss
	FindByID(ctx context.Context, id valueobjects.RequestID) (*entities.MatchingRequest, error)

	// FindByStudentID retrieves one page of a student's requests
	FindByStudentID(ctx context.Context, studentID valueobjects.UserID, page Page) (PagedResult[*entities.MatchingRequest], error)

	// CountOpenByStudentID counts the student's requests still pending or
	// matched
	CountOpenByStudentID(ctx context.Context, studentID valueobjects.UserID) (int, error)

	// FindPendingCreatedBefore retrieves pending requests older than the
	// cutoff, up to limit, for the expiry sweep
	FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.MatchingRequest, error)

	// FindAll retrieves one page of requests plus the total count
	FindAll(ctx context.Context, page Page) (PagedResult[*entities.MatchingRequest], error)

	// Delete removes a request
	Delete(ctx context.Context, id valueobjects.RequestID) error
}

// StoredEvent is an event row in the outbox, carrying publish bookkeeping
// alongside the serialized payload.
type StoredEvent struct {
	EventID     string
	AggregateID string
	EventType   string
	Payload     []byte
	Timestamp   time.Time
	Version     int

	PublishStatus   PublishStatus
	PublishAttempts int
	LastError       string
}

// PublishStatus tracks an outbox row through the relay
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"
	PublishStatusPublished PublishStatus = "published"
	PublishStatusFailed    PublishStatus = "failed"
	PublishStatusDead      PublishStatus = "dead"
)

// EventStore defines the interface for the event outbox. Appended events
// start pending; the relay claims batches and marks each row published or
// failed.
type EventStore interface {
	// Append persists domain events as pending outbox rows
	Append(ctx context.Context, events []events.DomainEvent) error

	// LoadByAggregate retrieves all stored events for an aggregate
	LoadByAggregate(ctx context.Context, aggregateID string) ([]StoredEvent, error)

	// LoadPending retrieves up to limit rows still awaiting publish. Dead
	// rows are excluded so they cannot crowd newer work out of a batch.
	LoadPending(ctx context.Context, limit int) ([]StoredEvent, error)

	// MarkPublished records a successful publish for a row
	MarkPublished(ctx context.Context, eventID string) error

	// MarkFailed records a failed attempt and the error text
	MarkFailed(ctx context.Context, eventID string, attempts int, lastError string) error

	// MarkDead records a final failed attempt and retires the row from
	// LoadPending; a dead row stays until an operator resets it
	MarkDead(ctx context.Context, eventID string, lastError string) error
}

// EventPublisher defines the interface for publishing domain events to the
// external bus
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for in-process event distribution
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// Cache defines the interface for caching read models
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
