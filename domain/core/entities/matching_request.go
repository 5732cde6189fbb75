package entities

import (
	"time"

	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/events"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// RequestStatus represents the lifecycle state of a matching request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusMatched   RequestStatus = "matched"
	RequestStatusConfirmed RequestStatus = "confirmed"
	RequestStatusCancelled RequestStatus = "cancelled"
	RequestStatusExpired   RequestStatus = "expired"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:   {RequestStatusMatched, RequestStatusCancelled, RequestStatusExpired},
	RequestStatusMatched:   {RequestStatusConfirmed, RequestStatusCancelled},
	RequestStatusConfirmed: {},
	RequestStatusCancelled: {},
	RequestStatusExpired:   {},
}

// MatchingRequest is the aggregate root for a student's search for a tutor
type MatchingRequest struct {
	id            valueobjects.RequestID
	studentID     valueobjects.UserID
	subject       string
	budgetPerHour float64
	schedule      string
	notes         string
	status        RequestStatus
	tutorID       valueobjects.TutorID
	createdAt     time.Time
	updatedAt     time.Time
	version       int

	events []events.DomainEvent
}

// MatchingRequestProps carries the input for opening a request
type MatchingRequestProps struct {
	StudentID     valueobjects.UserID
	Subject       string
	BudgetPerHour float64
	Schedule      string
	Notes         string
}

// NewMatchingRequest opens a request with full validation, reporting every
// violated field at once.
func NewMatchingRequest(props MatchingRequestProps, policy *config.PolicyConfig) (*MatchingRequest, error) {
	if policy == nil {
		policy = config.DefaultPolicyConfig()
	}

	var violations pkgerrors.Violations

	if props.StudentID.IsZero() {
		violations.Add("studentId", "cannot be empty")
	}
	if props.Subject == "" {
		violations.Add("subject", "cannot be empty")
	}
	if props.BudgetPerHour < policy.MinHourlyRate {
		violations.Addf("budgetPerHour", "must be at least %.2f", policy.MinHourlyRate)
	}

	if err := violations.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	request := &MatchingRequest{
		id:            valueobjects.NewRequestID(),
		studentID:     props.StudentID,
		subject:       props.Subject,
		budgetPerHour: props.BudgetPerHour,
		schedule:      props.Schedule,
		notes:         props.Notes,
		status:        RequestStatusPending,
		createdAt:     now,
		updatedAt:     now,
		version:       1,
		events:        []events.DomainEvent{},
	}

	request.addEvent(events.NewMatchingRequestCreated(request.id, props.StudentID, props.Subject, now))

	return request, nil
}

// ReconstructMatchingRequest rebuilds a request from repository data
func ReconstructMatchingRequest(
	id valueobjects.RequestID,
	studentID valueobjects.UserID,
	subject string,
	budgetPerHour float64,
	schedule, notes string,
	status RequestStatus,
	tutorID valueobjects.TutorID,
	createdAt, updatedAt time.Time,
	version int,
) *MatchingRequest {
	return &MatchingRequest{
		id:            id,
		studentID:     studentID,
		subject:       subject,
		budgetPerHour: budgetPerHour,
		schedule:      schedule,
		notes:         notes,
		status:        status,
		tutorID:       tutorID,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
		version:       version,
		events:        []events.DomainEvent{},
	}
}

// ID returns the request's unique identifier
func (m *MatchingRequest) ID() valueobjects.RequestID { return m.id }

// StudentID returns the requesting student's user ID
func (m *MatchingRequest) StudentID() valueobjects.UserID { return m.studentID }

// Subject returns the requested subject
func (m *MatchingRequest) Subject() string { return m.subject }

// BudgetPerHour returns the student's hourly budget
func (m *MatchingRequest) BudgetPerHour() float64 { return m.budgetPerHour }

// Schedule returns the preferred schedule description
func (m *MatchingRequest) Schedule() string { return m.schedule }

// Notes returns free-form notes from the student
func (m *MatchingRequest) Notes() string { return m.notes }

// Status returns the request's current status
func (m *MatchingRequest) Status() RequestStatus { return m.status }

// TutorID returns the assigned tutor, zero until a match is proposed
func (m *MatchingRequest) TutorID() valueobjects.TutorID { return m.tutorID }

// CreatedAt returns when the request was opened
func (m *MatchingRequest) CreatedAt() time.Time { return m.createdAt }

// UpdatedAt returns when the request was last updated
func (m *MatchingRequest) UpdatedAt() time.Time { return m.updatedAt }

// Version returns the request's version for optimistic locking
func (m *MatchingRequest) Version() int { return m.version }

// IsOpen reports whether the request still needs attention
func (m *MatchingRequest) IsOpen() bool {
	return m.status == RequestStatusPending || m.status == RequestStatusMatched
}

// AssignTutor proposes a tutor for a pending request
func (m *MatchingRequest) AssignTutor(tutorID valueobjects.TutorID) error {
	if tutorID.IsZero() {
		return pkgerrors.NewValidationError("tutorId cannot be empty")
	}
	if !isLegalRequestTransition(m.status, RequestStatusMatched) {
		return pkgerrors.NewInvalidTransitionError("matching request", string(m.status), string(RequestStatusMatched))
	}

	m.tutorID = tutorID
	m.status = RequestStatusMatched
	m.updatedAt = time.Now()
	m.version++

	m.addEvent(events.NewMatchingTutorAssigned(m.id, m.studentID, tutorID, m.updatedAt))

	return nil
}

// Confirm accepts the proposed tutor
func (m *MatchingRequest) Confirm() error {
	if !isLegalRequestTransition(m.status, RequestStatusConfirmed) {
		return pkgerrors.NewInvalidTransitionError("matching request", string(m.status), string(RequestStatusConfirmed))
	}

	m.status = RequestStatusConfirmed
	m.updatedAt = time.Now()
	m.version++

	m.addEvent(events.NewMatchingRequestConfirmed(m.id, m.tutorID, m.updatedAt))

	return nil
}

// Cancel closes the request before confirmation
func (m *MatchingRequest) Cancel(reason string) error {
	if !isLegalRequestTransition(m.status, RequestStatusCancelled) {
		return pkgerrors.NewInvalidTransitionError("matching request", string(m.status), string(RequestStatusCancelled))
	}

	m.status = RequestStatusCancelled
	m.updatedAt = time.Now()
	m.version++

	m.addEvent(events.NewMatchingRequestCancelled(m.id, reason, m.updatedAt))

	return nil
}

// Expire ages out an unanswered pending request
func (m *MatchingRequest) Expire() error {
	if !isLegalRequestTransition(m.status, RequestStatusExpired) {
		return pkgerrors.NewInvalidTransitionError("matching request", string(m.status), string(RequestStatusExpired))
	}

	m.status = RequestStatusExpired
	m.updatedAt = time.Now()
	m.version++

	m.addEvent(events.NewMatchingRequestExpired(m.id, m.updatedAt))

	return nil
}

// ExpiresAt returns the deadline after which a pending request may be expired
func (m *MatchingRequest) ExpiresAt(policy *config.PolicyConfig) time.Time {
	if policy == nil {
		policy = config.DefaultPolicyConfig()
	}
	return m.createdAt.Add(policy.RequestTTL)
}

// GetUncommittedEvents returns all uncommitted domain events
func (m *MatchingRequest) GetUncommittedEvents() []events.DomainEvent {
	return m.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (m *MatchingRequest) MarkEventsAsCommitted() {
	m.events = []events.DomainEvent{}
}

func (m *MatchingRequest) addEvent(event events.DomainEvent) {
	m.events = append(m.events, event)
}

func isLegalRequestTransition(from, to RequestStatus) bool {
	for _, allowed := range requestTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
