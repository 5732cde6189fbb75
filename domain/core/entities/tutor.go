package entities

import (
	"time"

	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/events"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// TutorStatus represents the lifecycle state of a tutor profile
type TutorStatus string

const (
	TutorStatusPending   TutorStatus = "pending"
	TutorStatusActive    TutorStatus = "active"
	TutorStatusSuspended TutorStatus = "suspended"
	TutorStatusRetired   TutorStatus = "retired"
)

var tutorTransitions = map[TutorStatus][]TutorStatus{
	TutorStatusPending:   {TutorStatusActive},
	TutorStatusActive:    {TutorStatusSuspended, TutorStatusRetired},
	TutorStatusSuspended: {TutorStatusActive, TutorStatusRetired},
	TutorStatusRetired:   {},
}

// Tutor is the aggregate root for a teaching profile. A tutor belongs to
// exactly one user account; that uniqueness is enforced at the repository
// boundary.
type Tutor struct {
	id                valueobjects.TutorID
	userID            valueobjects.UserID
	subjects          []string
	hourlyRate        float64
	bio               string
	completedSessions int
	cancelledSessions int
	reputationScore   int
	tier              valueobjects.Tier
	status            TutorStatus
	createdAt         time.Time
	updatedAt         time.Time
	version           int

	events []events.DomainEvent
}

// TutorProps carries the input for creating a new tutor profile
type TutorProps struct {
	UserID     valueobjects.UserID
	Subjects   []string
	HourlyRate float64
	Bio        string
}

// TutorUpdate carries a partial profile update; nil fields are left unchanged
type TutorUpdate struct {
	Subjects   *[]string
	HourlyRate *float64
	Bio        *string
}

// NewTutor creates a tutor profile with full validation, reporting every
// violated field at once.
func NewTutor(props TutorProps, policy *config.PolicyConfig) (*Tutor, error) {
	if policy == nil {
		policy = config.DefaultPolicyConfig()
	}

	var violations pkgerrors.Violations

	if props.UserID.IsZero() {
		violations.Add("userId", "cannot be empty")
	}
	validateSubjects(&violations, props.Subjects, policy)
	validateHourlyRate(&violations, props.HourlyRate, policy)
	if len(props.Bio) > policy.MaxBioLength {
		violations.Addf("bio", "must be at most %d characters", policy.MaxBioLength)
	}

	if err := violations.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	tutor := &Tutor{
		id:         valueobjects.NewTutorID(),
		userID:     props.UserID,
		subjects:   copyStrings(props.Subjects),
		hourlyRate: props.HourlyRate,
		bio:        props.Bio,
		tier:       valueobjects.TierStandard,
		status:     TutorStatusPending,
		createdAt:  now,
		updatedAt:  now,
		version:    1,
		events:     []events.DomainEvent{},
	}

	tutor.addEvent(events.NewTutorCreated(tutor.id, props.UserID, tutor.Subjects(), now))

	return tutor, nil
}

// ReconstructTutor rebuilds a tutor from repository data. No events are
// emitted.
func ReconstructTutor(
	id valueobjects.TutorID,
	userID valueobjects.UserID,
	subjects []string,
	hourlyRate float64,
	bio string,
	completedSessions, cancelledSessions, reputationScore int,
	tier valueobjects.Tier,
	status TutorStatus,
	createdAt, updatedAt time.Time,
	version int,
) *Tutor {
	return &Tutor{
		id:                id,
		userID:            userID,
		subjects:          copyStrings(subjects),
		hourlyRate:        hourlyRate,
		bio:               bio,
		completedSessions: completedSessions,
		cancelledSessions: cancelledSessions,
		reputationScore:   reputationScore,
		tier:              tier,
		status:            status,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
		version:           version,
		events:            []events.DomainEvent{},
	}
}

// ID returns the tutor's unique identifier
func (t *Tutor) ID() valueobjects.TutorID { return t.id }

// UserID returns the owning user account's identifier
func (t *Tutor) UserID() valueobjects.UserID { return t.userID }

// Subjects returns the taught subjects
func (t *Tutor) Subjects() []string { return copyStrings(t.subjects) }

// HourlyRate returns the advertised hourly rate
func (t *Tutor) HourlyRate() float64 { return t.hourlyRate }

// Bio returns the profile bio
func (t *Tutor) Bio() string { return t.bio }

// CompletedSessions returns the cumulative completed session count
func (t *Tutor) CompletedSessions() int { return t.completedSessions }

// CancelledSessions returns the cumulative cancelled session count
func (t *Tutor) CancelledSessions() int { return t.cancelledSessions }

// ReputationScore returns the 0-100 reputation score
func (t *Tutor) ReputationScore() int { return t.reputationScore }

// CancellationRatio returns cancellations over all concluded sessions
func (t *Tutor) CancellationRatio() float64 {
	total := t.completedSessions + t.cancelledSessions
	if total == 0 {
		return 0
	}
	return float64(t.cancelledSessions) / float64(total)
}

// Tier returns the current tier
func (t *Tutor) Tier() valueobjects.Tier { return t.tier }

// Status returns the tutor's current status
func (t *Tutor) Status() TutorStatus { return t.status }

// CreatedAt returns when the profile was created
func (t *Tutor) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns when the profile was last updated
func (t *Tutor) UpdatedAt() time.Time { return t.updatedAt }

// Version returns the tutor's version for optimistic locking
func (t *Tutor) Version() int { return t.version }

// IsActive reports whether the tutor can take new sessions
func (t *Tutor) IsActive() bool { return t.status == TutorStatusActive }

// UpdateProfile applies a partial update with the same change-set semantics
// as the user aggregate: a no-op produces no event.
func (t *Tutor) UpdateProfile(update TutorUpdate, actorID string, policy *config.PolicyConfig) error {
	if policy == nil {
		policy = config.DefaultPolicyConfig()
	}

	if t.status == TutorStatusRetired {
		return pkgerrors.NewValidationError("cannot update a retired tutor")
	}

	var violations pkgerrors.Violations
	if update.Subjects != nil {
		validateSubjects(&violations, *update.Subjects, policy)
	}
	if update.HourlyRate != nil {
		validateHourlyRate(&violations, *update.HourlyRate, policy)
	}
	if update.Bio != nil && len(*update.Bio) > policy.MaxBioLength {
		violations.Addf("bio", "must be at most %d characters", policy.MaxBioLength)
	}
	if err := violations.Err(); err != nil {
		return err
	}

	var changed []string
	if update.Subjects != nil && !equalStrings(*update.Subjects, t.subjects) {
		t.subjects = copyStrings(*update.Subjects)
		changed = append(changed, "subjects")
	}
	if update.HourlyRate != nil && *update.HourlyRate != t.hourlyRate {
		t.hourlyRate = *update.HourlyRate
		changed = append(changed, "hourlyRate")
	}
	if update.Bio != nil && *update.Bio != t.bio {
		t.bio = *update.Bio
		changed = append(changed, "bio")
	}

	if len(changed) == 0 {
		return nil
	}

	t.updatedAt = time.Now()
	t.version++
	t.addEvent(events.NewTutorUpdated(t.id, changed, actorID, t.updatedAt))

	return nil
}

// RecordSessionCompleted increments the completed counter
func (t *Tutor) RecordSessionCompleted() error {
	if !t.IsActive() {
		return pkgerrors.NewValidationError("tutor is not active")
	}

	t.completedSessions++
	t.updatedAt = time.Now()
	t.version++

	t.addEvent(events.NewTutorSessionCompleted(t.id, t.completedSessions, t.updatedAt))

	return nil
}

// RecordCancellation increments the cancelled counter
func (t *Tutor) RecordCancellation() error {
	if !t.IsActive() {
		return pkgerrors.NewValidationError("tutor is not active")
	}

	t.cancelledSessions++
	t.updatedAt = time.Now()
	t.version++

	t.addEvent(events.NewTutorUpdated(t.id, []string{"cancelledSessions"}, "", t.updatedAt))

	return nil
}

// SetReputationScore replaces the aggregate reputation score (0-100)
func (t *Tutor) SetReputationScore(score int) error {
	if score < 0 || score > 100 {
		return pkgerrors.NewValidationError("reputation score must be between 0 and 100")
	}
	if score == t.reputationScore {
		return nil
	}

	t.reputationScore = score
	t.updatedAt = time.Now()
	t.version++

	t.addEvent(events.NewTutorUpdated(t.id, []string{"reputationScore"}, "", t.updatedAt))

	return nil
}

// ApplyTier records the tier computed by the tiering rules. Emits an event
// only when the tier actually changes.
func (t *Tutor) ApplyTier(tier valueobjects.Tier) {
	if tier.IsZero() || tier.Equals(t.tier) {
		return
	}

	from := t.tier
	t.tier = tier
	t.updatedAt = time.Now()
	t.version++

	t.addEvent(events.NewTutorTierChanged(t.id, from.String(), tier.String(), t.updatedAt))
}

// TransitionTo moves the tutor along the status graph
func (t *Tutor) TransitionTo(target TutorStatus) error {
	if !isLegalTutorTransition(t.status, target) {
		return pkgerrors.NewInvalidTransitionError("tutor", string(t.status), string(target))
	}

	from := t.status
	t.status = target
	t.updatedAt = time.Now()
	t.version++

	t.addEvent(events.NewTutorStatusChanged(t.id, string(from), string(target), t.updatedAt))

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (t *Tutor) GetUncommittedEvents() []events.DomainEvent {
	return t.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (t *Tutor) MarkEventsAsCommitted() {
	t.events = []events.DomainEvent{}
}

func (t *Tutor) addEvent(event events.DomainEvent) {
	t.events = append(t.events, event)
}

func isLegalTutorTransition(from, to TutorStatus) bool {
	for _, allowed := range tutorTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func validateSubjects(violations *pkgerrors.Violations, subjects []string, policy *config.PolicyConfig) {
	if len(subjects) == 0 {
		violations.Add("subjects", "at least one subject is required")
		return
	}
	if len(subjects) > policy.MaxSubjectsPerTutor {
		violations.Addf("subjects", "must be at most %d subjects", policy.MaxSubjectsPerTutor)
	}
	for _, s := range subjects {
		if s == "" {
			violations.Add("subjects", "subject names cannot be empty")
			return
		}
	}
}

func validateHourlyRate(violations *pkgerrors.Violations, rate float64, policy *config.PolicyConfig) {
	if rate < policy.MinHourlyRate || rate > policy.MaxHourlyRate {
		violations.Addf("hourlyRate", "must be between %.2f and %.2f", policy.MinHourlyRate, policy.MaxHourlyRate)
	}
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
