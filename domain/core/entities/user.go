package entities

import (
	"time"

	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/events"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// UserStatus represents the lifecycle state of a user account
type UserStatus string

const (
	UserStatusPending     UserStatus = "pending"
	UserStatusActive      UserStatus = "active"
	UserStatusSuspended   UserStatus = "suspended"
	UserStatusDeactivated UserStatus = "deactivated"
)

// userTransitions is the fixed status graph. A transition is legal iff the
// target appears under the current status; deactivated is terminal.
var userTransitions = map[UserStatus][]UserStatus{
	UserStatusPending:     {UserStatusActive},
	UserStatusActive:      {UserStatusSuspended, UserStatusDeactivated},
	UserStatusSuspended:   {UserStatusActive, UserStatusDeactivated},
	UserStatusDeactivated: {},
}

// User is the aggregate root for a platform account.
// All mutation goes through named methods that enforce invariants and queue
// domain events; fields are never assigned from outside the aggregate.
type User struct {
	id           valueobjects.UserID
	email        valueobjects.Email
	displayName  string
	timezone     string
	role         valueobjects.Role
	status       UserStatus
	failedLogins int
	createdAt    time.Time
	updatedAt    time.Time
	version      int

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// UserProps carries the input for creating a new user
type UserProps struct {
	Email       string
	DisplayName string
	Timezone    string
	Role        string
}

// UserUpdate carries a partial profile update; nil fields are left unchanged
type UserUpdate struct {
	Email       *string
	DisplayName *string
	Timezone    *string
}

// NewUser creates a user with full validation. Every violated field is
// reported, not just the first.
func NewUser(props UserProps, policy *config.PolicyConfig) (*User, error) {
	if policy == nil {
		policy = config.DefaultPolicyConfig()
	}

	var violations pkgerrors.Violations

	email, err := valueobjects.NewEmail(props.Email)
	if err != nil {
		violations.Add("email", err.Error())
	}

	if props.DisplayName == "" {
		violations.Add("displayName", "cannot be empty")
	} else if len(props.DisplayName) > policy.MaxDisplayNameLength {
		violations.Addf("displayName", "must be at most %d characters", policy.MaxDisplayNameLength)
	}

	role := valueobjects.RoleStudent
	if props.Role != "" {
		role, err = valueobjects.ParseRole(props.Role)
		if err != nil {
			violations.Add("role", err.Error())
		}
	}

	if err := violations.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	user := &User{
		id:          valueobjects.NewUserID(),
		email:       email,
		displayName: props.DisplayName,
		timezone:    props.Timezone,
		role:        role,
		status:      UserStatusPending,
		createdAt:   now,
		updatedAt:   now,
		version:     1,
		events:      []events.DomainEvent{},
	}

	user.addEvent(events.NewUserCreated(user.id, email.String(), props.DisplayName, role.String(), now))

	return user, nil
}

// ReconstructUser rebuilds a user from repository data with preserved
// timestamps. No events are emitted.
func ReconstructUser(
	id valueobjects.UserID,
	email valueobjects.Email,
	displayName, timezone string,
	role valueobjects.Role,
	status UserStatus,
	failedLogins int,
	createdAt, updatedAt time.Time,
	version int,
) *User {
	return &User{
		id:           id,
		email:        email,
		displayName:  displayName,
		timezone:     timezone,
		role:         role,
		status:       status,
		failedLogins: failedLogins,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		version:      version,
		events:       []events.DomainEvent{},
	}
}

// ID returns the user's unique identifier
func (u *User) ID() valueobjects.UserID { return u.id }

// Email returns the user's normalized email
func (u *User) Email() valueobjects.Email { return u.email }

// DisplayName returns the user's display name
func (u *User) DisplayName() string { return u.displayName }

// Timezone returns the user's timezone
func (u *User) Timezone() string { return u.timezone }

// Role returns the user's role
func (u *User) Role() valueobjects.Role { return u.role }

// Status returns the user's current status
func (u *User) Status() UserStatus { return u.status }

// FailedLogins returns the consecutive failed login count
func (u *User) FailedLogins() int { return u.failedLogins }

// CreatedAt returns when the user was created
func (u *User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns when the user was last updated
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// Version returns the user's version for optimistic locking
func (u *User) Version() int { return u.version }

// IsActive reports whether the account is in the active status
func (u *User) IsActive() bool { return u.status == UserStatusActive }

// UpdateProfile applies a partial update. Only fields that actually change
// are recorded; when nothing changes the call is a no-op and no event is
// queued. A non-empty change-set queues exactly one UserUpdated event.
func (u *User) UpdateProfile(update UserUpdate, actorID string, policy *config.PolicyConfig) error {
	if policy == nil {
		policy = config.DefaultPolicyConfig()
	}

	if u.status == UserStatusDeactivated {
		return pkgerrors.NewValidationError("cannot update a deactivated user")
	}

	var violations pkgerrors.Violations
	var newEmail valueobjects.Email

	if update.Email != nil {
		parsed, err := valueobjects.NewEmail(*update.Email)
		if err != nil {
			violations.Add("email", err.Error())
		} else {
			newEmail = parsed
		}
	}
	if update.DisplayName != nil {
		if *update.DisplayName == "" {
			violations.Add("displayName", "cannot be empty")
		} else if len(*update.DisplayName) > policy.MaxDisplayNameLength {
			violations.Addf("displayName", "must be at most %d characters", policy.MaxDisplayNameLength)
		}
	}
	if err := violations.Err(); err != nil {
		return err
	}

	// Validation passed for every field; apply changes and collect names.
	var changed []string
	if update.Email != nil && !newEmail.Equals(u.email) {
		u.email = newEmail
		changed = append(changed, "email")
	}
	if update.DisplayName != nil && *update.DisplayName != u.displayName {
		u.displayName = *update.DisplayName
		changed = append(changed, "displayName")
	}
	if update.Timezone != nil && *update.Timezone != u.timezone {
		u.timezone = *update.Timezone
		changed = append(changed, "timezone")
	}

	if len(changed) == 0 {
		return nil // No change, no event
	}

	u.updatedAt = time.Now()
	u.version++
	u.addEvent(events.NewUserUpdated(u.id, changed, actorID, u.updatedAt))

	return nil
}

// TransitionTo moves the user along the status graph. Illegal transitions
// are rejected before any state changes.
func (u *User) TransitionTo(target UserStatus) error {
	if !isLegalUserTransition(u.status, target) {
		return pkgerrors.NewInvalidTransitionError("user", string(u.status), string(target))
	}

	from := u.status
	u.status = target
	u.updatedAt = time.Now()
	u.version++

	u.addEvent(events.NewUserStatusChanged(u.id, string(from), string(target), u.updatedAt))

	return nil
}

// ChangeRole switches the user's role. Eligibility (account age, active
// status, admin exclusion) is checked by the caller via the rules evaluator;
// the aggregate only rejects no-op and admin transitions outright.
func (u *User) ChangeRole(target valueobjects.Role) error {
	if target.IsZero() {
		return pkgerrors.NewValidationError("role cannot be empty")
	}
	if target.Equals(u.role) {
		return pkgerrors.NewValidationError("user already has this role")
	}
	if target.IsAdmin() || u.role.IsAdmin() {
		return pkgerrors.NewForbiddenError("admin role changes require the administrative path")
	}

	from := u.role
	u.role = target
	u.updatedAt = time.Now()
	u.version++

	u.addEvent(events.NewUserRoleChanged(u.id, from.String(), target.String(), u.updatedAt))

	return nil
}

// RecordFailedLogin increments the consecutive failure counter and queues a
// UserUpdated event for it. The caller decides via the rules evaluator
// whether the new count warrants a lock.
func (u *User) RecordFailedLogin() int {
	u.failedLogins++
	u.updatedAt = time.Now()
	u.version++
	u.addEvent(events.NewUserUpdated(u.id, []string{"failedLogins"}, "", u.updatedAt))
	return u.failedLogins
}

// ResetFailedLogins clears the failure counter after a successful login.
// A zero counter is a no-op so routine logins queue nothing.
func (u *User) ResetFailedLogins() {
	if u.failedLogins == 0 {
		return
	}
	u.failedLogins = 0
	u.updatedAt = time.Now()
	u.version++
	u.addEvent(events.NewUserUpdated(u.id, []string{"failedLogins"}, "", u.updatedAt))
}

// Lock suspends the account after repeated failed logins. It follows the
// same transition table as TransitionTo.
func (u *User) Lock() error {
	if !isLegalUserTransition(u.status, UserStatusSuspended) {
		return pkgerrors.NewInvalidTransitionError("user", string(u.status), string(UserStatusSuspended))
	}

	u.status = UserStatusSuspended
	u.updatedAt = time.Now()
	u.version++

	u.addEvent(events.NewUserAccountLocked(u.id, u.failedLogins, u.updatedAt))

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (u *User) GetUncommittedEvents() []events.DomainEvent {
	return u.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (u *User) MarkEventsAsCommitted() {
	u.events = []events.DomainEvent{}
}

func (u *User) addEvent(event events.DomainEvent) {
	u.events = append(u.events, event)
}

func isLegalUserTransition(from, to UserStatus) bool {
	for _, allowed := range userTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
