package entities_test

import (
	"testing"

	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	domainevents "tutormatch-backend/domain/events"
	pkgerrors "tutormatch-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T) *entities.User {
	t.Helper()

	user, err := entities.NewUser(entities.UserProps{
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Timezone:    "Europe/Berlin",
	}, nil)
	require.NoError(t, err)

	return user
}

func TestUser_Creation(t *testing.T) {
	// Act
	user := createTestUser(t)

	// Assert
	assert.False(t, user.ID().IsZero())
	assert.Equal(t, "alice@example.com", user.Email().String())
	assert.Equal(t, "Alice", user.DisplayName())
	assert.True(t, user.Role().Equals(valueobjects.RoleStudent))
	assert.Equal(t, entities.UserStatusPending, user.Status())
	assert.Equal(t, 1, user.Version())

	queued := user.GetUncommittedEvents()
	require.Len(t, queued, 1)
	assert.Equal(t, domainevents.EventUserCreated, queued[0].GetEventType())
}

func TestUser_CreationReportsEveryViolatedField(t *testing.T) {
	_, err := entities.NewUser(entities.UserProps{
		Email:       "not-an-email",
		DisplayName: "",
		Role:        "overlord",
	}, nil)

	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeValidation, appErr.Type)

	fields := make([]string, 0, len(appErr.Violations))
	for _, v := range appErr.Violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"email", "displayName", "role"}, fields)
}

func TestUser_UpdateProfileNoopEmitsNoEvent(t *testing.T) {
	user := createTestUser(t)
	user.MarkEventsAsCommitted()

	same := "Alice"
	err := user.UpdateProfile(entities.UserUpdate{DisplayName: &same}, "actor-1", nil)

	require.NoError(t, err)
	assert.Empty(t, user.GetUncommittedEvents())
	assert.Equal(t, 1, user.Version())
}

func TestUser_UpdateProfileRecordsChangeSet(t *testing.T) {
	user := createTestUser(t)
	user.MarkEventsAsCommitted()

	name := "Alice B"
	tz := "America/New_York"
	err := user.UpdateProfile(entities.UserUpdate{DisplayName: &name, Timezone: &tz}, "actor-1", nil)
	require.NoError(t, err)

	queued := user.GetUncommittedEvents()
	require.Len(t, queued, 1)

	updated, ok := queued[0].(domainevents.UserUpdated)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"displayName", "timezone"}, updated.ChangedFields)
	assert.Equal(t, "actor-1", updated.ActorID)
	assert.Equal(t, 2, user.Version())
}

func TestUser_UpdateProfileRejectsBadEmailBeforeApplying(t *testing.T) {
	user := createTestUser(t)
	user.MarkEventsAsCommitted()

	bad := "nope"
	name := "Changed"
	err := user.UpdateProfile(entities.UserUpdate{Email: &bad, DisplayName: &name}, "", nil)

	require.Error(t, err)
	// All-or-nothing: the valid display name change must not be applied.
	assert.Equal(t, "Alice", user.DisplayName())
	assert.Empty(t, user.GetUncommittedEvents())
}

func TestUser_TransitionFollowsTable(t *testing.T) {
	user := createTestUser(t)
	user.MarkEventsAsCommitted()

	// pending -> active is an edge
	require.NoError(t, user.TransitionTo(entities.UserStatusActive))
	assert.Equal(t, entities.UserStatusActive, user.Status())

	queued := user.GetUncommittedEvents()
	require.Len(t, queued, 1)
	changed, ok := queued[0].(domainevents.UserStatusChanged)
	require.True(t, ok)
	assert.Equal(t, string(entities.UserStatusPending), changed.From)
	assert.Equal(t, string(entities.UserStatusActive), changed.To)

	// active -> pending is not an edge; status must stay unchanged
	err := user.TransitionTo(entities.UserStatusPending)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidTransition(err))
	assert.Equal(t, entities.UserStatusActive, user.Status())
}

func TestUser_DeactivatedIsTerminal(t *testing.T) {
	user := createTestUser(t)
	require.NoError(t, user.TransitionTo(entities.UserStatusActive))
	require.NoError(t, user.TransitionTo(entities.UserStatusDeactivated))

	for _, target := range []entities.UserStatus{
		entities.UserStatusPending,
		entities.UserStatusActive,
		entities.UserStatusSuspended,
	} {
		err := user.TransitionTo(target)
		assert.True(t, pkgerrors.IsInvalidTransition(err), "expected %s to be rejected", target)
	}
}

func TestUser_ChangeRoleRejectsSelfAndAdmin(t *testing.T) {
	user := createTestUser(t)

	err := user.ChangeRole(valueobjects.RoleStudent)
	assert.Error(t, err)

	err = user.ChangeRole(valueobjects.RoleAdmin)
	assert.Error(t, err)
}

func TestUser_LockEmitsAccountLocked(t *testing.T) {
	user := createTestUser(t)
	require.NoError(t, user.TransitionTo(entities.UserStatusActive))
	user.MarkEventsAsCommitted()

	user.RecordFailedLogin()
	user.RecordFailedLogin()
	require.NoError(t, user.Lock())

	assert.Equal(t, entities.UserStatusSuspended, user.Status())

	// Each counter bump queues its own event ahead of the lock
	queued := user.GetUncommittedEvents()
	require.Len(t, queued, 3)

	for _, raw := range queued[:2] {
		updated, ok := raw.(domainevents.UserUpdated)
		require.True(t, ok)
		assert.Equal(t, []string{"failedLogins"}, updated.ChangedFields)
	}

	locked, ok := queued[2].(domainevents.UserAccountLocked)
	require.True(t, ok)
	assert.Equal(t, 2, locked.FailedAttempts)
}

func TestUser_FailedLoginCounterEvents(t *testing.T) {
	user := createTestUser(t)
	require.NoError(t, user.TransitionTo(entities.UserStatusActive))
	user.MarkEventsAsCommitted()
	versionBefore := user.Version()

	// Resetting an already-zero counter changes nothing
	user.ResetFailedLogins()
	assert.Empty(t, user.GetUncommittedEvents())
	assert.Equal(t, versionBefore, user.Version())

	assert.Equal(t, 1, user.RecordFailedLogin())
	assert.Equal(t, versionBefore+1, user.Version())
	user.MarkEventsAsCommitted()

	user.ResetFailedLogins()
	assert.Zero(t, user.FailedLogins())
	assert.Equal(t, versionBefore+2, user.Version())

	queued := user.GetUncommittedEvents()
	require.Len(t, queued, 1)
	updated, ok := queued[0].(domainevents.UserUpdated)
	require.True(t, ok)
	assert.Equal(t, []string{"failedLogins"}, updated.ChangedFields)
}

func TestUser_DrainIsIdempotent(t *testing.T) {
	user := createTestUser(t)

	first := user.GetUncommittedEvents()
	require.NotEmpty(t, first)

	user.MarkEventsAsCommitted()
	assert.Empty(t, user.GetUncommittedEvents())

	user.MarkEventsAsCommitted()
	assert.Empty(t, user.GetUncommittedEvents())
}

func TestUser_ReconstructPreservesStateWithoutEvents(t *testing.T) {
	original := createTestUser(t)
	require.NoError(t, original.TransitionTo(entities.UserStatusActive))

	rebuilt := entities.ReconstructUser(
		original.ID(),
		original.Email(),
		original.DisplayName(),
		original.Timezone(),
		original.Role(),
		original.Status(),
		original.FailedLogins(),
		original.CreatedAt(),
		original.UpdatedAt(),
		original.Version(),
	)

	assert.True(t, rebuilt.ID().Equals(original.ID()))
	assert.Equal(t, original.Status(), rebuilt.Status())
	assert.Equal(t, original.Version(), rebuilt.Version())
	assert.Empty(t, rebuilt.GetUncommittedEvents())
}
