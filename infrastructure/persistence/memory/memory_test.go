package memory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/events"
	"tutormatch-backend/infrastructure/persistence/memory"
	pkgerrors "tutormatch-backend/pkg/errors"
)

func newUser(t *testing.T, email string, createdAt time.Time) *entities.User {
	t.Helper()

	addr, err := valueobjects.NewEmail(email)
	require.NoError(t, err)
	return entities.ReconstructUser(
		valueobjects.NewUserID(), addr, "Test User", "UTC",
		valueobjects.RoleStudent, entities.UserStatusActive, 0,
		createdAt, createdAt, 1,
	)
}

func newRequest(studentID valueobjects.UserID, status entities.RequestStatus, createdAt time.Time) *entities.MatchingRequest {
	return entities.ReconstructMatchingRequest(
		valueobjects.NewRequestID(), studentID, "math", 40, "", "",
		status, valueobjects.TutorID{}, createdAt, createdAt, 1,
	)
}

func TestUserRepository_EmailUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	first := newUser(t, "ada@example.com", time.Now())
	require.NoError(t, repo.Save(ctx, first))

	// A different user with the same address conflicts
	dupe := newUser(t, "ada@example.com", time.Now())
	err := repo.Save(ctx, dupe)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))

	// Re-saving the same user is an update, not a conflict
	require.NoError(t, repo.Save(ctx, first))
}

func TestUserRepository_EmailChangeFreesOldAddress(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	first := newUser(t, "old@example.com", time.Now())
	require.NoError(t, repo.Save(ctx, first))

	moved := entities.ReconstructUser(
		first.ID(), mustEmail(t, "new@example.com"), first.DisplayName(), first.Timezone(),
		first.Role(), first.Status(), 0, first.CreatedAt(), time.Now(), 2,
	)
	require.NoError(t, repo.Save(ctx, moved))

	// The old address is free again
	taker := newUser(t, "old@example.com", time.Now())
	require.NoError(t, repo.Save(ctx, taker))

	found, err := repo.FindByEmail(ctx, mustEmail(t, "new@example.com"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.ID().Equals(first.ID()))
}

func mustEmail(t *testing.T, raw string) valueobjects.Email {
	t.Helper()
	addr, err := valueobjects.NewEmail(raw)
	require.NoError(t, err)
	return addr
}

func TestUserRepository_FindAllPagination(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		user := newUser(t, fmt.Sprintf("user%d@example.com", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Save(ctx, user))
	}

	page, err := repo.FindAll(ctx, ports.Page{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "user2@example.com", page.Items[0].Email().String())

	// Past the last page comes back empty with the total intact
	page, err = repo.FindAll(ctx, ports.Page{Number: 4, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Empty(t, page.Items)
}

func TestUserRepository_FindAllStableOnEqualTimestamps(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()

	// Same creation instant for every user, so only the id tiebreak orders them
	createdAt := time.Now().Add(-time.Hour)
	for i := 0; i < 6; i++ {
		require.NoError(t, repo.Save(ctx, newUser(t, fmt.Sprintf("user%d@example.com", i), createdAt)))
	}

	collect := func() []string {
		var ids []string
		for number := 1; number <= 3; number++ {
			page, err := repo.FindAll(ctx, ports.Page{Number: number, Size: 2})
			require.NoError(t, err)
			require.Len(t, page.Items, 2)
			for _, user := range page.Items {
				ids = append(ids, user.ID().String())
			}
		}
		return ids
	}

	first := collect()
	for run := 0; run < 5; run++ {
		assert.Equal(t, first, collect())
	}

	// Every user shows up exactly once across the pages
	seen := make(map[string]bool, len(first))
	for _, id := range first {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestMatchingRequestRepository_CountOpen(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMatchingRequestRepository()
	studentID := valueobjects.NewUserID()

	now := time.Now()
	require.NoError(t, repo.Save(ctx, newRequest(studentID, entities.RequestStatusPending, now)))
	require.NoError(t, repo.Save(ctx, newRequest(studentID, entities.RequestStatusMatched, now)))
	require.NoError(t, repo.Save(ctx, newRequest(studentID, entities.RequestStatusCancelled, now)))
	require.NoError(t, repo.Save(ctx, newRequest(valueobjects.NewUserID(), entities.RequestStatusPending, now)))

	open, err := repo.CountOpenByStudentID(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, 2, open)
}

func TestMatchingRequestRepository_FindPendingCreatedBefore(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMatchingRequestRepository()
	studentID := valueobjects.NewUserID()

	cutoff := time.Now().Add(-time.Hour)
	stale := newRequest(studentID, entities.RequestStatusPending, cutoff.Add(-time.Minute))
	fresh := newRequest(studentID, entities.RequestStatusPending, cutoff.Add(time.Minute))
	staleMatched := newRequest(studentID, entities.RequestStatusMatched, cutoff.Add(-time.Minute))
	require.NoError(t, repo.Save(ctx, stale))
	require.NoError(t, repo.Save(ctx, fresh))
	require.NoError(t, repo.Save(ctx, staleMatched))

	found, err := repo.FindPendingCreatedBefore(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].ID().Equals(stale.ID()))

	// The limit bounds the sweep
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, newRequest(studentID, entities.RequestStatusPending, cutoff.Add(-time.Minute))))
	}
	found, err = repo.FindPendingCreatedBefore(ctx, cutoff, 3)
	require.NoError(t, err)
	assert.Len(t, found, 3)
}

func TestEventStore_PendingLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()

	first := events.NewMatchingRequestCreated(valueobjects.NewRequestID(), valueobjects.NewUserID(), "math", time.Now())
	second := events.NewMatchingRequestExpired(valueobjects.NewRequestID(), time.Now())
	require.NoError(t, store.Append(ctx, []events.DomainEvent{first, second}))

	pending, err := store.LoadPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ports.PublishStatusPending, pending[0].PublishStatus)

	require.NoError(t, store.MarkPublished(ctx, first.GetEventID()))
	pending, err = store.LoadPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.GetEventID(), pending[0].EventID)

	// Failed rows stay visible to the relay and accumulate attempts
	require.NoError(t, store.MarkFailed(ctx, second.GetEventID(), 1, "bus unavailable"))
	require.NoError(t, store.MarkFailed(ctx, second.GetEventID(), 1, "bus unavailable"))
	pending, err = store.LoadPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ports.PublishStatusFailed, pending[0].PublishStatus)
	assert.Equal(t, 2, pending[0].PublishAttempts)

	// Dead rows count one final attempt and leave the pending set
	require.NoError(t, store.MarkDead(ctx, second.GetEventID(), "bus unavailable"))
	pending, err = store.LoadPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	stored, err := store.LoadByAggregate(ctx, second.GetAggregateID())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, ports.PublishStatusDead, stored[0].PublishStatus)
	assert.Equal(t, 3, stored[0].PublishAttempts)

	assert.Error(t, store.MarkPublished(ctx, "no-such-event"))
	assert.Error(t, store.MarkDead(ctx, "no-such-event", "gone"))
}

func TestEventStore_LoadByAggregate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()

	requestID := valueobjects.NewRequestID()
	created := events.NewMatchingRequestCreated(requestID, valueobjects.NewUserID(), "math", time.Now().Add(-time.Minute))
	expired := events.NewMatchingRequestExpired(requestID, time.Now())
	other := events.NewMatchingRequestCreated(valueobjects.NewRequestID(), valueobjects.NewUserID(), "physics", time.Now())
	require.NoError(t, store.Append(ctx, []events.DomainEvent{created, expired, other}))

	stored, err := store.LoadByAggregate(ctx, requestID.String())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, created.GetEventID(), stored[0].EventID)
	assert.Equal(t, expired.GetEventID(), stored[1].EventID)
}
