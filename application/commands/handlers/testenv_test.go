package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/infrastructure/messaging/inprocess"
	"tutormatch-backend/infrastructure/persistence/memory"
)

// testEnv wires the in-memory infrastructure a handler needs
type testEnv struct {
	users    *memory.UserRepository
	tutors   *memory.TutorRepository
	requests *memory.MatchingRequestRepository
	store    *memory.EventStore
	bus      *inprocess.Bus
	policy   *config.PolicyConfig
	logger   *zap.Logger
}

func newTestEnv() *testEnv {
	logger := zap.NewNop()
	return &testEnv{
		users:    memory.NewUserRepository(),
		tutors:   memory.NewTutorRepository(),
		requests: memory.NewMatchingRequestRepository(),
		store:    memory.NewEventStore(),
		bus:      inprocess.NewBus(logger),
		policy:   config.DefaultPolicyConfig(),
		logger:   logger,
	}
}

// seedUser stores an account directly, bypassing the registration flow
func (e *testEnv) seedUser(t *testing.T, email string, role valueobjects.Role, status entities.UserStatus, age time.Duration) *entities.User {
	t.Helper()

	addr, err := valueobjects.NewEmail(email)
	require.NoError(t, err)

	now := time.Now()
	user := entities.ReconstructUser(
		valueobjects.NewUserID(), addr, "Test User", "UTC",
		role, status, 0, now.Add(-age), now, 1,
	)
	require.NoError(t, e.users.Save(context.Background(), user))
	return user
}

// seedTutor stores an active tutor profile for the given user
func (e *testEnv) seedTutor(t *testing.T, userID valueobjects.UserID) *entities.Tutor {
	t.Helper()

	now := time.Now()
	tutor := entities.ReconstructTutor(
		valueobjects.NewTutorID(), userID, []string{"math"}, 40, "",
		0, 0, 0, valueobjects.TierStandard, entities.TutorStatusActive,
		now, now, 1,
	)
	require.NoError(t, e.tutors.Save(context.Background(), tutor))
	return tutor
}

// seedRequest stores a matching request in the given status
func (e *testEnv) seedRequest(t *testing.T, studentID valueobjects.UserID, status entities.RequestStatus, createdAt time.Time) *entities.MatchingRequest {
	t.Helper()

	request := entities.ReconstructMatchingRequest(
		valueobjects.NewRequestID(), studentID, "math", 40, "", "",
		status, valueobjects.TutorID{}, createdAt, createdAt, 1,
	)
	require.NoError(t, e.requests.Save(context.Background(), request))
	return request
}
