package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutormatch-backend/application/commands"
	"tutormatch-backend/application/commands/handlers"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	pkgerrors "tutormatch-backend/pkg/errors"
)

func TestCreateMatchingRequestHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending request for an active student", func(t *testing.T) {
		env := newTestEnv()
		student := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)
		handler := handlers.NewCreateMatchingRequestHandler(env.users, env.requests, env.store, env.bus, env.policy, env.logger)

		result, err := handler.Handle(ctx, commands.CreateMatchingRequestCommand{
			StudentID:     student.ID().String(),
			Subject:       "calculus",
			BudgetPerHour: 40,
		})
		require.NoError(t, err)

		request, ok := result.(*entities.MatchingRequest)
		require.True(t, ok)
		assert.Equal(t, entities.RequestStatusPending, request.Status())
		assert.True(t, request.StudentID().Equals(student.ID()))
	})

	t.Run("rejects an inactive student", func(t *testing.T) {
		env := newTestEnv()
		student := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusPending, time.Hour)
		handler := handlers.NewCreateMatchingRequestHandler(env.users, env.requests, env.store, env.bus, env.policy, env.logger)

		_, err := handler.Handle(ctx, commands.CreateMatchingRequestCommand{
			StudentID:     student.ID().String(),
			Subject:       "calculus",
			BudgetPerHour: 40,
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeForbidden))
	})

	t.Run("enforces the open request cap", func(t *testing.T) {
		env := newTestEnv()
		student := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)
		for i := 0; i < env.policy.MaxOpenRequestsPerStudent; i++ {
			env.seedRequest(t, student.ID(), entities.RequestStatusPending, time.Now())
		}
		handler := handlers.NewCreateMatchingRequestHandler(env.users, env.requests, env.store, env.bus, env.policy, env.logger)

		_, err := handler.Handle(ctx, commands.CreateMatchingRequestCommand{
			StudentID:     student.ID().String(),
			Subject:       "calculus",
			BudgetPerHour: 40,
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))
	})

	t.Run("closed requests do not count against the cap", func(t *testing.T) {
		env := newTestEnv()
		student := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)
		for i := 0; i < env.policy.MaxOpenRequestsPerStudent; i++ {
			env.seedRequest(t, student.ID(), entities.RequestStatusCancelled, time.Now())
		}
		handler := handlers.NewCreateMatchingRequestHandler(env.users, env.requests, env.store, env.bus, env.policy, env.logger)

		_, err := handler.Handle(ctx, commands.CreateMatchingRequestCommand{
			StudentID:     student.ID().String(),
			Subject:       "calculus",
			BudgetPerHour: 40,
		})
		require.NoError(t, err)
	})
}

func TestAssignConfirmFlow(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv()
	student := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)
	tutorUser := env.seedUser(t, "tutor@example.com", valueobjects.RoleTutor, entities.UserStatusActive, 30*24*time.Hour)
	tutor := env.seedTutor(t, tutorUser.ID())
	request := env.seedRequest(t, student.ID(), entities.RequestStatusPending, time.Now())

	assign := handlers.NewAssignTutorHandler(env.requests, env.tutors, env.store, env.bus, env.logger)
	confirm := handlers.NewConfirmMatchHandler(env.requests, env.store, env.bus, env.logger)

	result, err := assign.Handle(ctx, commands.AssignTutorCommand{
		RequestID: request.ID().String(),
		TutorID:   tutor.ID().String(),
	})
	require.NoError(t, err)

	matched := result.(*entities.MatchingRequest)
	assert.Equal(t, entities.RequestStatusMatched, matched.Status())
	assert.True(t, matched.TutorID().Equals(tutor.ID()))

	result, err = confirm.Handle(ctx, commands.ConfirmMatchCommand{RequestID: request.ID().String()})
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusConfirmed, result.(*entities.MatchingRequest).Status())

	// Confirming twice is an illegal transition
	_, err = confirm.Handle(ctx, commands.ConfirmMatchCommand{RequestID: request.ID().String()})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidTransition(err))
}

func TestCancelMatchingRequestHandler(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv()
	student := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)
	request := env.seedRequest(t, student.ID(), entities.RequestStatusPending, time.Now())
	handler := handlers.NewCancelMatchingRequestHandler(env.requests, env.store, env.bus, env.logger)

	result, err := handler.Handle(ctx, commands.CancelMatchingRequestCommand{
		RequestID: request.ID().String(),
		Reason:    "found a tutor elsewhere",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusCancelled, result.(*entities.MatchingRequest).Status())
}

func TestExpireMatchingRequestsHandler(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv()
	student := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)

	stale := time.Now().Add(-env.policy.RequestTTL - time.Hour)
	for i := 0; i < 3; i++ {
		env.seedRequest(t, student.ID(), entities.RequestStatusPending, stale)
	}
	fresh := env.seedRequest(t, student.ID(), entities.RequestStatusPending, time.Now())
	matched := env.seedRequest(t, student.ID(), entities.RequestStatusMatched, stale)

	handler := handlers.NewExpireMatchingRequestsHandler(env.requests, env.store, env.bus, env.policy, env.logger)

	result, err := handler.Handle(ctx, commands.ExpireMatchingRequestsCommand{})
	require.NoError(t, err)
	assert.Equal(t, handlers.ExpirySweepResult{Expired: 3}, result)

	// The fresh and matched requests are untouched
	reloaded, err := env.requests.FindByID(ctx, fresh.ID())
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusPending, reloaded.Status())

	reloaded, err = env.requests.FindByID(ctx, matched.ID())
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusMatched, reloaded.Status())

	// A second sweep finds nothing left
	result, err = handler.Handle(ctx, commands.ExpireMatchingRequestsCommand{})
	require.NoError(t, err)
	assert.Equal(t, handlers.ExpirySweepResult{Expired: 0}, result)
}
