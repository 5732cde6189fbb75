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

func TestPromoteToTutorHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes a mature active student and opens the profile", func(t *testing.T) {
		env := newTestEnv()
		age := time.Duration(env.policy.RoleUpgradeMinAccountAgeDays+1) * 24 * time.Hour
		user := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, age)
		handler := handlers.NewPromoteToTutorHandler(env.users, env.tutors, env.store, env.bus, env.policy, env.logger)

		result, err := handler.Handle(ctx, commands.PromoteToTutorCommand{
			UserID:     user.ID().String(),
			Subjects:   []string{"math", "physics"},
			HourlyRate: 55,
		})
		require.NoError(t, err)

		tutor, ok := result.(*entities.Tutor)
		require.True(t, ok)
		assert.True(t, tutor.UserID().Equals(user.ID()))
		assert.Equal(t, valueobjects.TierStandard, tutor.Tier())

		reloaded, err := env.users.FindByID(ctx, user.ID())
		require.NoError(t, err)
		assert.Equal(t, valueobjects.RoleTutor, reloaded.Role())

		// Both aggregates committed their events
		userEvents, err := env.store.LoadByAggregate(ctx, user.ID().String())
		require.NoError(t, err)
		assert.NotEmpty(t, userEvents)
		tutorEvents, err := env.store.LoadByAggregate(ctx, tutor.ID().String())
		require.NoError(t, err)
		assert.NotEmpty(t, tutorEvents)
	})

	t.Run("rejects a second profile for the same user", func(t *testing.T) {
		env := newTestEnv()
		age := time.Duration(env.policy.RoleUpgradeMinAccountAgeDays+1) * 24 * time.Hour
		user := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, age)
		env.seedTutor(t, user.ID())
		handler := handlers.NewPromoteToTutorHandler(env.users, env.tutors, env.store, env.bus, env.policy, env.logger)

		_, err := handler.Handle(ctx, commands.PromoteToTutorCommand{
			UserID:     user.ID().String(),
			Subjects:   []string{"math"},
			HourlyRate: 55,
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))
	})

	t.Run("rejects a young account", func(t *testing.T) {
		env := newTestEnv()
		user := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)
		handler := handlers.NewPromoteToTutorHandler(env.users, env.tutors, env.store, env.bus, env.policy, env.logger)

		_, err := handler.Handle(ctx, commands.PromoteToTutorCommand{
			UserID:     user.ID().String(),
			Subjects:   []string{"math"},
			HourlyRate: 55,
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeForbidden))
	})
}

func TestRecordSessionOutcomeHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("tier follows the session counters", func(t *testing.T) {
		env := newTestEnv()
		user := env.seedUser(t, "tutor@example.com", valueobjects.RoleTutor, entities.UserStatusActive, 30*24*time.Hour)
		tutor := env.seedTutor(t, user.ID())
		handler := handlers.NewRecordSessionOutcomeHandler(env.tutors, env.store, env.bus, env.policy, env.logger)

		score := env.policy.AdvancedMinScore
		var result *entities.Tutor
		for i := 0; i < env.policy.AdvancedMinSessions; i++ {
			raw, err := handler.Handle(ctx, commands.RecordSessionOutcomeCommand{
				TutorID: tutor.ID().String(),
				Outcome: "completed",
				Score:   &score,
			})
			require.NoError(t, err)
			result = raw.(*entities.Tutor)
		}

		assert.Equal(t, env.policy.AdvancedMinSessions, result.CompletedSessions())
		assert.Equal(t, valueobjects.TierAdvanced, result.Tier())
	})

	t.Run("cancellations count against the ratio", func(t *testing.T) {
		env := newTestEnv()
		user := env.seedUser(t, "tutor@example.com", valueobjects.RoleTutor, entities.UserStatusActive, 30*24*time.Hour)
		tutor := env.seedTutor(t, user.ID())
		handler := handlers.NewRecordSessionOutcomeHandler(env.tutors, env.store, env.bus, env.policy, env.logger)

		raw, err := handler.Handle(ctx, commands.RecordSessionOutcomeCommand{
			TutorID: tutor.ID().String(),
			Outcome: "cancelled",
		})
		require.NoError(t, err)

		result := raw.(*entities.Tutor)
		assert.Equal(t, 1, result.CancelledSessions())
		assert.Equal(t, valueobjects.TierStandard, result.Tier())
	})

	t.Run("unknown tutor maps to not found", func(t *testing.T) {
		env := newTestEnv()
		handler := handlers.NewRecordSessionOutcomeHandler(env.tutors, env.store, env.bus, env.policy, env.logger)

		_, err := handler.Handle(ctx, commands.RecordSessionOutcomeCommand{
			TutorID: valueobjects.NewTutorID().String(),
			Outcome: "completed",
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestChangeTutorStatusHandler(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv()
	user := env.seedUser(t, "tutor@example.com", valueobjects.RoleTutor, entities.UserStatusActive, 30*24*time.Hour)
	tutor := env.seedTutor(t, user.ID())
	handler := handlers.NewChangeTutorStatusHandler(env.tutors, env.store, env.bus, env.logger)

	result, err := handler.Handle(ctx, commands.ChangeTutorStatusCommand{
		TutorID: tutor.ID().String(),
		Status:  "suspended",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.TutorStatusSuspended, result.(*entities.Tutor).Status())

	_, err = handler.Handle(ctx, commands.ChangeTutorStatusCommand{
		TutorID: tutor.ID().String(),
		Status:  "pending",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidTransition(err))
}
