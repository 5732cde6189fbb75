package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutormatch-backend/application/commands"
	"tutormatch-backend/application/commands/handlers"
	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/events"
	pkgerrors "tutormatch-backend/pkg/errors"
)

func TestRegisterUserHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a pending student and commits the created event", func(t *testing.T) {
		env := newTestEnv()
		handler := handlers.NewRegisterUserHandler(env.users, env.store, env.bus, env.policy, env.logger)

		result, err := handler.Handle(ctx, commands.RegisterUserCommand{
			Email:       "ada@example.com",
			DisplayName: "Ada",
			Timezone:    "UTC",
		})
		require.NoError(t, err)

		user, ok := result.(*entities.User)
		require.True(t, ok)
		assert.Equal(t, entities.UserStatusPending, user.Status())
		assert.Equal(t, valueobjects.RoleStudent, user.Role())
		assert.Empty(t, user.GetUncommittedEvents())

		stored, err := env.store.LoadByAggregate(ctx, user.ID().String())
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, ports.PublishStatusPublished, stored[0].PublishStatus)
	})

	t.Run("rejects a duplicate email with a conflict", func(t *testing.T) {
		env := newTestEnv()
		env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)
		handler := handlers.NewRegisterUserHandler(env.users, env.store, env.bus, env.policy, env.logger)

		_, err := handler.Handle(ctx, commands.RegisterUserCommand{
			Email:       "ADA@example.com",
			DisplayName: "Ada Again",
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))
	})
}

func TestChangeUserStatusHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("activates a pending account", func(t *testing.T) {
		env := newTestEnv()
		user := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusPending, time.Hour)
		handler := handlers.NewChangeUserStatusHandler(env.users, env.store, env.bus, env.logger)

		result, err := handler.Handle(ctx, commands.ChangeUserStatusCommand{
			UserID: user.ID().String(),
			Status: "active",
		})
		require.NoError(t, err)
		assert.Equal(t, entities.UserStatusActive, result.(*entities.User).Status())
	})

	t.Run("reactivation clears the failed-login counter", func(t *testing.T) {
		env := newTestEnv()
		user := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)

		failedLogins := handlers.NewRecordFailedLoginHandler(env.users, env.store, env.bus, env.policy, env.logger)
		for i := 0; i < env.policy.MaxFailedLoginAttempts; i++ {
			_, err := failedLogins.Handle(ctx, commands.RecordFailedLoginCommand{UserID: user.ID().String()})
			require.NoError(t, err)
		}

		handler := handlers.NewChangeUserStatusHandler(env.users, env.store, env.bus, env.logger)
		result, err := handler.Handle(ctx, commands.ChangeUserStatusCommand{
			UserID: user.ID().String(),
			Status: "active",
		})
		require.NoError(t, err)

		reactivated := result.(*entities.User)
		assert.Equal(t, entities.UserStatusActive, reactivated.Status())
		assert.Zero(t, reactivated.FailedLogins())
	})

	t.Run("rejects an illegal transition", func(t *testing.T) {
		env := newTestEnv()
		user := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusDeactivated, time.Hour)
		handler := handlers.NewChangeUserStatusHandler(env.users, env.store, env.bus, env.logger)

		_, err := handler.Handle(ctx, commands.ChangeUserStatusCommand{
			UserID: user.ID().String(),
			Status: "active",
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsInvalidTransition(err))
	})

	t.Run("unknown user maps to not found", func(t *testing.T) {
		env := newTestEnv()
		handler := handlers.NewChangeUserStatusHandler(env.users, env.store, env.bus, env.logger)

		_, err := handler.Handle(ctx, commands.ChangeUserStatusCommand{
			UserID: valueobjects.NewUserID().String(),
			Status: "active",
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestRecordFailedLoginHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("locks the account at the policy threshold", func(t *testing.T) {
		env := newTestEnv()
		user := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)
		handler := handlers.NewRecordFailedLoginHandler(env.users, env.store, env.bus, env.policy, env.logger)

		var result handlers.FailedLoginResult
		for i := 0; i < env.policy.MaxFailedLoginAttempts; i++ {
			raw, err := handler.Handle(ctx, commands.RecordFailedLoginCommand{UserID: user.ID().String()})
			require.NoError(t, err)
			result = raw.(handlers.FailedLoginResult)
		}

		assert.Equal(t, env.policy.MaxFailedLoginAttempts, result.FailedAttempts)
		assert.True(t, result.Locked)

		reloaded, err := env.users.FindByID(ctx, user.ID())
		require.NoError(t, err)
		require.NotNil(t, reloaded)
		assert.Equal(t, entities.UserStatusSuspended, reloaded.Status())
	})

	t.Run("stays unlocked below the threshold", func(t *testing.T) {
		env := newTestEnv()
		user := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)
		handler := handlers.NewRecordFailedLoginHandler(env.users, env.store, env.bus, env.policy, env.logger)

		raw, err := handler.Handle(ctx, commands.RecordFailedLoginCommand{UserID: user.ID().String()})
		require.NoError(t, err)

		result := raw.(handlers.FailedLoginResult)
		assert.Equal(t, 1, result.FailedAttempts)
		assert.False(t, result.Locked)

		// The counter bump itself lands in the outbox
		stored, err := env.store.LoadByAggregate(ctx, user.ID().String())
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, events.EventUserUpdated, stored[0].EventType)
		assert.Equal(t, ports.PublishStatusPublished, stored[0].PublishStatus)
	})
}

func TestChangeUserRoleHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects an upgrade for a young account", func(t *testing.T) {
		env := newTestEnv()
		user := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, time.Hour)
		handler := handlers.NewChangeUserRoleHandler(env.users, env.store, env.bus, env.policy, env.logger)

		_, err := handler.Handle(ctx, commands.ChangeUserRoleCommand{
			UserID: user.ID().String(),
			Role:   "tutor",
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeForbidden))
	})

	t.Run("upgrades a mature active account", func(t *testing.T) {
		env := newTestEnv()
		age := time.Duration(env.policy.RoleUpgradeMinAccountAgeDays+1) * 24 * time.Hour
		user := env.seedUser(t, "ada@example.com", valueobjects.RoleStudent, entities.UserStatusActive, age)
		handler := handlers.NewChangeUserRoleHandler(env.users, env.store, env.bus, env.policy, env.logger)

		result, err := handler.Handle(ctx, commands.ChangeUserRoleCommand{
			UserID: user.ID().String(),
			Role:   "tutor",
		})
		require.NoError(t, err)
		assert.Equal(t, valueobjects.RoleTutor, result.(*entities.User).Role())
	})
}
