package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutormatch-backend/application/commands"
	cmdbus "tutormatch-backend/application/commands/bus"
	cmdhandlers "tutormatch-backend/application/commands/handlers"
	"tutormatch-backend/application/ports"
	"tutormatch-backend/application/queries"
	querybus "tutormatch-backend/application/queries/bus"
	queryhandlers "tutormatch-backend/application/queries/handlers"
	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/events"
	"tutormatch-backend/infrastructure/messaging/inprocess"
	"tutormatch-backend/infrastructure/persistence/memory"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// recordingHandler collects every event type delivered through the bus
type recordingHandler struct {
	mu    sync.Mutex
	types []string
}

func (h *recordingHandler) Handle(_ context.Context, event events.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.types = append(h.types, event.GetEventType())
	return nil
}

func (h *recordingHandler) CanHandle(string) bool { return true }

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.types))
	copy(out, h.types)
	return out
}

// stack wires the full application on the in-memory driver
type stack struct {
	commandBus *cmdbus.CommandBus
	queryBus   *querybus.QueryBus
	users      *memory.UserRepository
	tutors     *memory.TutorRepository
	requests   *memory.MatchingRequestRepository
	store      *memory.EventStore
	recorder   *recordingHandler
}

func newStack(t *testing.T) *stack {
	t.Helper()

	logger := zap.NewNop()
	policy := config.DefaultPolicyConfig()

	users := memory.NewUserRepository()
	tutors := memory.NewTutorRepository()
	requests := memory.NewMatchingRequestRepository()
	store := memory.NewEventStore()

	eventBus := inprocess.NewBus(logger)
	recorder := &recordingHandler{}
	for _, eventType := range []string{
		events.EventUserCreated,
		events.EventUserStatusChanged,
		events.EventUserRoleChanged,
		events.EventTutorCreated,
		events.EventTutorStatusChanged,
		events.EventMatchingRequestCreated,
		events.EventMatchingTutorAssigned,
		events.EventMatchingRequestConfirmed,
	} {
		require.NoError(t, eventBus.Subscribe(eventType, recorder))
	}

	commandBus := cmdbus.NewCommandBus(
		cmdbus.ValidationMiddleware(),
		cmdbus.LoggingMiddleware(logger),
	)
	registrations := []struct {
		cmd     cmdbus.Command
		handler cmdbus.CommandHandler
	}{
		{commands.RegisterUserCommand{}, cmdhandlers.NewRegisterUserHandler(users, store, eventBus, policy, logger)},
		{commands.ChangeUserStatusCommand{}, cmdhandlers.NewChangeUserStatusHandler(users, store, eventBus, logger)},
		{commands.PromoteToTutorCommand{}, cmdhandlers.NewPromoteToTutorHandler(users, tutors, store, eventBus, policy, logger)},
		{commands.ChangeTutorStatusCommand{}, cmdhandlers.NewChangeTutorStatusHandler(tutors, store, eventBus, logger)},
		{commands.CreateMatchingRequestCommand{}, cmdhandlers.NewCreateMatchingRequestHandler(users, requests, store, eventBus, policy, logger)},
		{commands.AssignTutorCommand{}, cmdhandlers.NewAssignTutorHandler(requests, tutors, store, eventBus, logger)},
		{commands.ConfirmMatchCommand{}, cmdhandlers.NewConfirmMatchHandler(requests, store, eventBus, logger)},
	}
	for _, r := range registrations {
		require.NoError(t, commandBus.Register(r.cmd, r.handler))
	}

	queryBus := querybus.NewQueryBus()
	userQueries := queryhandlers.NewUserQueryHandler(users, logger)
	matchingQueries := queryhandlers.NewMatchingQueryHandler(requests, logger)
	require.NoError(t, queryBus.Register(queries.GetUserQuery{}, userQueries))
	require.NoError(t, queryBus.Register(queries.GetMatchingRequestQuery{}, matchingQueries))

	return &stack{
		commandBus: commandBus,
		queryBus:   queryBus,
		users:      users,
		tutors:     tutors,
		requests:   requests,
		store:      store,
		recorder:   recorder,
	}
}

// seedMatureStudent stores an active student account old enough to clear
// the role-upgrade age gate
func (s *stack) seedMatureStudent(t *testing.T, email string) *entities.User {
	t.Helper()

	addr, err := valueobjects.NewEmail(email)
	require.NoError(t, err)

	now := time.Now()
	user := entities.ReconstructUser(
		valueobjects.NewUserID(), addr, "Grace Okafor", "UTC",
		valueobjects.RoleStudent, entities.UserStatusActive, 0,
		now.Add(-30*24*time.Hour), now, 1,
	)
	require.NoError(t, s.users.Save(context.Background(), user))
	return user
}

func TestMatchingFlow(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	// Register and activate the student through the command bus.
	result, err := s.commandBus.Send(ctx, commands.RegisterUserCommand{
		Email:       "grace@example.com",
		DisplayName: "Grace Okafor",
		Timezone:    "Europe/Berlin",
	})
	require.NoError(t, err)
	student, ok := result.(*entities.User)
	require.True(t, ok)
	assert.Equal(t, entities.UserStatusPending, student.Status())

	_, err = s.commandBus.Send(ctx, commands.ChangeUserStatusCommand{
		UserID: student.ID().String(),
		Status: "active",
	})
	require.NoError(t, err)

	// A freshly registered account cannot take the tutor role yet.
	_, err = s.commandBus.Send(ctx, commands.PromoteToTutorCommand{
		UserID:     student.ID().String(),
		Subjects:   []string{"math"},
		HourlyRate: 45,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeForbidden))

	// Promote a mature account instead.
	mentor := s.seedMatureStudent(t, "amir@example.com")
	result, err = s.commandBus.Send(ctx, commands.PromoteToTutorCommand{
		UserID:     mentor.ID().String(),
		Subjects:   []string{"math", "physics"},
		HourlyRate: 55,
		Bio:        "Ten years of classroom teaching.",
	})
	require.NoError(t, err)
	tutor, ok := result.(*entities.Tutor)
	require.True(t, ok)
	assert.Equal(t, valueobjects.TierStandard, tutor.Tier())

	// New profiles start pending and cannot take students until activated.
	_, err = s.commandBus.Send(ctx, commands.ChangeTutorStatusCommand{
		TutorID: tutor.ID().String(),
		Status:  "active",
	})
	require.NoError(t, err)

	// The student opens a request; the tutor is assigned and confirmed.
	result, err = s.commandBus.Send(ctx, commands.CreateMatchingRequestCommand{
		StudentID:     student.ID().String(),
		Subject:       "math",
		BudgetPerHour: 60,
		Schedule:      "weekday evenings",
	})
	require.NoError(t, err)
	request, ok := result.(*entities.MatchingRequest)
	require.True(t, ok)
	assert.Equal(t, entities.RequestStatusPending, request.Status())

	_, err = s.commandBus.Send(ctx, commands.AssignTutorCommand{
		RequestID: request.ID().String(),
		TutorID:   tutor.ID().String(),
	})
	require.NoError(t, err)

	_, err = s.commandBus.Send(ctx, commands.ConfirmMatchCommand{
		RequestID: request.ID().String(),
	})
	require.NoError(t, err)

	t.Run("read model reflects the confirmed match", func(t *testing.T) {
		answer, err := s.queryBus.Ask(ctx, queries.GetMatchingRequestQuery{
			RequestID: request.ID().String(),
		})
		require.NoError(t, err)
		view, ok := answer.(queries.MatchingRequestView)
		require.True(t, ok)
		assert.Equal(t, string(entities.RequestStatusConfirmed), view.Status)
		assert.Equal(t, tutor.ID().String(), view.TutorID)
		assert.Equal(t, student.ID().String(), view.StudentID)

		answer, err = s.queryBus.Ask(ctx, queries.GetUserQuery{UserID: mentor.ID().String()})
		require.NoError(t, err)
		userView, ok := answer.(queries.UserView)
		require.True(t, ok)
		assert.Equal(t, "tutor", userView.Role)
	})

	t.Run("outbox holds the published request history", func(t *testing.T) {
		rows, err := s.store.LoadByAggregate(ctx, request.ID().String())
		require.NoError(t, err)
		require.Len(t, rows, 3)

		wantTypes := []string{
			events.EventMatchingRequestCreated,
			events.EventMatchingTutorAssigned,
			events.EventMatchingRequestConfirmed,
		}
		for i, row := range rows {
			assert.Equal(t, wantTypes[i], row.EventType)
			assert.Equal(t, ports.PublishStatusPublished, row.PublishStatus)
		}

		pending, err := s.store.LoadPending(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("events reached the bus in order", func(t *testing.T) {
		assert.Equal(t, []string{
			events.EventUserCreated,
			events.EventUserStatusChanged,
			events.EventUserRoleChanged,
			events.EventTutorCreated,
			events.EventTutorStatusChanged,
			events.EventMatchingRequestCreated,
			events.EventMatchingTutorAssigned,
			events.EventMatchingRequestConfirmed,
		}, s.recorder.seen())
	})
}
