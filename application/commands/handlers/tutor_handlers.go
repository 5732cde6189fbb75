package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tutormatch-backend/application/commands"
	"tutormatch-backend/application/commands/bus"
	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/rules"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// PromoteToTutorHandler upgrades an eligible student and opens the tutor
// profile in one operation
type PromoteToTutorHandler struct {
	userRepo  ports.UserRepository
	tutorRepo ports.TutorRepository
	committer *eventCommitter
	policy    *config.PolicyConfig
	logger    *zap.Logger
}

// NewPromoteToTutorHandler creates a new handler instance
func NewPromoteToTutorHandler(
	userRepo ports.UserRepository,
	tutorRepo ports.TutorRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	policy *config.PolicyConfig,
	logger *zap.Logger,
) *PromoteToTutorHandler {
	return &PromoteToTutorHandler{
		userRepo:  userRepo,
		tutorRepo: tutorRepo,
		committer: newEventCommitter(eventStore, publisher, logger),
		policy:    policy,
		logger:    logger,
	}
}

// Handle executes the promote to tutor command
func (h *PromoteToTutorHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.PromoteToTutorCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	user, err := loadUser(ctx, h.userRepo, c.UserID)
	if err != nil {
		return nil, err
	}

	existing, err := h.tutorRepo.FindByUserID(ctx, user.ID())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.NewConflictError("user already has a tutor profile")
	}

	if !rules.CanTransitionRole(user.Role(), valueobjects.RoleTutor, rules.SnapshotUser(user), h.policy) {
		return nil, pkgerrors.NewForbiddenError("account is not eligible for promotion to tutor")
	}

	if err := user.ChangeRole(valueobjects.RoleTutor); err != nil {
		return nil, err
	}

	tutor, err := entities.NewTutor(entities.TutorProps{
		UserID:     user.ID(),
		Subjects:   c.Subjects,
		HourlyRate: c.HourlyRate,
		Bio:        c.Bio,
	}, h.policy)
	if err != nil {
		return nil, err
	}

	if err := h.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	if err := h.tutorRepo.Save(ctx, tutor); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, user, tutor); err != nil {
		return nil, err
	}

	h.logger.Info("user promoted to tutor",
		zap.String("user_id", user.ID().String()),
		zap.String("tutor_id", tutor.ID().String()))

	return tutor, nil
}

// UpdateTutorProfileHandler handles partial tutor profile updates
type UpdateTutorProfileHandler struct {
	tutorRepo ports.TutorRepository
	committer *eventCommitter
	policy    *config.PolicyConfig
	logger    *zap.Logger
}

// NewUpdateTutorProfileHandler creates a new handler instance
func NewUpdateTutorProfileHandler(
	tutorRepo ports.TutorRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	policy *config.PolicyConfig,
	logger *zap.Logger,
) *UpdateTutorProfileHandler {
	return &UpdateTutorProfileHandler{
		tutorRepo: tutorRepo,
		committer: newEventCommitter(eventStore, publisher, logger),
		policy:    policy,
		logger:    logger,
	}
}

// Handle executes the update tutor profile command
func (h *UpdateTutorProfileHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.UpdateTutorProfileCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	tutor, err := loadTutor(ctx, h.tutorRepo, c.TutorID)
	if err != nil {
		return nil, err
	}

	if err := tutor.UpdateProfile(entities.TutorUpdate{
		Subjects:   c.Subjects,
		HourlyRate: c.HourlyRate,
		Bio:        c.Bio,
	}, c.ActorID, h.policy); err != nil {
		return nil, err
	}

	if len(tutor.GetUncommittedEvents()) == 0 {
		return tutor, nil
	}

	if err := h.tutorRepo.Save(ctx, tutor); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, tutor); err != nil {
		return nil, err
	}

	return tutor, nil
}

// RecordSessionOutcomeHandler records a session outcome and re-evaluates the
// tutor's tier from the updated counters
type RecordSessionOutcomeHandler struct {
	tutorRepo ports.TutorRepository
	committer *eventCommitter
	policy    *config.PolicyConfig
	logger    *zap.Logger
}

// NewRecordSessionOutcomeHandler creates a new handler instance
func NewRecordSessionOutcomeHandler(
	tutorRepo ports.TutorRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	policy *config.PolicyConfig,
	logger *zap.Logger,
) *RecordSessionOutcomeHandler {
	return &RecordSessionOutcomeHandler{
		tutorRepo: tutorRepo,
		committer: newEventCommitter(eventStore, publisher, logger),
		policy:    policy,
		logger:    logger,
	}
}

// Handle executes the record session outcome command
func (h *RecordSessionOutcomeHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.RecordSessionOutcomeCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	tutor, err := loadTutor(ctx, h.tutorRepo, c.TutorID)
	if err != nil {
		return nil, err
	}

	switch c.Outcome {
	case "completed":
		err = tutor.RecordSessionCompleted()
	case "cancelled":
		err = tutor.RecordCancellation()
	default:
		err = pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "outcome", Message: "must be one of: completed cancelled"}})
	}
	if err != nil {
		return nil, err
	}

	if c.Score != nil {
		if err := tutor.SetReputationScore(*c.Score); err != nil {
			return nil, err
		}
	}

	tier := rules.TierFor(tutor.CompletedSessions(), tutor.ReputationScore(), tutor.CancellationRatio(), h.policy)
	tutor.ApplyTier(tier)

	if err := h.tutorRepo.Save(ctx, tutor); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, tutor); err != nil {
		return nil, err
	}

	return tutor, nil
}

// ChangeTutorStatusHandler moves a tutor along the status transition table
type ChangeTutorStatusHandler struct {
	tutorRepo ports.TutorRepository
	committer *eventCommitter
	logger    *zap.Logger
}

// NewChangeTutorStatusHandler creates a new handler instance
func NewChangeTutorStatusHandler(
	tutorRepo ports.TutorRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ChangeTutorStatusHandler {
	return &ChangeTutorStatusHandler{
		tutorRepo: tutorRepo,
		committer: newEventCommitter(eventStore, publisher, logger),
		logger:    logger,
	}
}

// Handle executes the change tutor status command
func (h *ChangeTutorStatusHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.ChangeTutorStatusCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	tutor, err := loadTutor(ctx, h.tutorRepo, c.TutorID)
	if err != nil {
		return nil, err
	}

	if err := tutor.TransitionTo(entities.TutorStatus(c.Status)); err != nil {
		return nil, err
	}

	if err := h.tutorRepo.Save(ctx, tutor); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, tutor); err != nil {
		return nil, err
	}

	return tutor, nil
}

// loadTutor fetches a tutor by raw ID string, mapping a miss to not-found
func loadTutor(ctx context.Context, repo ports.TutorRepository, rawID string) (*entities.Tutor, error) {
	id, err := valueobjects.NewTutorIDFromString(rawID)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "tutorId", Message: err.Error()}})
	}

	tutor, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tutor == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("tutor %s", rawID))
	}
	return tutor, nil
}
