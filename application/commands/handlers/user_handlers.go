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

// RegisterUserHandler handles user registration
type RegisterUserHandler struct {
	userRepo  ports.UserRepository
	committer *eventCommitter
	policy    *config.PolicyConfig
	logger    *zap.Logger
}

// NewRegisterUserHandler creates a new handler instance
func NewRegisterUserHandler(
	userRepo ports.UserRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	policy *config.PolicyConfig,
	logger *zap.Logger,
) *RegisterUserHandler {
	return &RegisterUserHandler{
		userRepo:  userRepo,
		committer: newEventCommitter(eventStore, publisher, logger),
		policy:    policy,
		logger:    logger,
	}
}

// Handle executes the register user command
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.RegisterUserCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	user, err := entities.NewUser(entities.UserProps{
		Email:       c.Email,
		DisplayName: c.DisplayName,
		Timezone:    c.Timezone,
		Role:        c.Role,
	}, h.policy)
	if err != nil {
		return nil, err
	}

	// Best-effort early check; the repository enforces uniqueness on Save
	existing, err := h.userRepo.FindByEmail(ctx, user.Email())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.NewConflictError(fmt.Sprintf("email %s is already registered", user.Email()))
	}

	if err := h.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, user); err != nil {
		return nil, err
	}

	h.logger.Info("user registered",
		zap.String("user_id", user.ID().String()),
		zap.String("role", user.Role().String()))

	return user, nil
}

// UpdateUserProfileHandler handles partial profile updates
type UpdateUserProfileHandler struct {
	userRepo  ports.UserRepository
	committer *eventCommitter
	policy    *config.PolicyConfig
	logger    *zap.Logger
}

// NewUpdateUserProfileHandler creates a new handler instance
func NewUpdateUserProfileHandler(
	userRepo ports.UserRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	policy *config.PolicyConfig,
	logger *zap.Logger,
) *UpdateUserProfileHandler {
	return &UpdateUserProfileHandler{
		userRepo:  userRepo,
		committer: newEventCommitter(eventStore, publisher, logger),
		policy:    policy,
		logger:    logger,
	}
}

// Handle executes the update user profile command
func (h *UpdateUserProfileHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.UpdateUserProfileCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	user, err := loadUser(ctx, h.userRepo, c.UserID)
	if err != nil {
		return nil, err
	}

	if c.Email != nil {
		email, err := valueobjects.NewEmail(*c.Email)
		if err != nil {
			return nil, pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "email", Message: err.Error()}})
		}
		other, err := h.userRepo.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if other != nil && !other.ID().Equals(user.ID()) {
			return nil, pkgerrors.NewConflictError(fmt.Sprintf("email %s is already registered", email))
		}
	}

	if err := user.UpdateProfile(entities.UserUpdate{
		Email:       c.Email,
		DisplayName: c.DisplayName,
		Timezone:    c.Timezone,
	}, c.ActorID, h.policy); err != nil {
		return nil, err
	}

	// No-op updates produce no events and need no save
	if len(user.GetUncommittedEvents()) == 0 {
		return user, nil
	}

	if err := h.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ChangeUserStatusHandler moves a user along the status transition table
type ChangeUserStatusHandler struct {
	userRepo  ports.UserRepository
	committer *eventCommitter
	logger    *zap.Logger
}

// NewChangeUserStatusHandler creates a new handler instance
func NewChangeUserStatusHandler(
	userRepo ports.UserRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ChangeUserStatusHandler {
	return &ChangeUserStatusHandler{
		userRepo:  userRepo,
		committer: newEventCommitter(eventStore, publisher, logger),
		logger:    logger,
	}
}

// Handle executes the change user status command
func (h *ChangeUserStatusHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.ChangeUserStatusCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	user, err := loadUser(ctx, h.userRepo, c.UserID)
	if err != nil {
		return nil, err
	}

	if err := user.TransitionTo(entities.UserStatus(c.Status)); err != nil {
		return nil, err
	}
	if user.IsActive() {
		// reactivation forgives earlier failed logins
		user.ResetFailedLogins()
	}

	if err := h.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, user); err != nil {
		return nil, err
	}

	h.logger.Info("user status changed",
		zap.String("user_id", user.ID().String()),
		zap.String("status", c.Status))

	return user, nil
}

// ChangeUserRoleHandler changes a user's role subject to eligibility rules
type ChangeUserRoleHandler struct {
	userRepo  ports.UserRepository
	committer *eventCommitter
	policy    *config.PolicyConfig
	logger    *zap.Logger
}

// NewChangeUserRoleHandler creates a new handler instance
func NewChangeUserRoleHandler(
	userRepo ports.UserRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	policy *config.PolicyConfig,
	logger *zap.Logger,
) *ChangeUserRoleHandler {
	return &ChangeUserRoleHandler{
		userRepo:  userRepo,
		committer: newEventCommitter(eventStore, publisher, logger),
		policy:    policy,
		logger:    logger,
	}
}

// Handle executes the change user role command
func (h *ChangeUserRoleHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.ChangeUserRoleCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	user, err := loadUser(ctx, h.userRepo, c.UserID)
	if err != nil {
		return nil, err
	}

	target, err := valueobjects.ParseRole(c.Role)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "role", Message: err.Error()}})
	}

	if !rules.CanTransitionRole(user.Role(), target, rules.SnapshotUser(user), h.policy) {
		return nil, pkgerrors.NewForbiddenError("account is not eligible for this role change")
	}

	if err := user.ChangeRole(target); err != nil {
		return nil, err
	}

	if err := h.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// FailedLoginResult reports the outcome of a failed-login record
type FailedLoginResult struct {
	FailedAttempts int  `json:"failed_attempts"`
	Locked         bool `json:"locked"`
}

// RecordFailedLoginHandler bumps the failed-login counter and locks the
// account at the policy threshold
type RecordFailedLoginHandler struct {
	userRepo  ports.UserRepository
	committer *eventCommitter
	policy    *config.PolicyConfig
	logger    *zap.Logger
}

// NewRecordFailedLoginHandler creates a new handler instance
func NewRecordFailedLoginHandler(
	userRepo ports.UserRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	policy *config.PolicyConfig,
	logger *zap.Logger,
) *RecordFailedLoginHandler {
	return &RecordFailedLoginHandler{
		userRepo:  userRepo,
		committer: newEventCommitter(eventStore, publisher, logger),
		policy:    policy,
		logger:    logger,
	}
}

// Handle executes the record failed login command
func (h *RecordFailedLoginHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.RecordFailedLoginCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	user, err := loadUser(ctx, h.userRepo, c.UserID)
	if err != nil {
		return nil, err
	}

	attempts := user.RecordFailedLogin()
	locked := false

	if rules.ShouldLockAccount(rules.SnapshotUser(user), attempts, h.policy) && user.IsActive() {
		if err := user.Lock(); err != nil {
			return nil, err
		}
		locked = true
		h.logger.Warn("account locked after failed logins",
			zap.String("user_id", user.ID().String()),
			zap.Int("attempts", attempts))
	}

	if err := h.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, user); err != nil {
		return nil, err
	}

	return FailedLoginResult{FailedAttempts: attempts, Locked: locked}, nil
}

// loadUser fetches a user by raw ID string, mapping a miss to not-found
func loadUser(ctx context.Context, repo ports.UserRepository, rawID string) (*entities.User, error) {
	id, err := valueobjects.NewUserIDFromString(rawID)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "userId", Message: err.Error()}})
	}

	user, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("user %s", rawID))
	}
	return user, nil
}
