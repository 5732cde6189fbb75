package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tutormatch-backend/application/commands"
	"tutormatch-backend/application/commands/bus"
	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	pkgerrors "tutormatch-backend/pkg/errors"
)

const defaultExpirySweepLimit = 100

// CreateMatchingRequestHandler opens a matching request for a student
type CreateMatchingRequestHandler struct {
	userRepo    ports.UserRepository
	requestRepo ports.MatchingRequestRepository
	committer   *eventCommitter
	policy      *config.PolicyConfig
	logger      *zap.Logger
}

// NewCreateMatchingRequestHandler creates a new handler instance
func NewCreateMatchingRequestHandler(
	userRepo ports.UserRepository,
	requestRepo ports.MatchingRequestRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	policy *config.PolicyConfig,
	logger *zap.Logger,
) *CreateMatchingRequestHandler {
	return &CreateMatchingRequestHandler{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		committer:   newEventCommitter(eventStore, publisher, logger),
		policy:      policy,
		logger:      logger,
	}
}

// Handle executes the create matching request command
func (h *CreateMatchingRequestHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.CreateMatchingRequestCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	student, err := loadUser(ctx, h.userRepo, c.StudentID)
	if err != nil {
		return nil, err
	}
	if !student.IsActive() {
		return nil, pkgerrors.NewForbiddenError("only active accounts can open matching requests")
	}

	open, err := h.requestRepo.CountOpenByStudentID(ctx, student.ID())
	if err != nil {
		return nil, err
	}
	if open >= h.policy.MaxOpenRequestsPerStudent {
		return nil, pkgerrors.NewConflictError(
			fmt.Sprintf("student already has %d open requests, limit is %d", open, h.policy.MaxOpenRequestsPerStudent))
	}

	request, err := entities.NewMatchingRequest(entities.MatchingRequestProps{
		StudentID:     student.ID(),
		Subject:       c.Subject,
		BudgetPerHour: c.BudgetPerHour,
		Schedule:      c.Schedule,
		Notes:         c.Notes,
	}, h.policy)
	if err != nil {
		return nil, err
	}

	if err := h.requestRepo.Save(ctx, request); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, request); err != nil {
		return nil, err
	}

	h.logger.Info("matching request created",
		zap.String("request_id", request.ID().String()),
		zap.String("student_id", student.ID().String()),
		zap.String("subject", c.Subject))

	return request, nil
}

// AssignTutorHandler proposes a tutor for a pending request
type AssignTutorHandler struct {
	requestRepo ports.MatchingRequestRepository
	tutorRepo   ports.TutorRepository
	committer   *eventCommitter
	logger      *zap.Logger
}

// NewAssignTutorHandler creates a new handler instance
func NewAssignTutorHandler(
	requestRepo ports.MatchingRequestRepository,
	tutorRepo ports.TutorRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *AssignTutorHandler {
	return &AssignTutorHandler{
		requestRepo: requestRepo,
		tutorRepo:   tutorRepo,
		committer:   newEventCommitter(eventStore, publisher, logger),
		logger:      logger,
	}
}

// Handle executes the assign tutor command
func (h *AssignTutorHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.AssignTutorCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	request, err := loadRequest(ctx, h.requestRepo, c.RequestID)
	if err != nil {
		return nil, err
	}

	tutor, err := loadTutor(ctx, h.tutorRepo, c.TutorID)
	if err != nil {
		return nil, err
	}
	if !tutor.IsActive() {
		return nil, pkgerrors.NewConflictError("tutor is not accepting new students")
	}

	if err := request.AssignTutor(tutor.ID()); err != nil {
		return nil, err
	}

	if err := h.requestRepo.Save(ctx, request); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

// ConfirmMatchHandler confirms a matched request
type ConfirmMatchHandler struct {
	requestRepo ports.MatchingRequestRepository
	committer   *eventCommitter
	logger      *zap.Logger
}

// NewConfirmMatchHandler creates a new handler instance
func NewConfirmMatchHandler(
	requestRepo ports.MatchingRequestRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ConfirmMatchHandler {
	return &ConfirmMatchHandler{
		requestRepo: requestRepo,
		committer:   newEventCommitter(eventStore, publisher, logger),
		logger:      logger,
	}
}

// Handle executes the confirm match command
func (h *ConfirmMatchHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.ConfirmMatchCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	request, err := loadRequest(ctx, h.requestRepo, c.RequestID)
	if err != nil {
		return nil, err
	}

	if err := request.Confirm(); err != nil {
		return nil, err
	}

	if err := h.requestRepo.Save(ctx, request); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

// CancelMatchingRequestHandler cancels an open request
type CancelMatchingRequestHandler struct {
	requestRepo ports.MatchingRequestRepository
	committer   *eventCommitter
	logger      *zap.Logger
}

// NewCancelMatchingRequestHandler creates a new handler instance
func NewCancelMatchingRequestHandler(
	requestRepo ports.MatchingRequestRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *CancelMatchingRequestHandler {
	return &CancelMatchingRequestHandler{
		requestRepo: requestRepo,
		committer:   newEventCommitter(eventStore, publisher, logger),
		logger:      logger,
	}
}

// Handle executes the cancel matching request command
func (h *CancelMatchingRequestHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.CancelMatchingRequestCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	request, err := loadRequest(ctx, h.requestRepo, c.RequestID)
	if err != nil {
		return nil, err
	}

	if err := request.Cancel(c.Reason); err != nil {
		return nil, err
	}

	if err := h.requestRepo.Save(ctx, request); err != nil {
		return nil, err
	}

	if err := h.committer.Commit(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

// ExpirySweepResult reports how many requests an expiry sweep touched
type ExpirySweepResult struct {
	Expired int `json:"expired"`
}

// ExpireMatchingRequestsHandler sweeps pending requests past their TTL.
// Each request is expired and saved individually so one bad row cannot
// poison the whole sweep.
type ExpireMatchingRequestsHandler struct {
	requestRepo ports.MatchingRequestRepository
	committer   *eventCommitter
	policy      *config.PolicyConfig
	logger      *zap.Logger
}

// NewExpireMatchingRequestsHandler creates a new handler instance
func NewExpireMatchingRequestsHandler(
	requestRepo ports.MatchingRequestRepository,
	eventStore ports.EventStore,
	publisher ports.EventPublisher,
	policy *config.PolicyConfig,
	logger *zap.Logger,
) *ExpireMatchingRequestsHandler {
	return &ExpireMatchingRequestsHandler{
		requestRepo: requestRepo,
		committer:   newEventCommitter(eventStore, publisher, logger),
		policy:      policy,
		logger:      logger,
	}
}

// Handle executes the expiry sweep
func (h *ExpireMatchingRequestsHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.ExpireMatchingRequestsCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", cmd)
	}

	limit := c.Limit
	if limit <= 0 {
		limit = defaultExpirySweepLimit
	}

	cutoff := time.Now().Add(-h.policy.RequestTTL)
	stale, err := h.requestRepo.FindPendingCreatedBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, err
	}

	expired := 0
	for _, request := range stale {
		if err := request.Expire(); err != nil {
			// Raced with another transition; skip it
			continue
		}
		if err := h.requestRepo.Save(ctx, request); err != nil {
			h.logger.Error("failed to save expired request",
				zap.String("request_id", request.ID().String()),
				zap.Error(err))
			continue
		}
		if err := h.committer.Commit(ctx, request); err != nil {
			h.logger.Error("failed to commit expiry events",
				zap.String("request_id", request.ID().String()),
				zap.Error(err))
			continue
		}
		expired++
	}

	if expired > 0 {
		h.logger.Info("expired stale matching requests", zap.Int("count", expired))
	}

	return ExpirySweepResult{Expired: expired}, nil
}

// loadRequest fetches a request by raw ID string, mapping a miss to
// not-found
func loadRequest(ctx context.Context, repo ports.MatchingRequestRepository, rawID string) (*entities.MatchingRequest, error) {
	id, err := valueobjects.NewRequestIDFromString(rawID)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "requestId", Message: err.Error()}})
	}

	request, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("matching request %s", rawID))
	}
	return request, nil
}
