package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/application/queries"
	"tutormatch-backend/application/queries/bus"
	"tutormatch-backend/domain/core/valueobjects"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// UserQueryHandler serves all user read queries
type UserQueryHandler struct {
	userRepo ports.UserRepository
	logger   *zap.Logger
}

// NewUserQueryHandler creates a new handler instance
func NewUserQueryHandler(userRepo ports.UserRepository, logger *zap.Logger) *UserQueryHandler {
	return &UserQueryHandler{userRepo: userRepo, logger: logger}
}

// Handle dispatches on the concrete query type
func (h *UserQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.GetUserQuery:
		return h.getUser(ctx, q)
	case queries.GetUserByEmailQuery:
		return h.getUserByEmail(ctx, q)
	case queries.ListUsersQuery:
		return h.listUsers(ctx, q)
	default:
		return nil, fmt.Errorf("unexpected query type %T", query)
	}
}

func (h *UserQueryHandler) getUser(ctx context.Context, q queries.GetUserQuery) (interface{}, error) {
	id, err := valueobjects.NewUserIDFromString(q.UserID)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "userId", Message: err.Error()}})
	}

	user, err := h.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("user %s", q.UserID))
	}

	return queries.NewUserView(user), nil
}

func (h *UserQueryHandler) getUserByEmail(ctx context.Context, q queries.GetUserByEmailQuery) (interface{}, error) {
	email, err := valueobjects.NewEmail(q.Email)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "email", Message: err.Error()}})
	}

	user, err := h.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("user with email %s", email))
	}

	return queries.NewUserView(user), nil
}

func (h *UserQueryHandler) listUsers(ctx context.Context, q queries.ListUsersQuery) (interface{}, error) {
	page := pageFrom(q.Page, q.PageSize, q.Sort, q.Desc)

	result, err := h.userRepo.FindAll(ctx, page)
	if err != nil {
		return nil, err
	}

	views := make([]queries.UserView, 0, len(result.Items))
	for _, user := range result.Items {
		views = append(views, queries.NewUserView(user))
	}

	return queries.PagedView[queries.UserView]{
		Items:    views,
		Total:    result.Total,
		Page:     page.Number,
		PageSize: page.Size,
	}, nil
}
