package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/application/queries"
	"tutormatch-backend/application/queries/bus"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// TutorQueryHandler serves all tutor read queries
type TutorQueryHandler struct {
	tutorRepo ports.TutorRepository
	logger    *zap.Logger
}

// NewTutorQueryHandler creates a new handler instance
func NewTutorQueryHandler(tutorRepo ports.TutorRepository, logger *zap.Logger) *TutorQueryHandler {
	return &TutorQueryHandler{tutorRepo: tutorRepo, logger: logger}
}

// Handle dispatches on the concrete query type
func (h *TutorQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.GetTutorQuery:
		return h.getTutor(ctx, q)
	case queries.GetTutorByUserIDQuery:
		return h.getTutorByUserID(ctx, q)
	case queries.ListTutorsQuery:
		return h.listTutors(ctx, q)
	default:
		return nil, fmt.Errorf("unexpected query type %T", query)
	}
}

func (h *TutorQueryHandler) getTutor(ctx context.Context, q queries.GetTutorQuery) (interface{}, error) {
	id, err := valueobjects.NewTutorIDFromString(q.TutorID)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "tutorId", Message: err.Error()}})
	}

	tutor, err := h.tutorRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tutor == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("tutor %s", q.TutorID))
	}

	return queries.NewTutorView(tutor), nil
}

func (h *TutorQueryHandler) getTutorByUserID(ctx context.Context, q queries.GetTutorByUserIDQuery) (interface{}, error) {
	userID, err := valueobjects.NewUserIDFromString(q.UserID)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "userId", Message: err.Error()}})
	}

	tutor, err := h.tutorRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tutor == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("tutor profile for user %s", q.UserID))
	}

	return queries.NewTutorView(tutor), nil
}

func (h *TutorQueryHandler) listTutors(ctx context.Context, q queries.ListTutorsQuery) (interface{}, error) {
	page := pageFrom(q.Page, q.PageSize, q.Sort, q.Desc)

	var (
		result ports.PagedResult[*entities.Tutor]
		err    error
	)
	if q.Subject != "" {
		result, err = h.tutorRepo.FindBySubject(ctx, q.Subject, page)
	} else {
		result, err = h.tutorRepo.FindAll(ctx, page)
	}
	if err != nil {
		return nil, err
	}

	views := make([]queries.TutorView, 0, len(result.Items))
	for _, tutor := range result.Items {
		views = append(views, queries.NewTutorView(tutor))
	}

	return queries.PagedView[queries.TutorView]{
		Items:    views,
		Total:    result.Total,
		Page:     page.Number,
		PageSize: page.Size,
	}, nil
}
