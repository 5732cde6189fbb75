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

// MatchingQueryHandler serves all matching request read queries
type MatchingQueryHandler struct {
	requestRepo ports.MatchingRequestRepository
	logger      *zap.Logger
}

// NewMatchingQueryHandler creates a new handler instance
func NewMatchingQueryHandler(requestRepo ports.MatchingRequestRepository, logger *zap.Logger) *MatchingQueryHandler {
	return &MatchingQueryHandler{requestRepo: requestRepo, logger: logger}
}

// Handle dispatches on the concrete query type
func (h *MatchingQueryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.GetMatchingRequestQuery:
		return h.getRequest(ctx, q)
	case queries.ListStudentRequestsQuery:
		return h.listStudentRequests(ctx, q)
	case queries.ListMatchingRequestsQuery:
		return h.listRequests(ctx, q)
	default:
		return nil, fmt.Errorf("unexpected query type %T", query)
	}
}

func (h *MatchingQueryHandler) getRequest(ctx context.Context, q queries.GetMatchingRequestQuery) (interface{}, error) {
	id, err := valueobjects.NewRequestIDFromString(q.RequestID)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "requestId", Message: err.Error()}})
	}

	request, err := h.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("matching request %s", q.RequestID))
	}

	return queries.NewMatchingRequestView(request), nil
}

func (h *MatchingQueryHandler) listStudentRequests(ctx context.Context, q queries.ListStudentRequestsQuery) (interface{}, error) {
	studentID, err := valueobjects.NewUserIDFromString(q.StudentID)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError([]pkgerrors.FieldViolation{{Field: "studentId", Message: err.Error()}})
	}

	page := pageFrom(q.Page, q.PageSize, "", false)
	result, err := h.requestRepo.FindByStudentID(ctx, studentID, page)
	if err != nil {
		return nil, err
	}

	views := make([]queries.MatchingRequestView, 0, len(result.Items))
	for _, request := range result.Items {
		views = append(views, queries.NewMatchingRequestView(request))
	}

	return queries.PagedView[queries.MatchingRequestView]{
		Items:    views,
		Total:    result.Total,
		Page:     page.Number,
		PageSize: page.Size,
	}, nil
}

func (h *MatchingQueryHandler) listRequests(ctx context.Context, q queries.ListMatchingRequestsQuery) (interface{}, error) {
	page := pageFrom(q.Page, q.PageSize, q.Sort, q.Desc)

	result, err := h.requestRepo.FindAll(ctx, page)
	if err != nil {
		return nil, err
	}

	views := make([]queries.MatchingRequestView, 0, len(result.Items))
	for _, request := range result.Items {
		views = append(views, queries.NewMatchingRequestView(request))
	}

	return queries.PagedView[queries.MatchingRequestView]{
		Items:    views,
		Total:    result.Total,
		Page:     page.Number,
		PageSize: page.Size,
	}, nil
}
