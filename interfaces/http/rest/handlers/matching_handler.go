package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tutormatch-backend/application/commands"
	"tutormatch-backend/application/commands/bus"
	cmdhandlers "tutormatch-backend/application/commands/handlers"
	"tutormatch-backend/application/queries"
	querybus "tutormatch-backend/application/queries/bus"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/pkg/common"
)

// MatchingHandler handles matching-request HTTP requests
type MatchingHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewMatchingHandler creates a new matching handler
func NewMatchingHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *MatchingHandler {
	return &MatchingHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// CreateRequest handles POST /matching-requests
func (h *MatchingHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateMatchingRequestCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}
	if cmd.StudentID == "" {
		cmd.StudentID = actorID(r)
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	request := result.(*entities.MatchingRequest)
	common.RespondJSON(w, http.StatusCreated, queries.NewMatchingRequestView(request))
}

// GetRequest handles GET /matching-requests/{requestID}
func (h *MatchingHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	if _, err := uuid.Parse(requestID); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request ID format")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetMatchingRequestQuery{RequestID: requestID})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ListRequests handles GET /matching-requests with an optional student filter
func (h *MatchingHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	params := common.ExtractPaginationParams(r)

	if studentID := r.URL.Query().Get("student_id"); studentID != "" {
		result, err := h.queryBus.Ask(r.Context(), queries.ListStudentRequestsQuery{
			StudentID: studentID,
			Page:      params.Page,
			PageSize:  params.PageSize,
		})
		if err != nil {
			respondDomainError(w, h.logger, err)
			return
		}
		paged := result.(queries.PagedView[queries.MatchingRequestView])
		common.RespondWithMeta(w, http.StatusOK, paged.Items, &common.MetaInfo{
			Pagination: common.BuildPaginationMeta(paged.Page, paged.PageSize, paged.Total),
		})
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListMatchingRequestsQuery{
		Page:     params.Page,
		PageSize: params.PageSize,
		Sort:     params.Sort,
		Desc:     params.Order == "desc",
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	paged := result.(queries.PagedView[queries.MatchingRequestView])
	common.RespondWithMeta(w, http.StatusOK, paged.Items, &common.MetaInfo{
		Pagination: common.BuildPaginationMeta(paged.Page, paged.PageSize, paged.Total),
	})
}

// AssignTutor handles POST /matching-requests/{requestID}/assign
func (h *MatchingHandler) AssignTutor(w http.ResponseWriter, r *http.Request) {
	var cmd commands.AssignTutorCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}
	cmd.RequestID = chi.URLParam(r, "requestID")

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	request := result.(*entities.MatchingRequest)
	common.RespondJSON(w, http.StatusOK, queries.NewMatchingRequestView(request))
}

// ConfirmMatch handles POST /matching-requests/{requestID}/confirm
func (h *MatchingHandler) ConfirmMatch(w http.ResponseWriter, r *http.Request) {
	cmd := commands.ConfirmMatchCommand{RequestID: chi.URLParam(r, "requestID")}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	request := result.(*entities.MatchingRequest)
	common.RespondJSON(w, http.StatusOK, queries.NewMatchingRequestView(request))
}

// CancelRequest handles POST /matching-requests/{requestID}/cancel
func (h *MatchingHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CancelMatchingRequestCommand
	if r.ContentLength > 0 {
		if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
			common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
			return
		}
	}
	cmd.RequestID = chi.URLParam(r, "requestID")

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	request := result.(*entities.MatchingRequest)
	common.RespondJSON(w, http.StatusOK, queries.NewMatchingRequestView(request))
}

// ExpireRequests handles POST /matching-requests/expire, the operator sweep
func (h *MatchingHandler) ExpireRequests(w http.ResponseWriter, r *http.Request) {
	var cmd commands.ExpireMatchingRequestsCommand
	if r.ContentLength > 0 {
		if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
			common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result.(cmdhandlers.ExpirySweepResult))
}
