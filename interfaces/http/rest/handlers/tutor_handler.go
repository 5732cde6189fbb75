package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tutormatch-backend/application/commands"
	"tutormatch-backend/application/commands/bus"
	"tutormatch-backend/application/queries"
	querybus "tutormatch-backend/application/queries/bus"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/pkg/common"
)

// TutorHandler handles tutor-related HTTP requests
type TutorHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewTutorHandler creates a new tutor handler
func NewTutorHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *TutorHandler {
	return &TutorHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// PromoteToTutor handles POST /tutors
func (h *TutorHandler) PromoteToTutor(w http.ResponseWriter, r *http.Request) {
	var cmd commands.PromoteToTutorCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	tutor := result.(*entities.Tutor)
	common.RespondJSON(w, http.StatusCreated, queries.NewTutorView(tutor))
}

// GetTutor handles GET /tutors/{tutorID}
func (h *TutorHandler) GetTutor(w http.ResponseWriter, r *http.Request) {
	tutorID := chi.URLParam(r, "tutorID")
	if _, err := uuid.Parse(tutorID); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid tutor ID format")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetTutorQuery{TutorID: tutorID})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ListTutors handles GET /tutors with an optional subject filter
func (h *TutorHandler) ListTutors(w http.ResponseWriter, r *http.Request) {
	params := common.ExtractPaginationParams(r)

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		result, err := h.queryBus.Ask(r.Context(), queries.GetTutorByUserIDQuery{UserID: userID})
		if err != nil {
			respondDomainError(w, h.logger, err)
			return
		}
		common.RespondJSON(w, http.StatusOK, result)
		return
	}

	query := queries.ListTutorsQuery{
		Subject:  r.URL.Query().Get("subject"),
		Page:     params.Page,
		PageSize: params.PageSize,
		Sort:     params.Sort,
		Desc:     params.Order == "desc",
	}
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	paged := result.(queries.PagedView[queries.TutorView])
	common.RespondWithMeta(w, http.StatusOK, paged.Items, &common.MetaInfo{
		Pagination: common.BuildPaginationMeta(paged.Page, paged.PageSize, paged.Total),
	})
}

// UpdateTutor handles PUT /tutors/{tutorID}
func (h *TutorHandler) UpdateTutor(w http.ResponseWriter, r *http.Request) {
	tutorID := chi.URLParam(r, "tutorID")
	if _, err := uuid.Parse(tutorID); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid tutor ID format")
		return
	}

	var cmd commands.UpdateTutorProfileCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}
	cmd.TutorID = tutorID
	if cmd.ActorID == "" {
		cmd.ActorID = actorID(r)
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	tutor := result.(*entities.Tutor)
	common.RespondJSON(w, http.StatusOK, queries.NewTutorView(tutor))
}

// RecordSessionOutcome handles POST /tutors/{tutorID}/sessions
func (h *TutorHandler) RecordSessionOutcome(w http.ResponseWriter, r *http.Request) {
	var cmd commands.RecordSessionOutcomeCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}
	cmd.TutorID = chi.URLParam(r, "tutorID")

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	tutor := result.(*entities.Tutor)
	common.RespondJSON(w, http.StatusOK, queries.NewTutorView(tutor))
}

// ChangeTutorStatus handles PUT /tutors/{tutorID}/status
func (h *TutorHandler) ChangeTutorStatus(w http.ResponseWriter, r *http.Request) {
	var cmd commands.ChangeTutorStatusCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}
	cmd.TutorID = chi.URLParam(r, "tutorID")

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	tutor := result.(*entities.Tutor)
	common.RespondJSON(w, http.StatusOK, queries.NewTutorView(tutor))
}
