package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tutormatch-backend/application/commands"
	"tutormatch-backend/application/commands/bus"
	"tutormatch-backend/application/commands/handlers"
	"tutormatch-backend/application/queries"
	querybus "tutormatch-backend/application/queries/bus"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/pkg/common"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// RegisterUser handles POST /users
func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var cmd commands.RegisterUserCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	user := result.(*entities.User)
	common.RespondJSON(w, http.StatusCreated, queries.NewUserView(user))
}

// GetUser handles GET /users/{userID}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(userID); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid user ID format")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetUserQuery{UserID: userID})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := common.ExtractPaginationParams(r)

	if email := r.URL.Query().Get("email"); email != "" {
		result, err := h.queryBus.Ask(r.Context(), queries.GetUserByEmailQuery{Email: email})
		if err != nil {
			respondDomainError(w, h.logger, err)
			return
		}
		common.RespondJSON(w, http.StatusOK, result)
		return
	}

	query := queries.ListUsersQuery{
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

	paged := result.(queries.PagedView[queries.UserView])
	common.RespondWithMeta(w, http.StatusOK, paged.Items, &common.MetaInfo{
		Pagination: common.BuildPaginationMeta(paged.Page, paged.PageSize, paged.Total),
	})
}

// UpdateUser handles PUT /users/{userID}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(userID); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid user ID format")
		return
	}

	var cmd commands.UpdateUserProfileCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}
	cmd.UserID = userID
	if cmd.ActorID == "" {
		cmd.ActorID = actorID(r)
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	user := result.(*entities.User)
	common.RespondJSON(w, http.StatusOK, queries.NewUserView(user))
}

// ChangeUserStatus handles PUT /users/{userID}/status
func (h *UserHandler) ChangeUserStatus(w http.ResponseWriter, r *http.Request) {
	var cmd commands.ChangeUserStatusCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}
	cmd.UserID = chi.URLParam(r, "userID")

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	user := result.(*entities.User)
	common.RespondJSON(w, http.StatusOK, queries.NewUserView(user))
}

// ChangeUserRole handles PUT /users/{userID}/role
func (h *UserHandler) ChangeUserRole(w http.ResponseWriter, r *http.Request) {
	var cmd commands.ChangeUserRoleCommand
	if err := common.ParseJSONBody(r, &cmd, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}
	cmd.UserID = chi.URLParam(r, "userID")

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	user := result.(*entities.User)
	common.RespondJSON(w, http.StatusOK, queries.NewUserView(user))
}

// RecordFailedLogin handles POST /users/{userID}/failed-logins
func (h *UserHandler) RecordFailedLogin(w http.ResponseWriter, r *http.Request) {
	cmd := commands.RecordFailedLoginCommand{UserID: chi.URLParam(r, "userID")}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result.(handlers.FailedLoginResult))
}
