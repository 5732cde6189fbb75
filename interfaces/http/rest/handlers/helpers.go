package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"tutormatch-backend/pkg/auth"
	"tutormatch-backend/pkg/common"
	pkgerrors "tutormatch-backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

// actorID resolves the authenticated user making the request, empty when
// the route is unauthenticated
func actorID(r *http.Request) string {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return ""
	}
	return user.UserID
}

// respondDomainError maps an application error onto the HTTP surface. Field
// violations ride along in the details so clients can fix every field at once.
func respondDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var appErr *pkgerrors.AppError
	if !errors.As(err, &appErr) {
		logger.Error("unexpected error", zap.Error(err))
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}

	if len(appErr.Violations) > 0 {
		details := make(map[string]interface{}, len(appErr.Violations))
		for _, v := range appErr.Violations {
			details[v.Field] = v.Message
		}
		common.RespondErrorWithDetails(w, status, string(appErr.Type), appErr.Message, details)
		return
	}

	common.RespondError(w, status, string(appErr.Type), appErr.Message)
}
