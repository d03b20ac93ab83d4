package adaptor

import (
	"net/http"

	"ground-booking/internal/usecase"
	"ground-booking/pkg/apperror"
	"ground-booking/pkg/utils"

	"go.uber.org/zap"
)

// handleServiceError maps typed domain errors to their status; anything else
// is logged and answered with 500.
func handleServiceError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	if appErr, ok := apperror.As(err); ok {
		if appErr.Status >= http.StatusInternalServerError {
			log.Error(operation+" failed",
				zap.Error(err),
				zap.String("code", appErr.Code))
		} else {
			log.Warn(operation+" rejected",
				zap.Error(err),
				zap.String("code", appErr.Code))
		}
		utils.ResponseAppError(w, appErr)
		return
	}

	log.Error("Failed to "+operation,
		zap.Error(err),
		zap.String("operation", operation))
	utils.ResponseInternalError(w, "Internal server error")
}

// actorFromRequest reads the caller set by the auth middleware.
func actorFromRequest(r *http.Request) (usecase.Actor, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		return usecase.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(r.Context())
	return usecase.Actor{UserID: userID, Role: role}, true
}
