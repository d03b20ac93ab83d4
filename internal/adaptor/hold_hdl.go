package adaptor

import (
	"encoding/json"
	"net/http"

	"ground-booking/internal/dto/request"
	"ground-booking/internal/usecase"
	"ground-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type HoldHandler struct {
	service usecase.HoldService
	log     *zap.Logger
}

func NewHoldHandler(service usecase.HoldService, log *zap.Logger) *HoldHandler {
	return &HoldHandler{
		service: service,
		log:     log.With(zap.String("handler", "hold")),
	}
}

// AcquireHold handles POST /api/holds (protected)
func (h *HoldHandler) AcquireHold(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	hold, err := h.service.AcquireHold(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(h.log, w, err, "acquire hold")
		return
	}

	utils.ResponseCreated(w, "success", hold)
}

// ReleaseHold handles DELETE /api/holds/{holdId} (protected)
func (h *HoldHandler) ReleaseHold(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.ReleaseHold(r.Context(), userID, chi.URLParam(r, "holdId")); err != nil {
		handleServiceError(h.log, w, err, "release hold")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
