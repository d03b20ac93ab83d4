package wire

import (
	"ground-booking/internal/adaptor"
	"ground-booking/pkg/middleware"
	"ground-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireHold(
	r chi.Router,
	holdHandler *adaptor.HoldHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/api/holds", func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT.Secret, log))

		// POST /api/holds - Reserve a slot for a few minutes
		r.Post("/", holdHandler.AcquireHold)

		// DELETE /api/holds/{holdId} - Release own hold
		r.Delete("/{holdId}", holdHandler.ReleaseHold)
	})
}
