package wire

import (
	"ground-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAvailability(r chi.Router, availabilityHandler *adaptor.AvailabilityHandler) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/availability/{groundId}/{date} - Free and taken slots for a day
	r.Get("/api/availability/{groundId}/{date}", availabilityHandler.GetAvailability)
}
