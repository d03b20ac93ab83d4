package wire

import (
	"ground-booking/internal/adaptor"
	"ground-booking/pkg/middleware"
	"ground-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT.Secret, log))

		// POST /api/bookings - Create booking (Idempotency-Key header optional)
		r.Post("/", bookingHandler.CreateBooking)

		// GET /api/bookings - Own booking history
		r.Get("/", bookingHandler.GetUserBookings)

		// GET /api/bookings/{id} - Booking detail, reconciled with the gateway
		r.Get("/{id}", bookingHandler.GetBooking)

		// PATCH /api/bookings/{id}/status - Cancel, confirm, complete, no-show
		r.Patch("/{id}/status", bookingHandler.UpdateStatus)
	})

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/bookings", func(r chi.Router) {
		// Require both authentication AND admin role
		r.Use(middleware.AuthJWT(config.JWT.Secret, log))
		r.Use(middleware.Admin(log))

		// POST /api/admin/bookings - Confirmed booking without payment
		r.Post("/", bookingHandler.AdminCreateBooking)
	})
}
