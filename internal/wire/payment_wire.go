package wire

import (
	"ground-booking/internal/adaptor"
	"ground-booking/pkg/middleware"
	"ground-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/api/payments", func(r chi.Router) {
		// POST /api/payments/webhook - Gateway callback (public, always 200)
		r.Post("/webhook", paymentHandler.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(config.JWT.Secret, log))

			// POST /api/payments/orders - Create or reuse a gateway order
			r.Post("/orders", paymentHandler.CreateOrder)

			// POST /api/payments/verify - Poll the gateway and reconcile
			r.Post("/verify", paymentHandler.Verify)
		})
	})
}
