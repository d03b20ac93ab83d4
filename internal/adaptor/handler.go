package adaptor

import (
	"ground-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Hold         *HoldHandler
	Booking      *BookingHandler
	Payment      *PaymentHandler
	Availability *AvailabilityHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Hold:         NewHoldHandler(service.Hold, log),
		Booking:      NewBookingHandler(service.Booking, log),
		Payment:      NewPaymentHandler(service.Payment, log),
		Availability: NewAvailabilityHandler(service.Availability, log),
	}
}
