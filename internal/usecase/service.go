package usecase

import (
	"ground-booking/internal/data/repository"
	"ground-booking/internal/gateway"
	"ground-booking/internal/notify"
	"ground-booking/pkg/clock"
	"ground-booking/pkg/metrics"
	"ground-booking/pkg/utils"

	"go.uber.org/zap"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Repo     *repository.Repository
	Gateway  gateway.Gateway
	Notifier notify.Sink
	Metrics  *metrics.Metrics
	Clock    clock.Clock
	Config   *utils.Config
	Log      *zap.Logger
}

type Service struct {
	Hold         HoldService
	Booking      BookingService
	Payment      PaymentService
	Availability AvailabilityService
	Sweeper      *HoldSweeper
}

func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = clock.System()
	}
	if d.Notifier == nil {
		d.Notifier = notify.NewLogSink(d.Log)
	}

	reconciler := NewReconciler(d)

	return &Service{
		Hold:         NewHoldService(d),
		Booking:      NewBookingService(d, reconciler),
		Payment:      NewPaymentService(d, reconciler),
		Availability: NewAvailabilityService(d),
		Sweeper:      NewHoldSweeper(d.Repo.Booking, d.Clock, d.Config.Booking.HoldSweepInterval, d.Metrics, d.Log),
	}
}
