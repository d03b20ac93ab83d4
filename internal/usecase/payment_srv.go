package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"ground-booking/internal/data/entity"
	"ground-booking/internal/dto/request"
	"ground-booking/internal/dto/response"
	"ground-booking/internal/gateway"
	"ground-booking/pkg/apperror"
	"ground-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultGatewayTimeout = 15 * time.Second

type PaymentService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, req *request.CreateOrderRequest) (*response.OrderResponse, error)
	Verify(ctx context.Context, userID uuid.UUID, req *request.VerifyPaymentRequest) (*response.BookingResponse, error)
	HandleWebhook(ctx context.Context, body []byte) error
}

type paymentService struct {
	Deps
	reconciler *Reconciler
	log        *zap.Logger
}

func NewPaymentService(d Deps, reconciler *Reconciler) PaymentService {
	return &paymentService{
		Deps:       d,
		reconciler: reconciler,
		log:        d.Log.With(zap.String("service", "payment")),
	}
}

func gatewayContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *paymentService) ownedBooking(ctx context.Context, userID uuid.UUID, code string) (*entity.Booking, error) {
	booking, err := s.Repo.Booking.FindByCode(ctx, code)
	if err != nil {
		return nil, storeError(err)
	}
	if booking == nil || booking.Hold.IsOnHold {
		return nil, notFound("booking", code)
	}
	if booking.UserID != userID {
		return nil, apperror.ErrForbidden.WithMessage("booking %s belongs to another user", code)
	}
	return booking, nil
}

// CreateOrder registers a gateway order for a pending booking. The gateway is
// called outside any store transaction; a failed call leaves the row as it was.
func (s *paymentService) CreateOrder(ctx context.Context, userID uuid.UUID, req *request.CreateOrderRequest) (*response.OrderResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.ErrValidationFailed.WithMessage("%s", utils.FormatValidationErrors(errs))
	}

	booking, err := s.ownedBooking(ctx, userID, req.BookingCode)
	if err != nil {
		return nil, err
	}
	if booking.Status != entity.BookingStatusPending {
		return nil, apperror.ErrInvalidTransition.
			WithMessage("booking %s is %s, not awaiting payment", booking.BookingCode, booking.Status)
	}
	if booking.Pricing.Total < s.Config.Payment.MinAmount {
		return nil, apperror.ErrValidationFailed.
			WithMessage("amount %.2f is below the minimum of %.2f", booking.Pricing.Total, s.Config.Payment.MinAmount)
	}

	if want := s.Config.Payment.Currency; want != "" && !strings.EqualFold(booking.Pricing.Currency, want) {
		return nil, apperror.ErrValidationFailed.
			WithMessage("booking %s is priced in %s; payments settle in %s", booking.BookingCode, booking.Pricing.Currency, strings.ToUpper(want))
	}

	if booking.Payment.HasOrder() && booking.Payment.Status == entity.PaymentStatusPending {
		return s.reuseOrder(ctx, booking), nil
	}

	gwCtx, cancel := gatewayContext(ctx, s.Config.Payment.Timeout)
	defer cancel()
	order, err := s.Gateway.CreateOrder(gwCtx, gateway.OrderRequest{
		BookingID:   booking.ID.String(),
		BookingCode: booking.BookingCode,
		Amount:      booking.Pricing.Total,
		Currency:    booking.Pricing.Currency,
		ReturnURL:   s.Config.Payment.ReturnURL,
	})
	if err != nil {
		s.log.Error("Gateway order creation failed",
			zap.Error(err),
			zap.String("booking_code", booking.BookingCode),
		)
		return nil, apperror.ErrGatewayUnavailable.Wrap(err)
	}

	reused := false
	err = s.Repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.Repo.Booking.FindByIDForUpdate(ctx, booking.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound("booking", booking.BookingCode)
		}
		if current.Status != entity.BookingStatusPending {
			return apperror.ErrInvalidTransition.
				WithMessage("booking %s is %s, not awaiting payment", current.BookingCode, current.Status)
		}
		// A concurrent request registered an order first; keep that one.
		if current.Payment.HasOrder() && current.Payment.Status == entity.PaymentStatusPending {
			s.log.Warn("Discarding duplicate gateway order",
				zap.String("booking_code", current.BookingCode),
				zap.String("kept_order", *current.Payment.GatewayOrderID),
				zap.String("dropped_order", order.ID),
			)
			booking = current
			reused = true
			return nil
		}

		orderID := order.ID
		current.Payment.GatewayOrderID = &orderID
		current.Payment.Status = entity.PaymentStatusPending
		current.Payment.Raw = order.Raw
		current.UpdatedAt = s.Clock.Now()
		booking = current
		return s.Repo.Booking.Update(ctx, current)
	})
	if err != nil {
		return nil, storeError(err)
	}
	if reused {
		return s.reuseOrder(ctx, booking), nil
	}

	s.log.Info("Gateway order created",
		zap.String("booking_code", booking.BookingCode),
		zap.String("order_id", order.ID),
		zap.Float64("amount", booking.Pricing.Total),
	)

	return &response.OrderResponse{
		OrderID:     order.ID,
		BookingCode: booking.BookingCode,
		Amount:      booking.Pricing.Total,
		Currency:    booking.Pricing.Currency,
		CheckoutURL: order.CheckoutURL,
	}, nil
}

// reuseOrder answers with the stored order. The checkout URL is refreshed from
// the gateway when it answers; otherwise it is left empty.
func (s *paymentService) reuseOrder(ctx context.Context, b *entity.Booking) *response.OrderResponse {
	resp := &response.OrderResponse{
		OrderID:     *b.Payment.GatewayOrderID,
		BookingCode: b.BookingCode,
		Amount:      b.Pricing.Total,
		Currency:    b.Pricing.Currency,
		Reused:      true,
	}

	gwCtx, cancel := gatewayContext(ctx, s.Config.Payment.Timeout)
	defer cancel()
	state, err := s.Gateway.FetchOrder(gwCtx, resp.OrderID)
	if err != nil {
		s.log.Warn("Could not refresh reused order",
			zap.Error(err),
			zap.String("order_id", resp.OrderID),
		)
		return resp
	}
	resp.CheckoutURL = state.CheckoutURL
	return resp
}

func (s *paymentService) Verify(ctx context.Context, userID uuid.UUID, req *request.VerifyPaymentRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.ErrValidationFailed.WithMessage("%s", utils.FormatValidationErrors(errs))
	}

	booking, err := s.ownedBooking(ctx, userID, req.BookingCode)
	if err != nil {
		return nil, err
	}
	if !booking.Payment.HasOrder() || *booking.Payment.GatewayOrderID != req.OrderID {
		return nil, apperror.ErrValidationFailed.
			WithMessage("order %s does not belong to booking %s", req.OrderID, req.BookingCode)
	}

	gwCtx, cancel := gatewayContext(ctx, s.Config.Payment.Timeout)
	defer cancel()
	state, err := s.Gateway.FetchOrder(gwCtx, req.OrderID)
	if err != nil {
		s.log.Error("Gateway verify failed",
			zap.Error(err),
			zap.String("order_id", req.OrderID),
		)
		return nil, apperror.ErrGatewayUnavailable.Wrap(err)
	}

	booking, err = s.reconciler.Reconcile(ctx, booking.ID, state.Status, state.Raw)
	if err != nil {
		return nil, err
	}
	return response.BookingToResponse(booking), nil
}

// HandleWebhook returns an error only for logging; the HTTP layer always
// acknowledges so the provider does not retry payloads we cannot use.
func (s *paymentService) HandleWebhook(ctx context.Context, body []byte) error {
	gwCtx, cancel := gatewayContext(ctx, s.Config.Payment.Timeout)
	defer cancel()

	event, err := s.Gateway.ParseWebhook(gwCtx, body)
	if errors.Is(err, gateway.ErrIgnoredEvent) {
		s.log.Debug("Webhook ignored", zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	booking, err := s.Repo.Booking.FindByGatewayOrderID(ctx, event.Order.OrderID)
	if err != nil {
		return storeError(err)
	}
	if booking == nil {
		s.log.Warn("Webhook for unknown order",
			zap.String("event_id", event.EventID),
			zap.String("order_id", event.Order.OrderID),
		)
		return nil
	}

	_, err = s.reconciler.Reconcile(ctx, booking.ID, event.Order.Status, event.Order.Raw)
	return err
}
