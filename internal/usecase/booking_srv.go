package usecase

import (
	"context"
	"errors"
	"strings"

	"ground-booking/internal/data/entity"
	"ground-booking/internal/data/repository"
	"ground-booking/internal/dto/request"
	"ground-booking/internal/dto/response"
	"ground-booking/internal/gateway"
	"ground-booking/internal/notify"
	"ground-booking/internal/pricing"
	"ground-booking/pkg/apperror"
	"ground-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxIdempotencyKeyLen = 128
	maxCreateAttempts    = 3
)

type BookingService interface {
	CreateBooking(ctx context.Context, userID uuid.UUID, req *request.CreateBookingRequest, idempotencyKey string) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	GetBooking(ctx context.Context, actor Actor, ref string) (*response.BookingResponse, error)

	// Ground owner and admin
	UpdateStatus(ctx context.Context, actor Actor, bookingID string, req *request.UpdateStatusRequest) (*response.BookingResponse, error)
	AdminCreateBooking(ctx context.Context, actor Actor, req *request.AdminCreateBookingRequest) (*response.BookingResponse, error)
}

type bookingService struct {
	Deps
	reconciler *Reconciler
	log        *zap.Logger
}

func NewBookingService(d Deps, reconciler *Reconciler) BookingService {
	return &bookingService{
		Deps:       d,
		reconciler: reconciler,
		log:        d.Log.With(zap.String("service", "booking")),
	}
}

// createInput is a validated create request.
type createInput struct {
	userID   uuid.UUID
	req      *request.CreateBookingRequest
	key      *string
	override Actor // admin creating a confirmed booking; zero for users
}

func (s *bookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req *request.CreateBookingRequest, idempotencyKey string) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, apperror.ErrValidationFailed.WithMessage("%s", utils.FormatValidationErrors(errs))
	}

	in := createInput{userID: userID, req: req}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		if len(key) > maxIdempotencyKeyLen {
			return nil, apperror.ErrValidationFailed.WithMessage("idempotency key longer than %d characters", maxIdempotencyKeyLen)
		}
		in.key = &key
	}

	booking, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	return response.BookingToResponse(booking), nil
}

func (s *bookingService) AdminCreateBooking(ctx context.Context, actor Actor, req *request.AdminCreateBookingRequest) (*response.BookingResponse, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden.WithMessage("admin access required")
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.ErrValidationFailed.WithMessage("%s", utils.FormatValidationErrors(errs))
	}

	userID := actor.UserID
	if req.UserID != "" {
		userID = uuid.MustParse(req.UserID)
	}

	booking, err := s.create(ctx, createInput{userID: userID, req: &req.CreateBookingRequest, override: actor})
	if err != nil {
		return nil, err
	}
	return response.BookingToResponse(booking), nil
}

// create retries when a generated booking code collides; an idempotency key
// collision means a concurrent twin won, and its row is returned.
func (s *bookingService) create(ctx context.Context, in createInput) (*entity.Booking, error) {
	if in.key != nil {
		existing, err := s.Repo.Booking.FindByIdempotencyKey(ctx, in.userID, *in.key)
		if err != nil {
			return nil, storeError(err)
		}
		if existing != nil {
			s.log.Info("Idempotent replay",
				zap.String("booking_code", existing.BookingCode),
				zap.String("user_id", in.userID.String()),
			)
			return existing, nil
		}
	}

	var err error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		var booking *entity.Booking
		booking, err = s.createOnce(ctx, in)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, storeError(err)
		}

		if in.key != nil {
			existing, ferr := s.Repo.Booking.FindByIdempotencyKey(ctx, in.userID, *in.key)
			if ferr != nil {
				return nil, storeError(ferr)
			}
			if existing != nil {
				return existing, nil
			}
		}
		s.log.Warn("Booking code collision, retrying", zap.Int("attempt", attempt))
	}
	return nil, err
}

func (s *bookingService) createOnce(ctx context.Context, in createInput) (*entity.Booking, error) {
	cfg := s.Config.Booking
	now := s.Clock.Now()

	groundID, date, sl, err := parseTarget(in.req.GroundID, in.req.Date, in.req.Slot, now, s.Config.App.Location())
	if err != nil {
		return nil, err
	}

	rates, err := s.Repo.Ground.GetRateTable(ctx, groundID)
	if err != nil {
		return nil, err
	}
	if rates == nil {
		return nil, apperror.ErrGroundNotFound.WithMessage("ground %s not found", in.req.GroundID)
	}
	if players := in.req.PlayerDetails.PlayerCount; players > 0 {
		capacity, err := s.Repo.Ground.GetCapacity(ctx, groundID)
		if err != nil {
			return nil, err
		}
		if capacity > 0 && players > capacity {
			return nil, apperror.ErrValidationFailed.
				WithMessage("player count %d exceeds ground capacity of %d", players, capacity)
		}
	}

	quote := pricing.Price(rates.WithDefaultCurrency(s.Config.Payment.Currency), sl)
	if quote.Fallback {
		s.log.Warn("No rate range matched slot, using first range",
			zap.String("ground_id", groundID.String()),
			zap.String("slot", sl.String()),
		)
	}

	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingCode: utils.GenerateBookingCode(now),
		UserID:      in.userID,
		GroundID:    groundID,
		Date:        date,
		Slot:        sl,
		Status:      entity.BookingStatusPending,
		Pricing: entity.Pricing{
			BaseAmount: quote.Base,
			Discount:   quote.Discount,
			Fee:        quote.Fee,
			Total:      quote.Total,
			Currency:   quote.Currency,
		},
		Payment:        entity.Payment{Status: entity.PaymentStatusPending},
		IdempotencyKey: in.key,
		PlayerDetails: entity.PlayerDetails{
			Name:        in.req.PlayerDetails.Name,
			Phone:       in.req.PlayerDetails.Phone,
			TeamName:    in.req.PlayerDetails.TeamName,
			PlayerCount: in.req.PlayerDetails.PlayerCount,
			Notes:       in.req.PlayerDetails.Notes,
		},
	}
	if in.override.IsAdmin() {
		booking.Confirm(now, utils.GenerateConfirmationCode(), entity.ActorAdmin)
	}

	err = s.Repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := lockAndSweep(ctx, s.Repo.Booking, s.Metrics, groundID, date, now); err != nil {
			return err
		}

		rows, err := s.Repo.Booking.FindLiveByGroundDate(ctx, groundID, date)
		if err != nil {
			return err
		}
		if b, held := firstConflict(rows, sl, in.userID, uuid.Nil, now, cfg.PendingWindow); b != nil {
			countConflict(s.Metrics, held)
			return slotUnavailable(sl, held)
		}

		// Last-moment re-check against rows that committed while we were reading.
		recent, err := s.Repo.Booking.FindCreatedSince(ctx, groundID, date, now.Add(-cfg.RecentWindow))
		if err != nil {
			return err
		}
		if b, held := firstConflict(recent, sl, in.userID, uuid.Nil, now, cfg.PendingWindow); b != nil {
			countConflict(s.Metrics, held)
			return slotUnavailable(sl, held)
		}

		if err := s.Repo.Booking.Create(ctx, booking); err != nil {
			return err
		}

		// The caller's own hold on this slot is consumed by the booking.
		for _, b := range rows {
			if b.UserID == in.userID && b.ActiveHold(now) && b.Slot.Overlaps(sl) {
				b.Cancel(now, entity.ActorSystem, "converted to booking "+booking.BookingCode)
				if err := s.Repo.Booking.Update(ctx, b); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Metrics != nil {
		s.Metrics.BookingsCreated.WithLabelValues(string(booking.Status)).Inc()
	}
	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_code", booking.BookingCode),
		zap.String("user_id", in.userID.String()),
		zap.String("slot", sl.String()),
		zap.Float64("total", booking.Pricing.Total),
		zap.String("status", string(booking.Status)),
	)

	kind := notify.KindBookingPending
	if booking.Status == entity.BookingStatusConfirmed {
		kind = notify.KindBookingConfirmed
	}
	s.Notifier.Emit(ctx, booking.UserID, kind, map[string]any{
		"booking_code": booking.BookingCode,
		"date":         booking.Date.Format("2006-01-02"),
		"slot":         booking.Slot.String(),
		"total":        booking.Pricing.Total,
		"currency":     booking.Pricing.Currency,
	})

	return booking, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.Repo.Booking.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		s.log.Error("Failed to get user bookings",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, storeError(err)
	}

	total, err := s.Repo.Booking.CountByUserID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}

	data := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		data = append(data, *response.BookingToResponse(b))
	}

	return response.NewPaginatedResponse(data, req.Page, limit, total), nil
}

// GetBooking accepts a booking id or booking code. A pending row with a
// gateway order is reconciled against the gateway before it is returned.
func (s *bookingService) GetBooking(ctx context.Context, actor Actor, ref string) (*response.BookingResponse, error) {
	booking, err := s.findByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, booking); err != nil {
		return nil, err
	}

	if needsAutoFix(booking) {
		booking = s.autoFix(ctx, booking)
	}

	return response.BookingToResponse(booking), nil
}

func needsAutoFix(b *entity.Booking) bool {
	return b.Status == entity.BookingStatusPending &&
		!b.Hold.IsOnHold &&
		b.Payment.HasOrder() &&
		b.Payment.Status == entity.PaymentStatusPending
}

// autoFix never fails the read: gateway and store errors are logged and the
// stored row is returned.
func (s *bookingService) autoFix(ctx context.Context, b *entity.Booking) *entity.Booking {
	fetchCtx, cancel := gatewayContext(ctx, s.Config.Payment.Timeout)
	defer cancel()

	state, err := s.Gateway.FetchOrder(fetchCtx, *b.Payment.GatewayOrderID)
	if err != nil {
		s.log.Warn("Auto-fix: gateway fetch failed",
			zap.Error(err),
			zap.String("booking_code", b.BookingCode),
		)
		return b
	}
	if state.Status == gateway.StatusPendingActive {
		return b
	}

	fixed, err := s.reconciler.Reconcile(ctx, b.ID, state.Status, state.Raw)
	if err != nil {
		s.log.Warn("Auto-fix: reconcile failed",
			zap.Error(err),
			zap.String("booking_code", b.BookingCode),
		)
		return b
	}
	return fixed
}

func (s *bookingService) findByRef(ctx context.Context, ref string) (*entity.Booking, error) {
	var (
		booking *entity.Booking
		err     error
	)
	if id, perr := uuid.Parse(ref); perr == nil {
		booking, err = s.Repo.Booking.FindByID(ctx, id)
	} else {
		booking, err = s.Repo.Booking.FindByCode(ctx, ref)
	}
	if err != nil {
		return nil, storeError(err)
	}
	if booking == nil || booking.Hold.IsOnHold {
		return nil, notFound("booking", ref)
	}
	return booking, nil
}

func (s *bookingService) isGroundOwner(ctx context.Context, actor Actor, groundID uuid.UUID) (bool, error) {
	ground, err := s.Repo.Ground.FindByID(ctx, groundID)
	if err != nil {
		return false, storeError(err)
	}
	return ground != nil && ground.OwnerID == actor.UserID, nil
}

func (s *bookingService) authorizeView(ctx context.Context, actor Actor, b *entity.Booking) error {
	if actor.IsAdmin() || b.UserID == actor.UserID {
		return nil
	}
	owner, err := s.isGroundOwner(ctx, actor, b.GroundID)
	if err != nil {
		return err
	}
	if !owner {
		return apperror.ErrForbidden.WithMessage("booking %s belongs to another user", b.BookingCode)
	}
	return nil
}

// UpdateStatus applies an administrative transition. Booking owners may only
// cancel; confirming without a completed payment needs an admin.
func (s *bookingService) UpdateStatus(ctx context.Context, actor Actor, bookingID string, req *request.UpdateStatusRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.ErrValidationFailed.WithMessage("%s", utils.FormatValidationErrors(errs))
	}
	target := entity.BookingStatus(req.Status)

	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, notFound("booking", bookingID)
	}

	var (
		booking *entity.Booking
		emit    []emission
	)
	err = s.Repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.Clock.Now()
		booking, err = lockBooking(ctx, s.Repo.Booking, s.Metrics, id, now)
		if err != nil {
			return err
		}
		if booking == nil || booking.Hold.IsOnHold {
			return notFound("booking", bookingID)
		}

		by, err := s.authorizeTransition(ctx, actor, booking, target)
		if err != nil {
			return err
		}
		if !booking.Status.CanTransitionTo(target) {
			return apperror.ErrInvalidTransition.
				WithMessage("cannot move booking %s from %s to %s", booking.BookingCode, booking.Status, target)
		}

		switch target {
		case entity.BookingStatusConfirmed:
			if booking.Payment.Status != entity.PaymentStatusCompleted && !actor.IsAdmin() {
				return apperror.ErrInvalidTransition.
					WithMessage("booking %s has no completed payment", booking.BookingCode)
			}
			rows, err := s.Repo.Booking.FindLiveByGroundDate(ctx, booking.GroundID, booking.Date)
			if err != nil {
				return err
			}
			if other := confirmedConflict(rows, booking.Slot, booking.ID); other != nil {
				countConflict(s.Metrics, false)
				return slotUnavailable(booking.Slot, false)
			}
			booking.Confirm(now, utils.GenerateConfirmationCode(), by)
			emit = append(emit, emission{
				userID:  booking.UserID,
				kind:    notify.KindBookingConfirmed,
				payload: map[string]any{"booking_code": booking.BookingCode, "confirmed_by": by},
			})

		case entity.BookingStatusCancelled:
			reason := req.Reason
			if reason == "" {
				reason = "cancelled by " + by
			}
			booking.Cancel(now, by, reason)
			emit = append(emit, emission{
				userID:  booking.UserID,
				kind:    notify.KindBookingCancelled,
				payload: map[string]any{"booking_code": booking.BookingCode, "reason": reason},
			})
			if booking.Payment.Status == entity.PaymentStatusCompleted {
				booking.Payment.Status = entity.PaymentStatusRefunded
				emit = append(emit, refundRequired(booking, "cancelled_after_payment"))
			}

		default:
			booking.Status = target
			booking.UpdatedAt = now
		}

		return s.Repo.Booking.Update(ctx, booking)
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.log.Info("Booking status updated",
		zap.String("booking_code", booking.BookingCode),
		zap.String("status", string(target)),
		zap.String("actor", actor.UserID.String()),
	)
	for _, e := range emit {
		s.Notifier.Emit(ctx, e.userID, e.kind, e.payload)
	}

	return response.BookingToResponse(booking), nil
}

// authorizeTransition returns the actor label recorded on the row.
func (s *bookingService) authorizeTransition(ctx context.Context, actor Actor, b *entity.Booking, target entity.BookingStatus) (string, error) {
	if actor.IsAdmin() {
		return entity.ActorAdmin, nil
	}

	owner, err := s.isGroundOwner(ctx, actor, b.GroundID)
	if err != nil {
		return "", err
	}
	if owner {
		return actor.UserID.String(), nil
	}

	if b.UserID == actor.UserID {
		if target == entity.BookingStatusCancelled {
			return actor.UserID.String(), nil
		}
		return "", apperror.ErrForbidden.WithMessage("only the ground owner or an admin can set %s", target)
	}

	return "", apperror.ErrForbidden.WithMessage("booking %s belongs to another user", b.BookingCode)
}
