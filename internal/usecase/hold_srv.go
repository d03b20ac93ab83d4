package usecase

import (
	"context"

	"ground-booking/internal/data/entity"
	"ground-booking/internal/dto/request"
	"ground-booking/internal/dto/response"
	"ground-booking/pkg/apperror"
	"ground-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type HoldService interface {
	AcquireHold(ctx context.Context, userID uuid.UUID, req *request.CreateHoldRequest) (*response.HoldResponse, error)
	ReleaseHold(ctx context.Context, userID uuid.UUID, holdID string) error
}

type holdService struct {
	Deps
	log *zap.Logger
}

func NewHoldService(d Deps) HoldService {
	return &holdService{
		Deps: d,
		log:  d.Log.With(zap.String("service", "hold")),
	}
}

func (s *holdService) AcquireHold(ctx context.Context, userID uuid.UUID, req *request.CreateHoldRequest) (*response.HoldResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.ErrValidationFailed.WithMessage("%s", utils.FormatValidationErrors(errs))
	}

	cfg := s.Config.Booking
	now := s.Clock.Now()
	groundID, date, sl, err := parseTarget(req.GroundID, req.Date, req.Slot, now, s.Config.App.Location())
	if err != nil {
		return nil, err
	}

	ground, err := s.Repo.Ground.FindByID(ctx, groundID)
	if err != nil {
		return nil, storeError(err)
	}
	if ground == nil || !ground.IsActive {
		return nil, apperror.ErrGroundNotFound.WithMessage("ground %s not found", req.GroundID)
	}

	var hold *entity.Booking
	err = s.Repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := lockAndSweep(ctx, s.Repo.Booking, s.Metrics, groundID, date, now); err != nil {
			return err
		}

		rows, err := s.Repo.Booking.FindLiveByGroundDate(ctx, groundID, date)
		if err != nil {
			return err
		}

		// Same user, overlapping, unexpired: hand back the existing hold.
		for _, b := range rows {
			if b.UserID == userID && b.ActiveHold(now) && b.Slot.Overlaps(sl) {
				hold = b
				return nil
			}
		}

		if b, held := firstConflict(rows, sl, userID, uuid.Nil, now, cfg.PendingWindow); b != nil {
			countConflict(s.Metrics, held)
			return slotUnavailable(sl, held)
		}

		expires := now.Add(cfg.HoldTTL)
		hold = &entity.Booking{
			Base: entity.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			BookingCode: utils.GenerateBookingCode(now),
			UserID:      userID,
			GroundID:    groundID,
			Date:        date,
			Slot:        sl,
			Status:      entity.BookingStatusPending,
			Hold: entity.Hold{
				IsOnHold:  true,
				StartedAt: &now,
				ExpiresAt: &expires,
			},
			Pricing: entity.Pricing{Currency: ground.Rates.WithDefaultCurrency(s.Config.Payment.Currency).CurrencyOrDefault()},
			Payment: entity.Payment{Status: entity.PaymentStatusPending},
		}
		return s.Repo.Booking.Create(ctx, hold)
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.log.Info("Hold acquired",
		zap.String("hold_id", hold.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("ground_id", groundID.String()),
		zap.String("slot", sl.String()),
		zap.Timep("expires_at", hold.Hold.ExpiresAt),
	)

	return response.HoldToResponse(hold), nil
}

// ReleaseHold answers NotFound for holds the caller does not own, so hold ids
// of other users cannot be discovered.
func (s *holdService) ReleaseHold(ctx context.Context, userID uuid.UUID, holdID string) error {
	id, err := uuid.Parse(holdID)
	if err != nil {
		return notFound("hold", holdID)
	}

	now := s.Clock.Now()
	err = s.Repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		hold, err := s.Repo.Booking.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if hold == nil || hold.UserID != userID || !hold.Hold.IsOnHold {
			return notFound("hold", holdID)
		}

		hold.Cancel(now, userID.String(), "hold released")
		return s.Repo.Booking.Update(ctx, hold)
	})
	if err != nil {
		return storeError(err)
	}

	s.log.Info("Hold released",
		zap.String("hold_id", holdID),
		zap.String("user_id", userID.String()),
	)
	return nil
}
