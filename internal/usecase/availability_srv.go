package usecase

import (
	"context"

	"ground-booking/internal/data/entity"
	"ground-booking/internal/dto/response"
	"ground-booking/internal/slot"
	"ground-booking/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AvailabilityService interface {
	GetAvailability(ctx context.Context, groundID, date string) (*response.AvailabilityResponse, error)
}

type availabilityService struct {
	Deps
	log *zap.Logger
}

func NewAvailabilityService(d Deps) AvailabilityService {
	return &availabilityService{
		Deps: d,
		log:  d.Log.With(zap.String("service", "availability")),
	}
}

// GetAvailability lists hour-aligned free slots between opening and closing
// hours, and every slot currently taken by a booking, a recent pending
// attempt or an unexpired hold.
func (s *availabilityService) GetAvailability(ctx context.Context, groundID, date string) (*response.AvailabilityResponse, error) {
	gid, err := uuid.Parse(groundID)
	if err != nil {
		return nil, apperror.ErrValidationFailed.WithMessage("invalid ground id %q", groundID)
	}
	loc := s.Config.App.Location()
	day, err := slot.ParseDate(date, loc)
	if err != nil {
		return nil, apperror.ErrValidationFailed.WithMessage("invalid date %q", date)
	}

	ground, err := s.Repo.Ground.FindByID(ctx, gid)
	if err != nil {
		return nil, storeError(err)
	}
	if ground == nil || !ground.IsActive {
		return nil, apperror.ErrGroundNotFound.WithMessage("ground %s not found", groundID)
	}

	now := s.Clock.Now()
	stored := civilDate(day)

	var rows []*entity.Booking
	err = s.Repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := lockAndSweep(ctx, s.Repo.Booking, s.Metrics, gid, stored, now); err != nil {
			return err
		}
		rows, err = s.Repo.Booking.FindLiveByGroundDate(ctx, gid, stored)
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}

	cfg := s.Config.Booking
	resp := &response.AvailabilityResponse{
		GroundID:       groundID,
		Date:           stored.Format("2006-01-02"),
		AvailableSlots: []string{},
		BookedSlots:    []response.BookedSlot{},
	}

	var taken []slot.Slot
	for _, b := range rows {
		// uuid.Nil as viewer: every unexpired hold counts, including the caller's.
		blocking, held := blocks(b, uuid.Nil, now, cfg.PendingWindow)
		if !blocking {
			continue
		}
		taken = append(taken, b.Slot)
		resp.BookedSlots = append(resp.BookedSlots, response.BookedSlot{
			Slot:   b.Slot.String(),
			Status: b.Status,
			Held:   held,
		})
	}

	localNow := now.In(loc)
	for h := cfg.OpenHour; h < cfg.CloseHour; h++ {
		candidate := slot.Slot{Start: h * 60, End: (h + 1) * 60}
		if slot.IsPast(day, candidate, localNow) || overlapsAny(candidate, taken) {
			continue
		}
		resp.AvailableSlots = append(resp.AvailableSlots, candidate.String())
	}

	return resp, nil
}

func overlapsAny(s slot.Slot, taken []slot.Slot) bool {
	for _, t := range taken {
		if s.Overlaps(t) {
			return true
		}
	}
	return false
}
