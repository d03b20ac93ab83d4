package usecase

import (
	"context"
	"errors"
	"time"

	"ground-booking/internal/data/entity"
	"ground-booking/internal/data/repository"
	"ground-booking/internal/slot"
	"ground-booking/pkg/apperror"
	"ground-booking/pkg/database"
	"ground-booking/pkg/metrics"
	"ground-booking/pkg/utils"

	"github.com/google/uuid"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == utils.RoleAdmin
}

// lockAndSweep serialises writers on the partition and clears expired holds.
// Must run inside a transaction.
func lockAndSweep(ctx context.Context, repo repository.BookingRepository, m *metrics.Metrics, groundID uuid.UUID, date, now time.Time) error {
	if err := repo.LockPartition(ctx, groundID, date); err != nil {
		return err
	}
	n, err := repo.SweepExpiredHolds(ctx, groundID, date, now)
	if err != nil {
		return err
	}
	if n > 0 && m != nil {
		m.HoldsSwept.Add(float64(n))
	}
	return nil
}

// lockBooking takes the partition lock of the booking, then its row lock, in
// the same order as the create path. Returns nil when the row is missing.
func lockBooking(ctx context.Context, repo repository.BookingRepository, m *metrics.Metrics, id uuid.UUID, now time.Time) (*entity.Booking, error) {
	current, err := repo.FindByID(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	if err := lockAndSweep(ctx, repo, m, current.GroundID, current.Date, now); err != nil {
		return nil, err
	}
	return repo.FindByIDForUpdate(ctx, id)
}

// blocks reports whether b keeps userID off an overlapping slot, and whether
// the block is only a temporary hold.
func blocks(b *entity.Booking, userID uuid.UUID, now time.Time, pendingWindow time.Duration) (blocking, held bool) {
	switch {
	case b.Status == entity.BookingStatusConfirmed:
		return true, false
	case b.Hold.IsOnHold:
		if b.ActiveHold(now) && b.UserID != userID {
			return true, true
		}
		return false, false
	case b.RecentPending(now, pendingWindow):
		return true, false
	}
	return false, false
}

// firstConflict returns the first row in rows that blocks s, skipping exclude.
func firstConflict(rows []*entity.Booking, s slot.Slot, userID, exclude uuid.UUID, now time.Time, pendingWindow time.Duration) (*entity.Booking, bool) {
	for _, b := range rows {
		if b.ID == exclude || !b.Slot.Overlaps(s) {
			continue
		}
		if blocking, held := blocks(b, userID, now, pendingWindow); blocking {
			return b, held
		}
	}
	return nil, false
}

// confirmedConflict finds a confirmed row other than exclude overlapping s.
func confirmedConflict(rows []*entity.Booking, s slot.Slot, exclude uuid.UUID) *entity.Booking {
	for _, b := range rows {
		if b.ID != exclude && b.Status == entity.BookingStatusConfirmed && b.Slot.Overlaps(s) {
			return b
		}
	}
	return nil
}

func countConflict(m *metrics.Metrics, held bool) {
	if m == nil {
		return
	}
	reason := "booked"
	if held {
		reason = "held"
	}
	m.SlotConflicts.WithLabelValues(reason).Inc()
}

func slotUnavailable(s slot.Slot, held bool) error {
	reason, msg := "booked", "slot %s is already booked"
	if held {
		reason, msg = "held", "slot %s is temporarily held by another user"
	}
	return apperror.ErrSlotUnavailable.
		WithMessage(msg, s.String()).
		WithDetail("reason", reason).
		WithDetail("is_temporary_hold", held)
}

// storeError maps failures to open a transaction onto StoreUnavailable and
// passes everything else through.
func storeError(err error) error {
	if errors.Is(err, database.ErrBeginTx) {
		return apperror.ErrStoreUnavailable.Wrap(err)
	}
	return err
}

// parseTarget validates the (ground, date, slot) triple of a hold or booking
// request. The returned date is the calendar day at UTC midnight.
func parseTarget(groundID, date, rawSlot string, now time.Time, loc *time.Location) (uuid.UUID, time.Time, slot.Slot, error) {
	gid, err := uuid.Parse(groundID)
	if err != nil {
		return uuid.Nil, time.Time{}, slot.Slot{}, apperror.ErrValidationFailed.WithMessage("invalid ground id %q", groundID)
	}

	s, err := slot.Parse(rawSlot)
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		return uuid.Nil, time.Time{}, slot.Slot{}, apperror.ErrValidationFailed.WithMessage("%v", err).WithDetail("slot", rawSlot)
	}

	day, err := slot.ParseDate(date, loc)
	if err != nil {
		return uuid.Nil, time.Time{}, slot.Slot{}, apperror.ErrValidationFailed.WithMessage("invalid date %q", date)
	}
	if slot.IsPast(day, s, now.In(loc)) {
		return uuid.Nil, time.Time{}, slot.Slot{}, apperror.ErrValidationFailed.
			WithMessage("slot %s on %s is in the past", s.String(), date)
	}

	return gid, civilDate(day), s, nil
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func notFound(what, id string) error {
	return apperror.ErrNotFound.WithMessage("%s %s not found", what, id)
}
