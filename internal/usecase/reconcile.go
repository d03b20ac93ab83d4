package usecase

import (
	"context"
	"encoding/json"

	"ground-booking/internal/data/entity"
	"ground-booking/internal/gateway"
	"ground-booking/internal/notify"
	"ground-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	outcomeConfirmed = "confirmed"
	outcomeConflict  = "conflict_refund"
	outcomeLatePaid  = "late_payment_refund"
	outcomeRecorded  = "payment_recorded"
	outcomeFailed    = "failed"
	outcomeNoop      = "noop"
)

type emission struct {
	userID  uuid.UUID
	kind    string
	payload map[string]any
}

// Reconciler is the only code path that moves a booking on a payment outcome.
// Webhook, verify and auto-fix all land here, so duplicates and reordering
// converge on the same row state.
type Reconciler struct {
	Deps
	log *zap.Logger
}

func NewReconciler(d Deps) *Reconciler {
	return &Reconciler{
		Deps: d,
		log:  d.Log.With(zap.String("service", "reconcile")),
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, bookingID uuid.UUID, status gateway.Status, raw json.RawMessage) (*entity.Booking, error) {
	var (
		booking *entity.Booking
		outcome = outcomeNoop
		emit    []emission
	)

	err := r.Repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = lockBooking(ctx, r.Repo.Booking, r.Metrics, bookingID, r.Clock.Now())
		if err != nil {
			return err
		}
		if booking == nil {
			return notFound("booking", bookingID.String())
		}

		switch status {
		case gateway.StatusPaid:
			outcome, emit, err = r.applyPaid(ctx, booking, raw)
		case gateway.StatusFailedTerminal:
			outcome, emit = r.applyFailed(booking, raw)
		default:
			return nil
		}
		if err != nil || outcome == outcomeNoop {
			return err
		}

		return r.Repo.Booking.Update(ctx, booking)
	})
	if err != nil {
		return nil, storeError(err)
	}

	if r.Metrics != nil {
		r.Metrics.Reconciliations.WithLabelValues(outcome).Inc()
	}
	if outcome != outcomeNoop {
		r.log.Info("Booking reconciled",
			zap.String("booking_code", booking.BookingCode),
			zap.String("payment_status", string(status)),
			zap.String("outcome", outcome),
		)
	}
	for _, e := range emit {
		r.Notifier.Emit(ctx, e.userID, e.kind, e.payload)
	}

	return booking, nil
}

func (r *Reconciler) applyPaid(ctx context.Context, b *entity.Booking, raw json.RawMessage) (string, []emission, error) {
	now := r.Clock.Now()

	switch {
	case b.Status == entity.BookingStatusPending && !b.Hold.IsOnHold:
		b.Payment.Status = entity.PaymentStatusCompleted
		b.Payment.PaidAt = &now
		b.Payment.Raw = raw

		rows, err := r.Repo.Booking.FindLiveByGroundDate(ctx, b.GroundID, b.Date)
		if err != nil {
			return outcomeNoop, nil, err
		}
		if other := confirmedConflict(rows, b.Slot, b.ID); other != nil {
			b.Cancel(now, entity.ActorSystem, "slot conflict: "+other.BookingCode+" was confirmed first; payment to be refunded")
			b.Payment.Status = entity.PaymentStatusRefunded
			r.log.Warn("Paid booking lost its slot",
				zap.String("booking_code", b.BookingCode),
				zap.String("conflicting_booking", other.BookingCode),
			)
			return outcomeConflict, []emission{refundRequired(b, "slot_conflict")}, nil
		}

		b.Confirm(now, utils.GenerateConfirmationCode(), entity.ActorSystem)
		return outcomeConfirmed, []emission{{
			userID: b.UserID,
			kind:   notify.KindBookingConfirmed,
			payload: map[string]any{
				"booking_code":      b.BookingCode,
				"confirmation_code": *b.Confirmation.Code,
				"date":              b.Date.Format("2006-01-02"),
				"slot":              b.Slot.String(),
			},
		}}, nil

	case b.Payment.Status == entity.PaymentStatusRefunded ||
		b.Payment.Status == entity.PaymentStatusCompleted:
		return outcomeNoop, nil, nil

	case b.Status == entity.BookingStatusConfirmed || b.Status == entity.BookingStatusCompleted:
		// Confirmed by an admin before the money arrived; the slot is already held.
		b.Payment.Status = entity.PaymentStatusCompleted
		b.Payment.PaidAt = &now
		b.Payment.Raw = raw
		b.UpdatedAt = now
		return outcomeRecorded, nil, nil

	case b.Status != entity.BookingStatusPending:
		// Money arrived after the booking was cancelled or marked no-show.
		b.Payment.Status = entity.PaymentStatusRefunded
		b.Payment.PaidAt = &now
		b.Payment.Raw = raw
		b.UpdatedAt = now
		return outcomeLatePaid, []emission{refundRequired(b, latePaymentReason(b.Status))}, nil
	}

	return outcomeNoop, nil, nil
}

func (r *Reconciler) applyFailed(b *entity.Booking, raw json.RawMessage) (string, []emission) {
	if b.Status != entity.BookingStatusPending || b.Hold.IsOnHold {
		return outcomeNoop, nil
	}

	now := r.Clock.Now()
	b.Payment.Status = entity.PaymentStatusFailed
	b.Payment.Raw = raw
	b.Cancel(now, entity.ActorSystem, "payment failed")

	return outcomeFailed, []emission{{
		userID: b.UserID,
		kind:   notify.KindPaymentFailed,
		payload: map[string]any{
			"booking_code": b.BookingCode,
		},
	}}
}

func latePaymentReason(status entity.BookingStatus) string {
	if status == entity.BookingStatusCancelled {
		return "paid_after_cancellation"
	}
	return "paid_after_" + string(status)
}

func refundRequired(b *entity.Booking, reason string) emission {
	payload := map[string]any{
		"booking_code": b.BookingCode,
		"amount":       b.Pricing.Total,
		"currency":     b.Pricing.Currency,
		"reason":       reason,
	}
	if b.Payment.GatewayOrderID != nil {
		payload["gateway_order_id"] = *b.Payment.GatewayOrderID
	}
	return emission{userID: b.UserID, kind: notify.KindBookingRefundRequired, payload: payload}
}
