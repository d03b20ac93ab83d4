// Package notify delivers booking lifecycle events to downstream consumers.
//
// Emission is fire-and-forget: a failed delivery is retried with backoff and
// then logged, never surfaced to the request that triggered it.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	KindBookingPending        = "booking.pending"
	KindBookingConfirmed      = "booking.confirmed"
	KindBookingCancelled      = "booking.cancelled"
	KindBookingRefundRequired = "booking.refund_required"
	KindPaymentFailed         = "payment.failed"
)

// Sink accepts notifications. Emit must not block on delivery.
type Sink interface {
	Emit(ctx context.Context, userID uuid.UUID, kind string, payload map[string]any)
}

// Event is the message body sent to the broker.
type Event struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	UserID     string         `json:"user_id"`
	OccurredAt string         `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

func newEvent(userID uuid.UUID, kind string, payload map[string]any, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		UserID:     userID.String(),
		OccurredAt: now.UTC().Format(time.RFC3339),
		Payload:    payload,
	}
}

// LogSink only writes the event to the log. Used when no broker is configured.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.With(zap.String("sink", "log"))}
}

func (s *LogSink) Emit(_ context.Context, userID uuid.UUID, kind string, payload map[string]any) {
	s.log.Info("Notification",
		zap.String("kind", kind),
		zap.String("user_id", userID.String()),
		zap.Any("payload", payload),
	)
}
