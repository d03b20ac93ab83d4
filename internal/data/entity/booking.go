package entity

import (
	"time"

	"ground-booking/internal/slot"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusNoShow    BookingStatus = "no_show"
)

const (
	ActorSystem = "system"
	ActorAdmin  = "admin"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled, BookingStatusNoShow},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled,
		BookingStatusCompleted, BookingStatusNoShow:
		return true
	}
	return false
}

// Terminal statuses have no outgoing transitions.
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Hold struct {
	IsOnHold  bool       `db:"is_on_hold"`
	StartedAt *time.Time `db:"hold_started_at"`
	ExpiresAt *time.Time `db:"hold_expires_at"`
}

type Pricing struct {
	BaseAmount float64 `db:"base_amount"`
	Discount   float64 `db:"discount"`
	Fee        float64 `db:"fee"`
	Total      float64 `db:"total"`
	Currency   string  `db:"currency"`
}

type Confirmation struct {
	ConfirmedAt *time.Time `db:"confirmed_at"`
	Code        *string    `db:"confirmation_code"`
	ConfirmedBy *string    `db:"confirmed_by"`
}

type Cancellation struct {
	CancelledAt *time.Time `db:"cancelled_at"`
	CancelledBy *string    `db:"cancelled_by"`
	Reason      *string    `db:"cancellation_reason"`
}

type PlayerDetails struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	TeamName    string `json:"team_name,omitempty"`
	PlayerCount int    `json:"player_count,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Booking is one row per reservation attempt; holds are bookings still on hold.
type Booking struct {
	Base
	BookingCode    string        `db:"booking_code"`
	UserID         uuid.UUID     `db:"user_id"`
	GroundID       uuid.UUID     `db:"ground_id"`
	Date           time.Time     `db:"booking_date"`
	Slot           slot.Slot     `db:"-"`
	Status         BookingStatus `db:"status"`
	Hold           Hold
	Pricing        Pricing
	Payment        Payment
	IdempotencyKey *string       `db:"idempotency_key"`
	Confirmation   Confirmation
	Cancellation   Cancellation
	PlayerDetails  PlayerDetails `db:"player_details"`
}

// ActiveHold reports an unexpired hold at now.
func (b *Booking) ActiveHold(now time.Time) bool {
	return b.Hold.IsOnHold && b.Hold.ExpiresAt != nil && !b.Hold.ExpiresAt.Before(now)
}

// ExpiredHold reports a hold flag that outlived its expiry.
func (b *Booking) ExpiredHold(now time.Time) bool {
	return b.Hold.IsOnHold && (b.Hold.ExpiresAt == nil || b.Hold.ExpiresAt.Before(now))
}

// RecentPending is a non-hold pending booking created within window whose payment has not failed.
func (b *Booking) RecentPending(now time.Time, window time.Duration) bool {
	return b.Status == BookingStatusPending &&
		!b.Hold.IsOnHold &&
		b.Payment.Status != PaymentStatusFailed &&
		b.CreatedAt.After(now.Add(-window))
}

func (b *Booking) Confirm(now time.Time, code, by string) {
	b.Status = BookingStatusConfirmed
	b.Confirmation = Confirmation{ConfirmedAt: &now, Code: &code, ConfirmedBy: &by}
	b.UpdatedAt = now
}

func (b *Booking) Cancel(now time.Time, by, reason string) {
	b.Status = BookingStatusCancelled
	b.Hold.IsOnHold = false
	b.Confirmation = Confirmation{}
	b.Cancellation = Cancellation{CancelledAt: &now, CancelledBy: &by, Reason: &reason}
	b.UpdatedAt = now
}
