package response

import (
	"time"

	"ground-booking/internal/data/entity"
	"ground-booking/internal/slot"
)

type HoldResponse struct {
	HoldID    string    `json:"hold_id"`
	GroundID  string    `json:"ground_id"`
	Date      string    `json:"date"`
	Slot      string    `json:"slot"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SlotResponse struct {
	Start         string  `json:"start"`
	End           string  `json:"end"`
	DurationHours float64 `json:"duration_hours"`
}

type PricingResponse struct {
	BaseAmount float64 `json:"base_amount"`
	Discount   float64 `json:"discount"`
	Fee        float64 `json:"fee"`
	Total      float64 `json:"total"`
	Currency   string  `json:"currency"`
}

type PaymentResponse struct {
	GatewayOrderID *string              `json:"gateway_order_id,omitempty"`
	Status         entity.PaymentStatus `json:"status"`
	PaidAt         *time.Time           `json:"paid_at,omitempty"`
}

type ConfirmationResponse struct {
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	Code        *string    `json:"code,omitempty"`
	ConfirmedBy *string    `json:"confirmed_by,omitempty"`
}

type CancellationResponse struct {
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy *string    `json:"cancelled_by,omitempty"`
	Reason      *string    `json:"reason,omitempty"`
}

type BookingResponse struct {
	ID            string                `json:"id"`
	BookingCode   string                `json:"booking_code"`
	UserID        string                `json:"user_id"`
	GroundID      string                `json:"ground_id"`
	Date          string                `json:"date"`
	Slot          SlotResponse          `json:"slot"`
	Status        entity.BookingStatus  `json:"status"`
	Pricing       PricingResponse       `json:"pricing"`
	Payment       PaymentResponse       `json:"payment"`
	Confirmation  *ConfirmationResponse `json:"confirmation,omitempty"`
	Cancellation  *CancellationResponse `json:"cancellation,omitempty"`
	PlayerDetails entity.PlayerDetails  `json:"player_details"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type BookedSlot struct {
	Slot   string               `json:"slot"`
	Status entity.BookingStatus `json:"status"`
	Held   bool                 `json:"held"`
}

type AvailabilityResponse struct {
	GroundID       string       `json:"ground_id"`
	Date           string       `json:"date"`
	AvailableSlots []string     `json:"available_slots"`
	BookedSlots    []BookedSlot `json:"booked_slots"`
}

type OrderResponse struct {
	OrderID     string  `json:"order_id"`
	BookingCode string  `json:"booking_code"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	CheckoutURL string  `json:"checkout_url,omitempty"`
	Reused      bool    `json:"reused"`
}

// Helper converters
func HoldToResponse(b *entity.Booking) *HoldResponse {
	resp := &HoldResponse{
		HoldID:   b.ID.String(),
		GroundID: b.GroundID.String(),
		Date:     b.Date.Format("2006-01-02"),
		Slot:     b.Slot.String(),
	}
	if b.Hold.ExpiresAt != nil {
		resp.ExpiresAt = *b.Hold.ExpiresAt
	}
	return resp
}

func BookingToResponse(b *entity.Booking) *BookingResponse {
	resp := &BookingResponse{
		ID:          b.ID.String(),
		BookingCode: b.BookingCode,
		UserID:      b.UserID.String(),
		GroundID:    b.GroundID.String(),
		Date:        b.Date.Format("2006-01-02"),
		Slot: SlotResponse{
			Start:         slot.FormatClock(b.Slot.Start),
			End:           slot.FormatClock(b.Slot.End),
			DurationHours: b.Slot.Hours(),
		},
		Status: b.Status,
		Pricing: PricingResponse{
			BaseAmount: b.Pricing.BaseAmount,
			Discount:   b.Pricing.Discount,
			Fee:        b.Pricing.Fee,
			Total:      b.Pricing.Total,
			Currency:   b.Pricing.Currency,
		},
		Payment: PaymentResponse{
			GatewayOrderID: b.Payment.GatewayOrderID,
			Status:         b.Payment.Status,
			PaidAt:         b.Payment.PaidAt,
		},
		PlayerDetails: b.PlayerDetails,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}

	if b.Confirmation.ConfirmedAt != nil {
		resp.Confirmation = &ConfirmationResponse{
			ConfirmedAt: b.Confirmation.ConfirmedAt,
			Code:        b.Confirmation.Code,
			ConfirmedBy: b.Confirmation.ConfirmedBy,
		}
	}
	if b.Cancellation.CancelledAt != nil {
		resp.Cancellation = &CancellationResponse{
			CancelledAt: b.Cancellation.CancelledAt,
			CancelledBy: b.Cancellation.CancelledBy,
			Reason:      b.Cancellation.Reason,
		}
	}

	return resp
}
