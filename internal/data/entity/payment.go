package entity

import (
	"encoding/json"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment is the booking's payment sub-record.
type Payment struct {
	GatewayOrderID *string         `db:"payment_gateway_order_id"`
	Status         PaymentStatus   `db:"payment_status"`
	PaidAt         *time.Time      `db:"payment_paid_at"`
	Raw            json.RawMessage `db:"payment_raw"`
}

// HasOrder reports whether a gateway order was registered.
func (p Payment) HasOrder() bool {
	return p.GatewayOrderID != nil && *p.GatewayOrderID != ""
}
