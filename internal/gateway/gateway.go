// Package gateway is the narrow view of the payment provider the booking
// service depends on.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ground-booking/pkg/metrics"
)

// Status is the provider-neutral payment outcome.
type Status string

const (
	StatusPaid           Status = "PAID"
	StatusPendingActive  Status = "PENDING_ACTIVE"
	StatusFailedTerminal Status = "FAILED_TERMINAL"
)

// ErrIgnoredEvent marks webhook events that carry no payment outcome.
var ErrIgnoredEvent = errors.New("ignored webhook event")

type OrderRequest struct {
	BookingID   string
	BookingCode string
	Amount      float64
	Currency    string
	ReturnURL   string
}

type Order struct {
	ID          string
	Amount      float64
	Currency    string
	Status      Status
	CheckoutURL string
	Raw         json.RawMessage
}

// OrderState is a fresh read of an order from the provider.
type OrderState struct {
	OrderID     string
	Status      Status
	CheckoutURL string
	Raw         json.RawMessage
}

type WebhookEvent struct {
	EventID string
	Key     string
	Order   OrderState
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*OrderState, error)
	ParseWebhook(ctx context.Context, body []byte) (*WebhookEvent, error)
}

type instrumented struct {
	next    Gateway
	metrics *metrics.Metrics
}

// Instrument records call latency for every gateway operation.
func Instrument(next Gateway, m *metrics.Metrics) Gateway {
	if m == nil {
		return next
	}
	return &instrumented{next: next, metrics: m}
}

func (g *instrumented) observe(op string, start time.Time) {
	g.metrics.GatewayLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (g *instrumented) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	defer g.observe("create_order", time.Now())
	return g.next.CreateOrder(ctx, req)
}

func (g *instrumented) FetchOrder(ctx context.Context, orderID string) (*OrderState, error) {
	defer g.observe("fetch_order", time.Now())
	return g.next.FetchOrder(ctx, orderID)
}

func (g *instrumented) ParseWebhook(ctx context.Context, body []byte) (*WebhookEvent, error) {
	defer g.observe("parse_webhook", time.Now())
	return g.next.ParseWebhook(ctx, body)
}
