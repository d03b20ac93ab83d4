package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"go.uber.org/zap"
)

type OmiseConfig struct {
	PublicKey  string
	SecretKey  string
	SourceType string
	Timeout    time.Duration
}

type omiseGateway struct {
	client     *omise.Client
	sourceType string
	log        *zap.Logger
}

// NewOmise builds a Gateway backed by Omise charges. Each order is one charge
// created from a fresh source; the charge's authorize URI is the checkout URL.
func NewOmise(cfg OmiseConfig, log *zap.Logger) (Gateway, error) {
	c, err := omise.NewClient(cfg.PublicKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}

	return &omiseGateway{
		client:     c,
		sourceType: cfg.SourceType,
		log:        log.With(zap.String("gateway", "omise")),
	}, nil
}

func (g *omiseGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	amount := toMinorUnits(req.Amount)
	currency := strings.ToLower(req.Currency)

	src := &omise.Source{}
	if err := g.client.Do(src, &operations.CreateSource{
		Type:     g.sourceType,
		Amount:   amount,
		Currency: currency,
	}); err != nil {
		g.log.Error("Failed to create source",
			zap.Error(err),
			zap.String("booking_code", req.BookingCode),
		)
		return nil, fmt.Errorf("create source for %s: %w", req.BookingCode, err)
	}

	ch := &omise.Charge{}
	if err := g.client.Do(ch, &operations.CreateCharge{
		Amount:    amount,
		Currency:  currency,
		Source:    src.ID,
		ReturnURI: req.ReturnURL,
		Metadata: map[string]interface{}{
			"booking_id":   req.BookingID,
			"booking_code": req.BookingCode,
		},
	}); err != nil {
		g.log.Error("Failed to create charge",
			zap.Error(err),
			zap.String("booking_code", req.BookingCode),
		)
		return nil, fmt.Errorf("create charge for %s: %w", req.BookingCode, err)
	}

	raw := g.rawCharge(ch)
	return &Order{
		ID:          ch.ID,
		Amount:      fromMinorUnits(ch.Amount),
		Currency:    strings.ToUpper(ch.Currency),
		Status:      MapChargeStatus(string(ch.Status)),
		CheckoutURL: ch.AuthorizeURI,
		Raw:         raw,
	}, nil
}

func (g *omiseGateway) FetchOrder(ctx context.Context, orderID string) (*OrderState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := &omise.Charge{}
	if err := g.client.Do(ch, &operations.RetrieveCharge{ChargeID: orderID}); err != nil {
		return nil, fmt.Errorf("retrieve charge %s: %w", orderID, err)
	}

	raw := g.rawCharge(ch)
	return &OrderState{
		OrderID:     ch.ID,
		Status:      MapChargeStatus(string(ch.Status)),
		CheckoutURL: ch.AuthorizeURI,
		Raw:         raw,
	}, nil
}

// rawCharge keeps the provider payload for audit. A charge that cannot be
// encoded is stored without it.
func (g *omiseGateway) rawCharge(ch *omise.Charge) json.RawMessage {
	raw, err := json.Marshal(ch)
	if err != nil {
		g.log.Warn("Failed to encode charge payload",
			zap.Error(err),
			zap.String("charge_id", ch.ID),
		)
		return nil
	}
	return raw
}

type incomingEvent struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// ParseWebhook trusts only the event id from the body; the event itself is
// re-read from Omise so a forged payload cannot move a booking.
func (g *omiseGateway) ParseWebhook(ctx context.Context, body []byte) (*WebhookEvent, error) {
	var inc incomingEvent
	if err := json.Unmarshal(body, &inc); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	if inc.ID == "" {
		return nil, errors.New("webhook body has no event id")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ev := &omise.Event{}
	if err := g.client.Do(ev, &operations.RetrieveEvent{EventID: inc.ID}); err != nil {
		return nil, fmt.Errorf("retrieve event %s: %w", inc.ID, err)
	}

	if !strings.HasPrefix(ev.Key, "charge.") {
		return nil, fmt.Errorf("%w: %s", ErrIgnoredEvent, ev.Key)
	}

	// ev.Data is decoded generically; round-trip it into a Charge.
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	var ch omise.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, fmt.Errorf("unmarshal charge: %w", err)
	}
	if ch.ID == "" {
		return nil, fmt.Errorf("%w: %s has no charge", ErrIgnoredEvent, ev.Key)
	}

	return &WebhookEvent{
		EventID: inc.ID,
		Key:     ev.Key,
		Order: OrderState{
			OrderID: ch.ID,
			Status:  MapChargeStatus(string(ch.Status)),
			Raw:     raw,
		},
	}, nil
}

// MapChargeStatus folds Omise charge statuses onto the three outcomes the
// reconciler understands. Unknown statuses are treated as still pending.
func MapChargeStatus(s string) Status {
	switch s {
	case "successful":
		return StatusPaid
	case "failed", "expired", "reversed":
		return StatusFailedTerminal
	default:
		return StatusPendingActive
	}
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
