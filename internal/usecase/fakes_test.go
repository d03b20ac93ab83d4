package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"ground-booking/internal/data/entity"
	"ground-booking/internal/data/repository"
	"ground-booking/internal/dto/request"
	"ground-booking/internal/dto/response"
	"ground-booking/internal/gateway"
	"ground-booking/internal/pricing"
	"ground-booking/pkg/apperror"
	"ground-booking/pkg/database"
	"ground-booking/pkg/metrics"
	"ground-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ==================== BOOKINGS ====================

type memBookings struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*entity.Booking

	// lateCommits are rows a concurrent writer committed after the live
	// partition was read; only FindCreatedSince sees them.
	lateCommits []*entity.Booking
}

func newMemBookings() *memBookings {
	return &memBookings{rows: make(map[uuid.UUID]*entity.Booking)}
}

func clone(b *entity.Booking) *entity.Booking {
	cp := *b
	return &cp
}

func (m *memBookings) snapshot() map[uuid.UUID]*entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[uuid.UUID]*entity.Booking, len(m.rows))
	for id, b := range m.rows {
		snap[id] = clone(b)
	}
	return snap
}

func (m *memBookings) restore(snap map[uuid.UUID]*entity.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = snap
}

func (m *memBookings) all() []*entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.Booking, 0, len(m.rows))
	for _, b := range m.rows {
		out = append(out, clone(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *memBookings) get(id uuid.UUID) *entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.rows[id]; ok {
		return clone(b)
	}
	return nil
}

func (m *memBookings) put(b *entity.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[b.ID] = clone(b)
}

func (m *memBookings) Create(_ context.Context, b *entity.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.BookingCode == b.BookingCode {
			return fmt.Errorf("create booking %s: %w", b.BookingCode, repository.ErrDuplicateKey)
		}
		if b.IdempotencyKey != nil && r.IdempotencyKey != nil &&
			r.UserID == b.UserID && *r.IdempotencyKey == *b.IdempotencyKey {
			return fmt.Errorf("create booking %s: %w", b.BookingCode, repository.ErrDuplicateKey)
		}
	}
	m.rows[b.ID] = clone(b)
	return nil
}

func (m *memBookings) findOne(match func(*entity.Booking) bool) *entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if match(b) {
			return clone(b)
		}
	}
	return nil
}

func (m *memBookings) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	return m.get(id), nil
}

func (m *memBookings) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return m.FindByID(ctx, id)
}

func (m *memBookings) FindByCode(_ context.Context, code string) (*entity.Booking, error) {
	return m.findOne(func(b *entity.Booking) bool { return b.BookingCode == code }), nil
}

func (m *memBookings) FindByGatewayOrderID(_ context.Context, orderID string) (*entity.Booking, error) {
	return m.findOne(func(b *entity.Booking) bool {
		return b.Payment.GatewayOrderID != nil && *b.Payment.GatewayOrderID == orderID
	}), nil
}

func (m *memBookings) FindByIdempotencyKey(_ context.Context, userID uuid.UUID, key string) (*entity.Booking, error) {
	return m.findOne(func(b *entity.Booking) bool {
		return b.UserID == userID && b.IdempotencyKey != nil && *b.IdempotencyKey == key
	}), nil
}

func (m *memBookings) userRows(userID uuid.UUID) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range m.all() {
		if b.UserID == userID && !b.Hold.IsOnHold {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memBookings) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	rows := m.userRows(userID)
	if offset >= len(rows) {
		return nil, nil
	}
	end := min(offset+limit, len(rows))
	return rows[offset:end], nil
}

func (m *memBookings) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	return int64(len(m.userRows(userID))), nil
}

func (m *memBookings) Update(_ context.Context, b *entity.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[b.ID]; !ok {
		return fmt.Errorf("booking %s not found", b.ID)
	}
	m.rows[b.ID] = clone(b)
	return nil
}

func (m *memBookings) LockPartition(context.Context, uuid.UUID, time.Time) error {
	return nil
}

func (m *memBookings) partition(groundID uuid.UUID, date time.Time, keep func(*entity.Booking) bool) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range m.all() {
		live := b.Status == entity.BookingStatusPending || b.Status == entity.BookingStatusConfirmed
		if b.GroundID == groundID && b.Date.Equal(date) && live && keep(b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slot.Start < out[j].Slot.Start })
	return out
}

func (m *memBookings) FindLiveByGroundDate(_ context.Context, groundID uuid.UUID, date time.Time) ([]*entity.Booking, error) {
	return m.partition(groundID, date, func(*entity.Booking) bool { return true }), nil
}

func (m *memBookings) FindCreatedSince(_ context.Context, groundID uuid.UUID, date, since time.Time) ([]*entity.Booking, error) {
	rows := m.partition(groundID, date, func(b *entity.Booking) bool { return !b.CreatedAt.Before(since) })
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.lateCommits {
		if b.GroundID == groundID && b.Date.Equal(date) && !b.CreatedAt.Before(since) {
			rows = append(rows, clone(b))
		}
	}
	return rows, nil
}

func (m *memBookings) sweep(now time.Time, match func(*entity.Booking) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.rows {
		if match(b) && b.Hold.IsOnHold && b.Hold.ExpiresAt != nil && b.Hold.ExpiresAt.Before(now) {
			b.Cancel(now, entity.ActorSystem, "hold expired")
			n++
		}
	}
	return n
}

func (m *memBookings) SweepExpiredHolds(_ context.Context, groundID uuid.UUID, date, now time.Time) (int64, error) {
	return m.sweep(now, func(b *entity.Booking) bool {
		return b.GroundID == groundID && b.Date.Equal(date)
	}), nil
}

func (m *memBookings) SweepAllExpiredHolds(_ context.Context, now time.Time) (int64, error) {
	return m.sweep(now, func(*entity.Booking) bool { return true }), nil
}

// ==================== TX ====================

// memTx serialises transactions and rolls the booking table back on error,
// standing in for the partition lock plus a real transaction.
type memTx struct {
	mu       sync.Mutex
	bookings *memBookings
	failNext error
}

func (t *memTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failNext != nil {
		err := t.failNext
		t.failNext = nil
		return err
	}

	snap := t.bookings.snapshot()
	if err := fn(ctx); err != nil {
		t.bookings.restore(snap)
		return err
	}
	return nil
}

// ==================== GROUNDS ====================

type memGrounds struct {
	rows map[uuid.UUID]*entity.Ground
}

func (g *memGrounds) FindByID(_ context.Context, id uuid.UUID) (*entity.Ground, error) {
	if ground, ok := g.rows[id]; ok {
		cp := *ground
		return &cp, nil
	}
	return nil, nil
}

func (g *memGrounds) GetRateTable(ctx context.Context, id uuid.UUID) (*pricing.RateTable, error) {
	ground, _ := g.FindByID(ctx, id)
	if ground == nil || !ground.IsActive {
		return nil, nil
	}
	return &ground.Rates, nil
}

func (g *memGrounds) GetCapacity(ctx context.Context, id uuid.UUID) (int, error) {
	ground, _ := g.FindByID(ctx, id)
	if ground == nil {
		return 0, errors.New("ground not found")
	}
	return ground.Capacity, nil
}

// ==================== GATEWAY ====================

type fakeGateway struct {
	mu         sync.Mutex
	created    int
	fetched    int
	createErr  error
	fetchErr   error
	statuses   map[string]gateway.Status
	webhook    *gateway.WebhookEvent
	webhookErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: make(map[string]gateway.Status)}
}

func (g *fakeGateway) setStatus(orderID string, s gateway.Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[orderID] = s
}

func (g *fakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created++
	id := fmt.Sprintf("chrg_test_%d", g.created)
	g.statuses[id] = gateway.StatusPendingActive
	return &gateway.Order{
		ID:          id,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      gateway.StatusPendingActive,
		CheckoutURL: "https://pay.example/" + id,
		Raw:         json.RawMessage(`{"id":"` + id + `"}`),
	}, nil
}

func (g *fakeGateway) FetchOrder(_ context.Context, orderID string) (*gateway.OrderState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetched++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	status, ok := g.statuses[orderID]
	if !ok {
		return nil, fmt.Errorf("charge %s not found", orderID)
	}
	return &gateway.OrderState{
		OrderID:     orderID,
		Status:      status,
		CheckoutURL: "https://pay.example/" + orderID,
		Raw:         json.RawMessage(`{"id":"` + orderID + `","status":"` + string(status) + `"}`),
	}, nil
}

func (g *fakeGateway) ParseWebhook(context.Context, []byte) (*gateway.WebhookEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.webhook, g.webhookErr
}

// ==================== NOTIFY ====================

type sentNotification struct {
	UserID  uuid.UUID
	Kind    string
	Payload map[string]any
}

type recordingSink struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (s *recordingSink) Emit(_ context.Context, userID uuid.UUID, kind string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentNotification{UserID: userID, Kind: kind, Payload: payload})
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, n := range s.sent {
		out = append(out, n.Kind)
	}
	return out
}

// ==================== CLOCK ====================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ==================== ENV ====================

type testEnv struct {
	svc      *Service
	deps     Deps
	bookings *memBookings
	tx       *memTx
	grounds  *memGrounds
	gw       *fakeGateway
	sink     *recordingSink
	clock    *fakeClock
	metrics  *metrics.Metrics

	groundID uuid.UUID
	ownerID  uuid.UUID
}

const testDate = "2024-06-01"

func testConfig() *utils.Config {
	return &utils.Config{
		App: utils.AppConfig{Name: "ground-booking-test", Timezone: "UTC"},
		Booking: utils.BookingConfig{
			HoldTTL:           5 * time.Minute,
			HoldSweepInterval: time.Minute,
			PendingWindow:     10 * time.Minute,
			RecentWindow:      30 * time.Second,
			OpenHour:          6,
			CloseHour:         23,
		},
		Payment: utils.PaymentConfig{
			Currency:  "INR",
			MinAmount: 1,
			ReturnURL: "https://app.example/return",
			Timeout:   time.Second,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	bookings := newMemBookings()
	tx := &memTx{bookings: bookings}
	groundID := uuid.New()
	ownerID := uuid.New()
	grounds := &memGrounds{rows: map[uuid.UUID]*entity.Ground{
		groundID: {
			Base:     entity.Base{ID: groundID},
			OwnerID:  ownerID,
			Name:     "Oval Nets",
			Capacity: 22,
			IsActive: true,
			Rates: pricing.RateTable{
				Ranges: []pricing.RateRange{
					{StartHour: 6, EndHour: 18, PerHour: 500},
					{StartHour: 18, EndHour: 6, PerHour: 800},
				},
			},
		},
	}}

	env := &testEnv{
		bookings: bookings,
		tx:       tx,
		grounds:  grounds,
		gw:       newFakeGateway(),
		sink:     &recordingSink{},
		clock:    &fakeClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
		metrics:  metrics.NewMetrics("test", prometheus.NewRegistry()),
		groundID: groundID,
		ownerID:  ownerID,
	}

	env.deps = Deps{
		Repo: &repository.Repository{
			Tx:      tx,
			Booking: bookings,
			Ground:  grounds,
		},
		Gateway:  env.gw,
		Notifier: env.sink,
		Metrics:  env.metrics,
		Clock:    env.clock,
		Config:   testConfig(),
		Log:      zap.NewNop(),
	}
	env.svc = NewService(env.deps)

	return env
}

func (e *testEnv) holdReq(s string) *request.CreateHoldRequest {
	return &request.CreateHoldRequest{GroundID: e.groundID.String(), Date: testDate, Slot: s}
}

func (e *testEnv) bookingReq(s string) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		GroundID: e.groundID.String(),
		Date:     testDate,
		Slot:     s,
		PlayerDetails: request.PlayerDetailsRequest{
			Name:  "Rahul Dravid",
			Phone: "9800000000",
		},
	}
}

// book creates a pending booking for userID and fails the test on error.
func (e *testEnv) book(t *testing.T, userID uuid.UUID, s string) *response.BookingResponse {
	t.Helper()
	resp, err := e.svc.Booking.CreateBooking(context.Background(), userID, e.bookingReq(s), "")
	require.NoError(t, err)
	return resp
}

// bookWithOrder creates a pending booking and registers a gateway order on it.
func (e *testEnv) bookWithOrder(t *testing.T, userID uuid.UUID, s string) (*response.BookingResponse, string) {
	t.Helper()
	b := e.book(t, userID, s)
	order, err := e.svc.Payment.CreateOrder(context.Background(), userID, &request.CreateOrderRequest{BookingCode: b.BookingCode})
	require.NoError(t, err)
	return b, order.OrderID
}

func requireAppError(t *testing.T, err error, code string) *apperror.Error {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected *apperror.Error, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

func adminReq(e *testEnv, s string) *request.AdminCreateBookingRequest {
	return &request.AdminCreateBookingRequest{CreateBookingRequest: *e.bookingReq(s)}
}

func errBeginTx() error {
	return fmt.Errorf("%w: connection refused", database.ErrBeginTx)
}
