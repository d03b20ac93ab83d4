package adaptor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ground-booking/internal/dto/request"
	"ground-booking/internal/dto/response"
	"ground-booking/internal/usecase"
	"ground-booking/pkg/apperror"
	"ground-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubHolds struct {
	acquire func(uuid.UUID, *request.CreateHoldRequest) (*response.HoldResponse, error)
	release func(uuid.UUID, string) error
}

func (s *stubHolds) AcquireHold(_ context.Context, userID uuid.UUID, req *request.CreateHoldRequest) (*response.HoldResponse, error) {
	return s.acquire(userID, req)
}

func (s *stubHolds) ReleaseHold(_ context.Context, userID uuid.UUID, holdID string) error {
	return s.release(userID, holdID)
}

type stubBookings struct {
	usecase.BookingService
	create   func(uuid.UUID, *request.CreateBookingRequest, string) (*response.BookingResponse, error)
	getOne   func(usecase.Actor, string) (*response.BookingResponse, error)
	gotActor usecase.Actor
}

func (s *stubBookings) CreateBooking(_ context.Context, userID uuid.UUID, req *request.CreateBookingRequest, key string) (*response.BookingResponse, error) {
	return s.create(userID, req, key)
}

func (s *stubBookings) GetBooking(_ context.Context, actor usecase.Actor, ref string) (*response.BookingResponse, error) {
	s.gotActor = actor
	return s.getOne(actor, ref)
}

type stubPayments struct {
	usecase.PaymentService
	webhookErr error
	webhooks   [][]byte
}

func (s *stubPayments) HandleWebhook(_ context.Context, body []byte) error {
	s.webhooks = append(s.webhooks, body)
	return s.webhookErr
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var resp utils.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func withUser(r *http.Request, userID uuid.UUID, role string) *http.Request {
	return r.WithContext(utils.SetUserContext(r.Context(), userID, role))
}

const holdBody = `{"ground_id":"3f0c1c7e-1b2a-4c1d-9e5f-7a6b5c4d3e2f","date":"2024-06-01","slot":"18:00-19:00"}`

func TestHoldHandler_AcquireHold(t *testing.T) {
	user := uuid.New()

	t.Run("created", func(t *testing.T) {
		h := NewHoldHandler(&stubHolds{
			acquire: func(id uuid.UUID, req *request.CreateHoldRequest) (*response.HoldResponse, error) {
				assert.Equal(t, user, id)
				assert.Equal(t, "18:00-19:00", req.Slot)
				return &response.HoldResponse{HoldID: "h1", Slot: req.Slot}, nil
			},
		}, zap.NewNop())

		rec := httptest.NewRecorder()
		h.AcquireHold(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/holds", strings.NewReader(holdBody)), user, utils.RoleUser))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, decode(t, rec).Status)
	})

	t.Run("slot unavailable maps to 409 with details", func(t *testing.T) {
		h := NewHoldHandler(&stubHolds{
			acquire: func(uuid.UUID, *request.CreateHoldRequest) (*response.HoldResponse, error) {
				return nil, apperror.ErrSlotUnavailable.WithDetail("is_temporary_hold", true)
			},
		}, zap.NewNop())

		rec := httptest.NewRecorder()
		h.AcquireHold(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/holds", strings.NewReader(holdBody)), user, utils.RoleUser))

		assert.Equal(t, http.StatusConflict, rec.Code)
		resp := decode(t, rec)
		assert.False(t, resp.Status)
		assert.Equal(t, apperror.CodeSlotUnavailable, resp.Code)
		assert.Equal(t, map[string]any{"is_temporary_hold": true}, resp.Errors)
	})

	t.Run("invalid body", func(t *testing.T) {
		h := NewHoldHandler(&stubHolds{}, zap.NewNop())

		rec := httptest.NewRecorder()
		h.AcquireHold(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/holds", strings.NewReader("{")), user, utils.RoleUser))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperror.CodeValidationFailed, decode(t, rec).Code)
	})

	t.Run("malformed slot rejected before service", func(t *testing.T) {
		h := NewHoldHandler(&stubHolds{}, zap.NewNop())
		body := strings.Replace(holdBody, "18:00-19:00", "18-19", 1)

		rec := httptest.NewRecorder()
		h.AcquireHold(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/holds", strings.NewReader(body)), user, utils.RoleUser))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec).Errors, "Slot")
	})

	t.Run("no user", func(t *testing.T) {
		h := NewHoldHandler(&stubHolds{}, zap.NewNop())

		rec := httptest.NewRecorder()
		h.AcquireHold(rec, httptest.NewRequest(http.MethodPost, "/api/holds", strings.NewReader(holdBody)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHoldHandler_ReleaseHoldReadsURLParam(t *testing.T) {
	user := uuid.New()
	var got string
	h := NewHoldHandler(&stubHolds{
		release: func(_ uuid.UUID, id string) error {
			got = id
			return nil
		},
	}, zap.NewNop())

	r := chi.NewRouter()
	r.Delete("/api/holds/{holdId}", h.ReleaseHold)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodDelete, "/api/holds/abc", nil), user, utils.RoleUser))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", got)
}

func TestBookingHandler_CreateBookingPassesIdempotencyKey(t *testing.T) {
	user := uuid.New()
	var key string
	h := NewBookingHandler(&stubBookings{
		create: func(_ uuid.UUID, _ *request.CreateBookingRequest, k string) (*response.BookingResponse, error) {
			key = k
			return &response.BookingResponse{BookingCode: "GB-240601-ABCDEF"}, nil
		},
	}, zap.NewNop())

	body := `{"ground_id":"3f0c1c7e-1b2a-4c1d-9e5f-7a6b5c4d3e2f","date":"2024-06-01","slot":"18:00-19:00",
		"player_details":{"name":"Rahul","phone":"9800000000"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "retry-1")

	rec := httptest.NewRecorder()
	h.CreateBooking(rec, withUser(req, user, utils.RoleUser))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "retry-1", key)
	assert.True(t, decode(t, rec).Status)
}

func TestBookingHandler_GetBooking(t *testing.T) {
	user := uuid.New()

	t.Run("passes actor role", func(t *testing.T) {
		stub := &stubBookings{
			getOne: func(usecase.Actor, string) (*response.BookingResponse, error) {
				return &response.BookingResponse{BookingCode: "GB-1"}, nil
			},
		}
		h := NewBookingHandler(stub, zap.NewNop())
		r := chi.NewRouter()
		r.Get("/api/bookings/{id}", h.GetBooking)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/bookings/GB-1", nil), user, utils.RoleOwner))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, usecase.Actor{UserID: user, Role: utils.RoleOwner}, stub.gotActor)
	})

	t.Run("unexpected error is 500", func(t *testing.T) {
		h := NewBookingHandler(&stubBookings{
			getOne: func(usecase.Actor, string) (*response.BookingResponse, error) {
				return nil, errors.New("boom")
			},
		}, zap.NewNop())
		r := chi.NewRouter()
		r.Get("/api/bookings/{id}", h.GetBooking)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/bookings/GB-1", nil), user, utils.RoleUser))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("store unavailable is 503", func(t *testing.T) {
		h := NewBookingHandler(&stubBookings{
			getOne: func(usecase.Actor, string) (*response.BookingResponse, error) {
				return nil, apperror.ErrStoreUnavailable.Wrap(errors.New("dial tcp"))
			},
		}, zap.NewNop())
		r := chi.NewRouter()
		r.Get("/api/bookings/{id}", h.GetBooking)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/bookings/GB-1", nil), user, utils.RoleUser))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, apperror.CodeStoreUnavailable, decode(t, rec).Code)
	})
}

func TestPaymentHandler_WebhookAlwaysAcknowledges(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"processed", nil},
		{"processing failed", errors.New("unknown event")},
		{"store down", apperror.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubPayments{webhookErr: tt.err}
			h := NewPaymentHandler(stub, zap.NewNop())

			rec := httptest.NewRecorder()
			h.Webhook(rec, httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(`{"id":"evnt_1"}`)))

			assert.Equal(t, http.StatusOK, rec.Code)
			require.Len(t, stub.webhooks, 1)
			assert.JSONEq(t, `{"id":"evnt_1"}`, string(stub.webhooks[0]))
		})
	}
}
