package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ground-booking/internal/data/entity"
	"ground-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrDuplicateKey is returned when a unique constraint (booking code or
// idempotency key) rejects an insert.
var ErrDuplicateKey = errors.New("duplicate key")

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByCode(ctx context.Context, code string) (*entity.Booking, error)
	FindByGatewayOrderID(ctx context.Context, orderID string) (*entity.Booking, error)
	FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	Update(ctx context.Context, booking *entity.Booking) error

	// Partition queries on (ground_id, booking_date)
	LockPartition(ctx context.Context, groundID uuid.UUID, date time.Time) error
	FindLiveByGroundDate(ctx context.Context, groundID uuid.UUID, date time.Time) ([]*entity.Booking, error)
	FindCreatedSince(ctx context.Context, groundID uuid.UUID, date time.Time, since time.Time) ([]*entity.Booking, error)
	SweepExpiredHolds(ctx context.Context, groundID uuid.UUID, date time.Time, now time.Time) (int64, error)
	SweepAllExpiredHolds(ctx context.Context, now time.Time) (int64, error)
}

const bookingColumns = `
	id, booking_code, user_id, ground_id, booking_date, slot_start_min, slot_end_min, status,
	is_on_hold, hold_started_at, hold_expires_at,
	base_amount, discount, fee, total, currency,
	payment_gateway_order_id, payment_status, payment_paid_at, payment_raw,
	idempotency_key,
	confirmed_at, confirmation_code, confirmed_by,
	cancelled_at, cancelled_by, cancellation_reason,
	player_details, created_at, updated_at`

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (*entity.Booking, error) {
	var b entity.Booking
	var raw []byte
	err := row.Scan(
		&b.ID,
		&b.BookingCode,
		&b.UserID,
		&b.GroundID,
		&b.Date,
		&b.Slot.Start,
		&b.Slot.End,
		&b.Status,
		&b.Hold.IsOnHold,
		&b.Hold.StartedAt,
		&b.Hold.ExpiresAt,
		&b.Pricing.BaseAmount,
		&b.Pricing.Discount,
		&b.Pricing.Fee,
		&b.Pricing.Total,
		&b.Pricing.Currency,
		&b.Payment.GatewayOrderID,
		&b.Payment.Status,
		&b.Payment.PaidAt,
		&raw,
		&b.IdempotencyKey,
		&b.Confirmation.ConfirmedAt,
		&b.Confirmation.Code,
		&b.Confirmation.ConfirmedBy,
		&b.Cancellation.CancelledAt,
		&b.Cancellation.CancelledBy,
		&b.Cancellation.Reason,
		&b.PlayerDetails,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Payment.Raw = raw
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		booking.ID,
		booking.BookingCode,
		booking.UserID,
		booking.GroundID,
		booking.Date,
		booking.Slot.Start,
		booking.Slot.End,
		booking.Status,
		booking.Hold.IsOnHold,
		booking.Hold.StartedAt,
		booking.Hold.ExpiresAt,
		booking.Pricing.BaseAmount,
		booking.Pricing.Discount,
		booking.Pricing.Fee,
		booking.Pricing.Total,
		booking.Pricing.Currency,
		booking.Payment.GatewayOrderID,
		booking.Payment.Status,
		booking.Payment.PaidAt,
		[]byte(booking.Payment.Raw),
		booking.IdempotencyKey,
		booking.Confirmation.ConfirmedAt,
		booking.Confirmation.Code,
		booking.Confirmation.ConfirmedBy,
		booking.Cancellation.CancelledAt,
		booking.Cancellation.CancelledBy,
		booking.Cancellation.Reason,
		booking.PlayerDetails,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create booking %s: %w", booking.BookingCode, ErrDuplicateKey)
		}
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_code", booking.BookingCode),
			zap.String("user_id", booking.UserID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.BookingCode, err)
	}

	return nil
}

func (r *bookingRepository) findOne(ctx context.Context, where string, arg any) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where

	booking, err := scanBooking(database.Conn(ctx, r.db).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking",
			zap.Error(err),
			zap.String("where", where),
			zap.Any("arg", arg),
		)
		return nil, fmt.Errorf("find booking where %s: %w", where, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findOne(ctx, "id = $1 FOR UPDATE", id)
}

func (r *bookingRepository) FindByCode(ctx context.Context, code string) (*entity.Booking, error) {
	return r.findOne(ctx, "booking_code = $1", code)
}

func (r *bookingRepository) FindByGatewayOrderID(ctx context.Context, orderID string) (*entity.Booking, error) {
	return r.findOne(ctx, "payment_gateway_order_id = $1", orderID)
}

func (r *bookingRepository) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 AND idempotency_key = $2`

	booking, err := scanBooking(database.Conn(ctx, r.db).QueryRow(ctx, query, userID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by idempotency key",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find booking by idempotency key for user %s: %w", userID.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) queryMany(ctx context.Context, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1 AND is_on_hold = FALSE
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	bookings, err := r.queryMany(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by user ID %s: %w", userID.String(), err)
	}

	return bookings, nil
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE user_id = $1 AND is_on_hold = FALSE`

	var count int64
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count bookings by user ID %s: %w", userID.String(), err)
	}

	return count, nil
}

// Update writes every mutable column; pricing and identity are fixed at insert.
func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	query := `
		UPDATE bookings
		SET status = $2, is_on_hold = $3, hold_started_at = $4, hold_expires_at = $5,
		    payment_gateway_order_id = $6, payment_status = $7, payment_paid_at = $8, payment_raw = $9,
		    confirmed_at = $10, confirmation_code = $11, confirmed_by = $12,
		    cancelled_at = $13, cancelled_by = $14, cancellation_reason = $15,
		    updated_at = $16
		WHERE id = $1
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query,
		booking.ID,
		booking.Status,
		booking.Hold.IsOnHold,
		booking.Hold.StartedAt,
		booking.Hold.ExpiresAt,
		booking.Payment.GatewayOrderID,
		booking.Payment.Status,
		booking.Payment.PaidAt,
		[]byte(booking.Payment.Raw),
		booking.Confirmation.ConfirmedAt,
		booking.Confirmation.Code,
		booking.Confirmation.ConfirmedBy,
		booking.Cancellation.CancelledAt,
		booking.Cancellation.CancelledBy,
		booking.Cancellation.Reason,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to update booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("update booking %s: %w", booking.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", booking.ID.String())
	}

	return nil
}

// LockPartition serialises writers on one (ground, date) until the
// surrounding transaction ends. It must run inside a transaction.
func (r *bookingRepository) LockPartition(ctx context.Context, groundID uuid.UUID, date time.Time) error {
	key := groundID.String() + "/" + date.Format("2006-01-02")

	if _, err := database.Conn(ctx, r.db).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		r.log.Error("Failed to lock partition", zap.Error(err), zap.String("partition", key))
		return fmt.Errorf("lock partition %s: %w", key, err)
	}
	return nil
}

func (r *bookingRepository) FindLiveByGroundDate(ctx context.Context, groundID uuid.UUID, date time.Time) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ground_id = $1 AND booking_date = $2 AND status IN ('pending', 'confirmed')
		ORDER BY slot_start_min, created_at`

	bookings, err := r.queryMany(ctx, query, groundID, date)
	if err != nil {
		r.log.Error("Failed to find bookings by ground and date",
			zap.Error(err),
			zap.String("ground_id", groundID.String()),
			zap.Time("date", date),
		)
		return nil, fmt.Errorf("find bookings for ground %s: %w", groundID.String(), err)
	}

	return bookings, nil
}

func (r *bookingRepository) FindCreatedSince(ctx context.Context, groundID uuid.UUID, date time.Time, since time.Time) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ground_id = $1 AND booking_date = $2 AND created_at >= $3
		  AND status IN ('pending', 'confirmed')`

	bookings, err := r.queryMany(ctx, query, groundID, date, since)
	if err != nil {
		r.log.Error("Failed to find recent bookings",
			zap.Error(err),
			zap.String("ground_id", groundID.String()),
			zap.Time("since", since),
		)
		return nil, fmt.Errorf("find recent bookings for ground %s: %w", groundID.String(), err)
	}

	return bookings, nil
}

func (r *bookingRepository) SweepExpiredHolds(ctx context.Context, groundID uuid.UUID, date time.Time, now time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET is_on_hold = FALSE, status = 'cancelled',
		    cancelled_at = $3, cancelled_by = 'system', cancellation_reason = 'hold expired',
		    updated_at = $3
		WHERE ground_id = $1 AND booking_date = $2 AND is_on_hold = TRUE AND hold_expires_at < $3
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, groundID, date, now)
	if err != nil {
		r.log.Error("Failed to sweep expired holds",
			zap.Error(err),
			zap.String("ground_id", groundID.String()),
		)
		return 0, fmt.Errorf("sweep holds for ground %s: %w", groundID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *bookingRepository) SweepAllExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET is_on_hold = FALSE, status = 'cancelled',
		    cancelled_at = $1, cancelled_by = 'system', cancellation_reason = 'hold expired',
		    updated_at = $1
		WHERE is_on_hold = TRUE AND hold_expires_at < $1
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to sweep all expired holds", zap.Error(err))
		return 0, fmt.Errorf("sweep expired holds: %w", err)
	}

	return result.RowsAffected(), nil
}
