package repository

import (
	"context"

	"ground-booking/pkg/database"

	"go.uber.org/zap"
)

// TxManager runs a function inside one store transaction.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repository struct {
	Tx      TxManager
	Booking BookingRepository
	Ground  GroundRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Tx:      &pgxTxManager{db: db},
		Booking: NewBookingRepository(db, log),
		Ground:  NewGroundRepository(db, log),
	}
}

type pgxTxManager struct {
	db database.PgxIface
}

func (m *pgxTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithTx(ctx, m.db, fn)
}
