package repository

import (
	"context"
	"errors"
	"fmt"

	"ground-booking/internal/data/entity"
	"ground-booking/internal/pricing"
	"ground-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// GroundRepository is the read-only view of the ground catalog.
type GroundRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Ground, error)
	GetRateTable(ctx context.Context, id uuid.UUID) (*pricing.RateTable, error)
	GetCapacity(ctx context.Context, id uuid.UUID) (int, error)
}

type groundRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewGroundRepository(db database.PgxIface, log *zap.Logger) GroundRepository {
	return &groundRepository{
		db:  db,
		log: log.With(zap.String("repository", "ground")),
	}
}

func (r *groundRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Ground, error) {
	query := `
		SELECT id, owner_id, name, capacity, rate_table, is_active, created_at, updated_at
		FROM grounds
		WHERE id = $1 AND deleted_at IS NULL
	`

	var ground entity.Ground
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&ground.ID,
		&ground.OwnerID,
		&ground.Name,
		&ground.Capacity,
		&ground.Rates,
		&ground.IsActive,
		&ground.CreatedAt,
		&ground.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find ground by ID",
			zap.Error(err),
			zap.String("ground_id", id.String()),
		)
		return nil, fmt.Errorf("find ground by ID %s: %w", id.String(), err)
	}

	return &ground, nil
}

// GetRateTable returns nil for unknown or inactive grounds.
func (r *groundRepository) GetRateTable(ctx context.Context, id uuid.UUID) (*pricing.RateTable, error) {
	query := `
		SELECT rate_table
		FROM grounds
		WHERE id = $1 AND is_active = true AND deleted_at IS NULL
	`

	var rates pricing.RateTable
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, id).Scan(&rates)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to get rate table",
			zap.Error(err),
			zap.String("ground_id", id.String()),
		)
		return nil, fmt.Errorf("get rate table for ground %s: %w", id.String(), err)
	}

	return &rates, nil
}

func (r *groundRepository) GetCapacity(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		SELECT capacity
		FROM grounds
		WHERE id = $1 AND deleted_at IS NULL
	`

	var capacity int
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, id).Scan(&capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("ground %s not found", id.String())
	}
	if err != nil {
		r.log.Error("Failed to get ground capacity",
			zap.Error(err),
			zap.String("ground_id", id.String()),
		)
		return 0, fmt.Errorf("get capacity for ground %s: %w", id.String(), err)
	}

	return capacity, nil
}
