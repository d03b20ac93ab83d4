package entity

import (
	"ground-booking/internal/pricing"

	"github.com/google/uuid"
)

// Ground is the catalog view this service reads; catalog CRUD lives elsewhere.
type Ground struct {
	Base
	OwnerID  uuid.UUID         `db:"owner_id"`
	Name     string            `db:"name"`
	Capacity int               `db:"capacity"`
	Rates    pricing.RateTable `db:"rate_table"`
	IsActive bool              `db:"is_active"`
}
