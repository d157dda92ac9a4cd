package warehouse

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository defines persistence for the Warehouse registry.
type Repository interface {
	// GetByID retrieves a warehouse, apperror NOT_FOUND if missing.
	GetByID(ctx context.Context, warehouseID id.ID) (*Warehouse, error)

	// GetByCode retrieves a warehouse by its code.
	GetByCode(ctx context.Context, code string) (*Warehouse, error)

	// List returns warehouses ordered by code.
	List(ctx context.Context, onlyActive bool) ([]Warehouse, error)

	// Create inserts a new warehouse.
	Create(ctx context.Context, wh *Warehouse) error

	// SetActive flips the active flag.
	SetActive(ctx context.Context, warehouseID id.ID, active bool) error
}
