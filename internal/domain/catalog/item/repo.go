package item

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository defines persistence for the StockItem catalog.
type Repository interface {
	// GetByID retrieves an item, apperror NOT_FOUND if missing.
	GetByID(ctx context.Context, itemID id.ID) (*StockItem, error)

	// GetBySKU retrieves an item by its SKU code.
	GetBySKU(ctx context.Context, sku string) (*StockItem, error)

	// List returns active items ordered by SKU.
	List(ctx context.Context, filter ListFilter) ([]StockItem, error)

	// Create inserts a new catalog entry.
	Create(ctx context.Context, item *StockItem) error

	// UpdateMetadata updates cost and reorder metadata. Identity fields are
	// immutable once an item is referenced by a movement.
	UpdateMetadata(ctx context.Context, item *StockItem) error
}

// ListFilter narrows catalog listings.
type ListFilter struct {
	Category    string
	OnlyActive  bool
	OnlyTracked bool
	Limit       int
	Offset      int
}
