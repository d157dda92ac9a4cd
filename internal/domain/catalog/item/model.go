// Package item provides the StockItem catalog: static reference data for every
// trackable SKU. The ledger reads it, never writes it.
package item

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// StockItem represents a catalog entry for a stockable SKU.
type StockItem struct {
	ID id.ID `db:"id" json:"id"`

	// SKU is the unique stock keeping unit code
	SKU  string `db:"sku" json:"sku"`
	Name string `db:"name" json:"name"`

	// Category groups items for valuation reporting
	Category string `db:"category" json:"category,omitempty"`

	// DefaultCost is the fallback cost basis when a movement carries none.
	// It is also the base cost devaluations are validated against.
	DefaultCost  types.Money `db:"default_cost" json:"defaultCost"`
	CurrencyCode string      `db:"currency_code" json:"currencyCode"`

	// IsTrackable enables lot and aggregate bookkeeping. Untrackable items
	// still get movement rows, never lots.
	IsTrackable bool `db:"is_trackable" json:"isTrackable"`

	// Reorder metadata drives the low-stock report
	ReorderPoint    types.Quantity `db:"reorder_point" json:"reorderPoint"`
	ReorderQuantity types.Quantity `db:"reorder_quantity" json:"reorderQuantity"`

	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewStockItem creates a catalog entry with required fields.
func NewStockItem(sku, name string, defaultCost types.Money) *StockItem {
	now := time.Now().UTC()
	return &StockItem{
		ID:           id.New(),
		SKU:          sku,
		Name:         name,
		DefaultCost:  defaultCost,
		CurrencyCode: "USD",
		IsTrackable:  true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks catalog invariants.
func (i *StockItem) Validate(ctx context.Context) error {
	if i.SKU == "" {
		return apperror.NewValidation("sku is required").
			WithDetail("field", "sku")
	}
	if i.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if i.DefaultCost.IsNegative() {
		return apperror.NewValidation("default cost cannot be negative").
			WithDetail("field", "defaultCost")
	}
	if i.ReorderPoint.IsNegative() || i.ReorderQuantity.IsNegative() {
		return apperror.NewValidation("reorder metadata cannot be negative").
			WithDetail("field", "reorderPoint")
	}
	return nil
}
