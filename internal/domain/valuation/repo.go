package valuation

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

// Repository defines the read side the valuation engine is built on.
// Implementations return raw rows; costing policy and grouping live in the
// service.
type Repository interface {
	// AnyLotsExist reports whether any lot rows exist for active trackable
	// items. The answer switches the whole report between costing modes.
	AnyLotsExist(ctx context.Context) (bool, error)

	// LotValueRows returns one row per non-empty lot with item and warehouse
	// metadata joined, UnitCost from the lot.
	LotValueRows(ctx context.Context, filter Filter) ([]Row, error)

	// DefaultCostRows returns one row per non-zero aggregate with UnitCost
	// from the item's default cost (lot-free fallback).
	DefaultCostRows(ctx context.Context, filter Filter) ([]Row, error)

	// MovementHistory returns ledger rows newest-first.
	MovementHistory(ctx context.Context, filter HistoryFilter) ([]ledger.StockMovement, error)

	// Turnover sums receipts and expenses over a period, with opening balance.
	Turnover(ctx context.Context, filter TurnoverFilter) (Turnover, error)

	// LowStock returns items at or below their reorder point.
	LowStock(ctx context.Context, warehouseID *id.ID) ([]LowStockRow, error)
}
