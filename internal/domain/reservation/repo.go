package reservation

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

// Repository defines persistence for reservations.
type Repository interface {
	// Insert stores a new reservation.
	Insert(ctx context.Context, res *StockReservation) error

	// GetForUpdate locks and returns a reservation, apperror NOT_FOUND if missing.
	GetForUpdate(ctx context.Context, resID id.ID) (*StockReservation, error)

	// Get reads without locking.
	Get(ctx context.Context, resID id.ID) (*StockReservation, error)

	// UpdateStatus transitions a reservation and stamps released_at.
	UpdateStatus(ctx context.Context, res *StockReservation) error

	// ListActive returns open reservations for a key.
	ListActive(ctx context.Context, itemID, warehouseID id.ID) ([]StockReservation, error)
}

// AggregateStore is the slice of the ledger repository the reservation
// manager writes through: it adjusts quantity_reserved, never on-hand.
type AggregateStore interface {
	GetAggregateForUpdate(ctx context.Context, itemID, warehouseID id.ID) (*ledger.WarehouseStock, error)
	UpsertAggregate(ctx context.Context, agg *ledger.WarehouseStock) error
}
