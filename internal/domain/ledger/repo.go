package ledger

import (
	"context"
	"encoding/json"
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Repository defines persistence for movements, lots, and the aggregate.
// All mutating methods must be called inside a transaction; the row returned
// by GetAggregateForUpdate stays locked until that transaction ends.
type Repository interface {
	// Movements (append-only: insert and read, never update or delete)

	InsertMovement(ctx context.Context, m *StockMovement) error
	GetMovement(ctx context.Context, movementID id.ID) (*StockMovement, error)

	// SumMovements returns the signed sum of all aggregate-affecting movement
	// quantities for the key. This is the replay used to rebuild the aggregate.
	SumMovements(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, error)

	// Lots

	InsertLot(ctx context.Context, lot *StockLot) error

	// GetLotForUpdate locks and returns one lot, apperror NOT_FOUND if missing.
	GetLotForUpdate(ctx context.Context, lotID id.ID) (*StockLot, error)

	// GetLotsForUpdate locks and returns the non-empty lots of a key in FIFO
	// order (oldest first). lotType narrows to one layer kind when non-nil.
	GetLotsForUpdate(ctx context.Context, itemID, warehouseID id.ID, lotType *LotType) ([]StockLot, error)

	// FindDevaluedLotForUpdate locks and returns the devalued lot at exactly
	// unitCost, or nil when none exists. Devaluations extend it rather than
	// stacking duplicate layers.
	FindDevaluedLotForUpdate(ctx context.Context, itemID, warehouseID id.ID, unitCost types.Money) (*StockLot, error)

	// SetLotQuantity writes a lot's remaining quantity.
	SetLotQuantity(ctx context.Context, lotID id.ID, qty types.Quantity) error

	// SumLotQuantity returns the total remaining lot quantity for a key.
	SumLotQuantity(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, error)

	// Aggregate

	// GetAggregateForUpdate locks and returns the aggregate row, or a zero-
	// quantity row when the key has never moved.
	GetAggregateForUpdate(ctx context.Context, itemID, warehouseID id.ID) (*WarehouseStock, error)

	// GetAggregate reads without locking (reporting paths).
	GetAggregate(ctx context.Context, itemID, warehouseID id.ID) (*WarehouseStock, error)

	// UpsertAggregate writes the aggregate row.
	UpsertAggregate(ctx context.Context, agg *WarehouseStock) error
}

// AuditAction classifies an audited ledger mutation.
type AuditAction string

const (
	AuditActionMovement    AuditAction = "movement"
	AuditActionDevaluation AuditAction = "devaluation"
	AuditActionTransfer    AuditAction = "transfer"
	AuditActionReservation AuditAction = "reservation"
	AuditActionRebuild     AuditAction = "rebuild"
)

// AuditEntry snapshots a mutation for the audit trail, over and above the
// movement row itself (payload keeps the full request context).
type AuditEntry struct {
	EntityType string
	EntityID   id.ID
	Action     AuditAction
	Actor      string
	Payload    json.RawMessage
	OccurredAt time.Time
}

// AuditRecorder persists audit entries. Implemented by the storage layer;
// recording happens inside the same transaction as the mutation it describes.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// NopAuditRecorder discards entries. Used in tests.
type NopAuditRecorder struct{}

func (NopAuditRecorder) Record(ctx context.Context, entry AuditEntry) error { return nil }
