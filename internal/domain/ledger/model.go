// Package ledger provides the append-only stock movement ledger, cost-basis
// lots, and the derived per-(item, warehouse) aggregate. Every stock-affecting
// operation enters through this package; lots and movements are created
// nowhere else.
package ledger

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// MovementType classifies a quantity change.
type MovementType string

const (
	TypeAdjustment  MovementType = "adjustment"
	TypeTransfer    MovementType = "transfer"
	TypeSale        MovementType = "sale"
	TypeUsage       MovementType = "usage"
	TypePurchase    MovementType = "purchase"
	TypeReturn      MovementType = "return"
	TypeWaste       MovementType = "waste"
	TypeDevaluation MovementType = "devaluation"
)

// validMovementType reports whether t is a known movement type.
func validMovementType(t MovementType) bool {
	switch t {
	case TypeAdjustment, TypeTransfer, TypeSale, TypeUsage,
		TypePurchase, TypeReturn, TypeWaste, TypeDevaluation:
		return true
	}
	return false
}

// LotType distinguishes standard cost layers from devalued ones.
type LotType string

const (
	LotStandard LotType = "standard"
	LotDevalued LotType = "devalued"
)

// StockMovement is one row of the append-only ledger. Once persisted it is
// never updated or deleted; corrections are new movements.
type StockMovement struct {
	ID          id.ID `db:"id" json:"id"`
	StockItemID id.ID `db:"stock_item_id" json:"stockItemId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	Type MovementType `db:"movement_type" json:"movementType"`

	// Quantity is signed: positive inbound, negative outbound. Devaluation
	// movements carry an informational quantity that is not applied to the
	// aggregate.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// UnitCost is the cost basis applied by this movement, if any
	UnitCost *types.Money `db:"unit_cost" json:"unitCost,omitempty"`

	// ReferenceType/ReferenceID correlate paired transfer legs and PO receipts
	ReferenceType string `db:"reference_type" json:"referenceType,omitempty"`
	ReferenceID   *id.ID `db:"reference_id" json:"referenceId,omitempty"`

	Reason string `db:"reason" json:"reason,omitempty"`
	Notes  string `db:"notes" json:"notes,omitempty"`

	// MovedBy is the opaque actor id for audit attribution
	MovedBy string    `db:"moved_by" json:"movedBy"`
	MovedAt time.Time `db:"moved_at" json:"movedAt"`
}

// AffectsAggregate reports whether the movement's quantity counts toward the
// on-hand balance. Devaluation reclassifies cost without moving quantity.
func (m *StockMovement) AffectsAggregate() bool {
	return m.Type != TypeDevaluation
}

// StockLot is a quantity of stock at a specific cost basis. Multiple lots may
// share (item, warehouse) with different costs; that is the whole point.
// QuantityOnHand only grows when the lot is created and only shrinks afterwards.
type StockLot struct {
	ID          id.ID `db:"id" json:"id"`
	StockItemID id.ID `db:"stock_item_id" json:"stockItemId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	UnitCost types.Money `db:"unit_cost" json:"unitCost"`
	LotType  LotType     `db:"lot_type" json:"lotType"`

	QuantityOnHand types.Quantity `db:"quantity_on_hand" json:"quantityOnHand"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewStockLot creates a lot for an inbound quantity.
func NewStockLot(itemID, warehouseID id.ID, unitCost types.Money, lotType LotType, qty types.Quantity) *StockLot {
	return &StockLot{
		ID:             id.New(),
		StockItemID:    itemID,
		WarehouseID:    warehouseID,
		UnitCost:       unitCost,
		LotType:        lotType,
		QuantityOnHand: qty,
		CreatedAt:      time.Now().UTC(),
	}
}

// WarehouseStock is the materialized per-(item, warehouse) aggregate, derived
// from the ledger and written only inside the ledger's transactions.
type WarehouseStock struct {
	StockItemID id.ID `db:"stock_item_id" json:"stockItemId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	QuantityOnHand   types.Quantity `db:"quantity_on_hand" json:"quantityOnHand"`
	QuantityReserved types.Quantity `db:"quantity_reserved" json:"quantityReserved"`

	LastMovementAt time.Time `db:"last_movement_at" json:"lastMovementAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// QuantityAvailable is on-hand minus reserved: the quantity that can be
// committed to new outbound operations.
func (w *WarehouseStock) QuantityAvailable() types.Quantity {
	return w.QuantityOnHand - w.QuantityReserved
}
