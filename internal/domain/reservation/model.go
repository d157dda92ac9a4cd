// Package reservation provides the reservation manager: soft holds that
// reduce available quantity without touching on-hand stock.
package reservation

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Status is the reservation lifecycle state.
type Status string

const (
	StatusReserved  Status = "reserved"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusFulfilled || s == StatusCancelled
}

// StockReservation holds quantity against an (item, warehouse) pair. While
// reserved it counts into quantity_reserved; releasing it (fulfil or cancel)
// never changes on-hand; the caller pairs fulfilment with its own outbound
// movement.
type StockReservation struct {
	ID          id.ID `db:"id" json:"id"`
	StockItemID id.ID `db:"stock_item_id" json:"stockItemId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`
	Status   Status         `db:"status" json:"status"`

	ReservedBy string     `db:"reserved_by" json:"reservedBy"`
	ReservedAt time.Time  `db:"reserved_at" json:"reservedAt"`
	ReleasedAt *time.Time `db:"released_at" json:"releasedAt,omitempty"`
}

// NewStockReservation creates an active reservation.
func NewStockReservation(itemID, warehouseID id.ID, qty types.Quantity, actor string) *StockReservation {
	return &StockReservation{
		ID:          id.New(),
		StockItemID: itemID,
		WarehouseID: warehouseID,
		Quantity:    qty,
		Status:      StatusReserved,
		ReservedBy:  actor,
		ReservedAt:  time.Now().UTC(),
	}
}
