package dto

import (
	"time"

	"stockledger/internal/core/types"
	"stockledger/internal/domain/reservation"
)

// ReserveRequest is the wire shape for POST /reservations.
type ReserveRequest struct {
	StockItemID string         `json:"stockItemId" binding:"required"`
	WarehouseID string         `json:"warehouseId" binding:"required"`
	Quantity    types.Quantity `json:"quantity"`
	Actor       string         `json:"actor" binding:"required"`
}

// ReservationResponse is one reservation on the wire.
type ReservationResponse struct {
	ID          string         `json:"id"`
	StockItemID string         `json:"stockItemId"`
	WarehouseID string         `json:"warehouseId"`
	Quantity    types.Quantity `json:"quantity"`
	Status      string         `json:"status"`
	ReservedBy  string         `json:"reservedBy"`
	ReservedAt  time.Time      `json:"reservedAt"`
	ReleasedAt  *time.Time     `json:"releasedAt,omitempty"`
}

func FromReservation(r *reservation.StockReservation) ReservationResponse {
	return ReservationResponse{
		ID:          r.ID.String(),
		StockItemID: r.StockItemID.String(),
		WarehouseID: r.WarehouseID.String(),
		Quantity:    r.Quantity,
		Status:      string(r.Status),
		ReservedBy:  r.ReservedBy,
		ReservedAt:  r.ReservedAt,
		ReleasedAt:  r.ReleasedAt,
	}
}
