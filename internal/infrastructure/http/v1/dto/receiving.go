package dto

import (
	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/receiving"
)

// ReceiveLineRequest is the wire shape for POST /receipts.
type ReceiveLineRequest struct {
	POLineID         string         `json:"poLineId" binding:"required"`
	StockItemID      string         `json:"stockItemId" binding:"required"`
	WarehouseID      string         `json:"warehouseId" binding:"required"`
	QuantityReceived types.Quantity `json:"quantityReceived"`
	UnitCost         types.Money    `json:"unitCost"`
	ReceivedBy       string         `json:"receivedBy" binding:"required"`
	Notes            string         `json:"notes"`
}

func (r *ReceiveLineRequest) ToDomain() (receiving.POLine, error) {
	poLineID, err := id.Parse(r.POLineID)
	if err != nil {
		return receiving.POLine{}, apperror.NewValidation("invalid poLineId format")
	}
	itemID, err := id.Parse(r.StockItemID)
	if err != nil {
		return receiving.POLine{}, apperror.NewValidation("invalid stockItemId format")
	}
	whID, err := id.Parse(r.WarehouseID)
	if err != nil {
		return receiving.POLine{}, apperror.NewValidation("invalid warehouseId format")
	}

	return receiving.POLine{
		POLineID:         poLineID,
		StockItemID:      itemID,
		WarehouseID:      whID,
		QuantityReceived: r.QuantityReceived,
		UnitCost:         r.UnitCost,
		ReceivedBy:       r.ReceivedBy,
		Notes:            r.Notes,
	}, nil
}
