package dto

import (
	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

// RecordMovementRequest is the wire shape for POST /movements.
type RecordMovementRequest struct {
	MovementType string         `json:"movementType" binding:"required"`
	StockItemID  string         `json:"stockItemId" binding:"required"`
	WarehouseID  string         `json:"warehouseId" binding:"required"`
	Quantity     types.Quantity `json:"quantity"`
	Actor        string         `json:"actor" binding:"required"`
	Reason       string         `json:"reason"`
	Notes        string         `json:"notes"`

	UnitCost         *types.Money `json:"unitCost,omitempty"`
	LotType          string       `json:"lotType,omitempty"`
	ConsumeFromLotID *string      `json:"consumeFromLotId,omitempty"`

	ReferenceType string  `json:"referenceType,omitempty"`
	ReferenceID   *string `json:"referenceId,omitempty"`
}

// ToDomain converts the wire request. Shape validation beyond id parsing is
// left to MovementRequest.Validate.
func (r *RecordMovementRequest) ToDomain() (ledger.MovementRequest, error) {
	itemID, err := id.Parse(r.StockItemID)
	if err != nil {
		return ledger.MovementRequest{}, apperror.NewValidation("invalid stockItemId format")
	}
	whID, err := id.Parse(r.WarehouseID)
	if err != nil {
		return ledger.MovementRequest{}, apperror.NewValidation("invalid warehouseId format")
	}

	req := ledger.MovementRequest{
		Type:          ledger.MovementType(r.MovementType),
		StockItemID:   itemID,
		WarehouseID:   whID,
		Quantity:      r.Quantity,
		Actor:         r.Actor,
		Reason:        r.Reason,
		Notes:         r.Notes,
		UnitCost:      r.UnitCost,
		LotType:       ledger.LotType(r.LotType),
		ReferenceType: r.ReferenceType,
	}

	if r.ConsumeFromLotID != nil {
		lotID, err := id.Parse(*r.ConsumeFromLotID)
		if err != nil {
			return ledger.MovementRequest{}, apperror.NewValidation("invalid consumeFromLotId format")
		}
		req.ConsumeFromLotID = &lotID
	}
	if r.ReferenceID != nil {
		refID, err := id.Parse(*r.ReferenceID)
		if err != nil {
			return ledger.MovementRequest{}, apperror.NewValidation("invalid referenceId format")
		}
		req.ReferenceID = &refID
	}
	return req, nil
}

// TransferRequest is the wire shape for POST /transfers.
type TransferRequest struct {
	StockItemID     string         `json:"stockItemId" binding:"required"`
	FromWarehouseID string         `json:"fromWarehouseId" binding:"required"`
	ToWarehouseID   string         `json:"toWarehouseId" binding:"required"`
	Quantity        types.Quantity `json:"quantity"`
	Actor           string         `json:"actor" binding:"required"`
	Reason          string         `json:"reason"`
	Notes           string         `json:"notes"`
}

func (r *TransferRequest) ToDomain() (ledger.TransferRequest, error) {
	itemID, err := id.Parse(r.StockItemID)
	if err != nil {
		return ledger.TransferRequest{}, apperror.NewValidation("invalid stockItemId format")
	}
	fromID, err := id.Parse(r.FromWarehouseID)
	if err != nil {
		return ledger.TransferRequest{}, apperror.NewValidation("invalid fromWarehouseId format")
	}
	toID, err := id.Parse(r.ToWarehouseID)
	if err != nil {
		return ledger.TransferRequest{}, apperror.NewValidation("invalid toWarehouseId format")
	}

	return ledger.TransferRequest{
		StockItemID:     itemID,
		FromWarehouseID: fromID,
		ToWarehouseID:   toID,
		Quantity:        r.Quantity,
		Actor:           r.Actor,
		Reason:          r.Reason,
		Notes:           r.Notes,
	}, nil
}

// DevaluationRequest is the wire shape for POST /devaluations.
type DevaluationRequest struct {
	StockItemID string         `json:"stockItemId" binding:"required"`
	WarehouseID string         `json:"warehouseId" binding:"required"`
	Quantity    types.Quantity `json:"quantity"`
	Mode        string         `json:"mode" binding:"required"`
	Percent     *types.Money   `json:"percent,omitempty"`
	NewUnitCost *types.Money   `json:"newUnitCost,omitempty"`
	Actor       string         `json:"actor" binding:"required"`
	Reason      string         `json:"reason"`
	Notes       string         `json:"notes"`
}

func (r *DevaluationRequest) ToDomain() (ledger.DevaluationRequest, error) {
	itemID, err := id.Parse(r.StockItemID)
	if err != nil {
		return ledger.DevaluationRequest{}, apperror.NewValidation("invalid stockItemId format")
	}
	whID, err := id.Parse(r.WarehouseID)
	if err != nil {
		return ledger.DevaluationRequest{}, apperror.NewValidation("invalid warehouseId format")
	}

	return ledger.DevaluationRequest{
		StockItemID: itemID,
		WarehouseID: whID,
		Quantity:    r.Quantity,
		Mode:        ledger.CostMode(r.Mode),
		Percent:     r.Percent,
		NewUnitCost: r.NewUnitCost,
		Actor:       r.Actor,
		Reason:      r.Reason,
		Notes:       r.Notes,
	}, nil
}

// WasteDevaluationRequest is the wire shape for POST /devaluations/waste.
type WasteDevaluationRequest struct {
	Devaluation   DevaluationRequest `json:"devaluation" binding:"required"`
	WasteQuantity types.Quantity     `json:"wasteQuantity"`
	WasteReason   string             `json:"wasteReason"`
}

func (r *WasteDevaluationRequest) ToDomain() (ledger.WasteDevaluationRequest, error) {
	dev, err := r.Devaluation.ToDomain()
	if err != nil {
		return ledger.WasteDevaluationRequest{}, err
	}
	return ledger.WasteDevaluationRequest{
		Devaluation:   dev,
		WasteQuantity: r.WasteQuantity,
		WasteReason:   r.WasteReason,
	}, nil
}

// MovementResponse is one ledger row on the wire.
type MovementResponse struct {
	ID            string         `json:"id"`
	StockItemID   string         `json:"stockItemId"`
	WarehouseID   string         `json:"warehouseId"`
	MovementType  string         `json:"movementType"`
	Quantity      types.Quantity `json:"quantity"`
	UnitCost      *types.Money   `json:"unitCost,omitempty"`
	ReferenceType string         `json:"referenceType,omitempty"`
	ReferenceID   *string        `json:"referenceId,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	MovedBy       string         `json:"movedBy"`
	MovedAt       string         `json:"movedAt"`
}

// FromMovement maps a ledger row to the wire.
func FromMovement(m *ledger.StockMovement) MovementResponse {
	resp := MovementResponse{
		ID:            m.ID.String(),
		StockItemID:   m.StockItemID.String(),
		WarehouseID:   m.WarehouseID.String(),
		MovementType:  string(m.Type),
		Quantity:      m.Quantity,
		UnitCost:      m.UnitCost,
		ReferenceType: m.ReferenceType,
		Reason:        m.Reason,
		Notes:         m.Notes,
		MovedBy:       m.MovedBy,
		MovedAt:       m.MovedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if m.ReferenceID != nil {
		s := m.ReferenceID.String()
		resp.ReferenceID = &s
	}
	return resp
}

// TransferResponse pairs the two legs of a transfer.
type TransferResponse struct {
	OutLeg MovementResponse `json:"outLeg"`
	InLeg  MovementResponse `json:"inLeg"`
}

// DevaluationResponse reports the devaluation movement and the lot it
// produced or extended.
type DevaluationResponse struct {
	Movement MovementResponse `json:"movement"`
	Lot      LotResponse      `json:"lot"`
}

// WasteDevaluationResponse pairs the devaluation and the waste write-off.
type WasteDevaluationResponse struct {
	Devaluation MovementResponse `json:"devaluation"`
	Waste       MovementResponse `json:"waste"`
}

// LotResponse is one cost-basis lot on the wire.
type LotResponse struct {
	ID             string         `json:"id"`
	StockItemID    string         `json:"stockItemId"`
	WarehouseID    string         `json:"warehouseId"`
	UnitCost       types.Money    `json:"unitCost"`
	LotType        string         `json:"lotType"`
	QuantityOnHand types.Quantity `json:"quantityOnHand"`
}

func FromLot(l *ledger.StockLot) LotResponse {
	return LotResponse{
		ID:             l.ID.String(),
		StockItemID:    l.StockItemID.String(),
		WarehouseID:    l.WarehouseID.String(),
		UnitCost:       l.UnitCost,
		LotType:        string(l.LotType),
		QuantityOnHand: l.QuantityOnHand,
	}
}

// AggregateResponse is the warehouse stock snapshot on the wire.
type AggregateResponse struct {
	StockItemID       string         `json:"stockItemId"`
	WarehouseID       string         `json:"warehouseId"`
	QuantityOnHand    types.Quantity `json:"quantityOnHand"`
	QuantityReserved  types.Quantity `json:"quantityReserved"`
	QuantityAvailable types.Quantity `json:"quantityAvailable"`
}

func FromAggregate(a *ledger.WarehouseStock) AggregateResponse {
	return AggregateResponse{
		StockItemID:       a.StockItemID.String(),
		WarehouseID:       a.WarehouseID.String(),
		QuantityOnHand:    a.QuantityOnHand,
		QuantityReserved:  a.QuantityReserved,
		QuantityAvailable: a.QuantityAvailable(),
	}
}
