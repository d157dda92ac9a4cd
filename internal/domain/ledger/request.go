package ledger

import (
	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// MovementRequest is the validated input for RecordMovement. Construct it
// through the typed constructors below; Validate enforces the per-type rules
// either way, so a hand-built request cannot smuggle in an invalid shape.
type MovementRequest struct {
	Type        MovementType
	StockItemID id.ID
	WarehouseID id.ID

	// Quantity is signed: positive inbound, negative outbound
	Quantity types.Quantity

	Actor  string
	Reason string
	Notes  string

	// UnitCost overrides item.DefaultCost as the lot cost basis for inbound
	// movements
	UnitCost *types.Money

	// LotType requests a non-standard lot for inbound movements (returns
	// booked straight into a devalued lot)
	LotType LotType

	// ConsumeFromLotID pins outbound consumption to a specific lot instead of
	// FIFO order
	ConsumeFromLotID *id.ID

	ReferenceType string
	ReferenceID   *id.ID
}

// NewAdjustment builds a signed manual correction.
func NewAdjustment(itemID, warehouseID id.ID, qty types.Quantity, actor, reason string) MovementRequest {
	return MovementRequest{
		Type:        TypeAdjustment,
		StockItemID: itemID,
		WarehouseID: warehouseID,
		Quantity:    qty,
		Actor:       actor,
		Reason:      reason,
	}
}

// NewSale builds an outbound sale of qty units (qty given positive).
func NewSale(itemID, warehouseID id.ID, qty types.Quantity, actor string) MovementRequest {
	return MovementRequest{
		Type:        TypeSale,
		StockItemID: itemID,
		WarehouseID: warehouseID,
		Quantity:    qty.Abs().Neg(),
		Actor:       actor,
	}
}

// NewUsage builds an outbound internal consumption of qty units.
func NewUsage(itemID, warehouseID id.ID, qty types.Quantity, actor, reason string) MovementRequest {
	return MovementRequest{
		Type:        TypeUsage,
		StockItemID: itemID,
		WarehouseID: warehouseID,
		Quantity:    qty.Abs().Neg(),
		Actor:       actor,
		Reason:      reason,
	}
}

// NewPurchase builds an inbound receipt at the given cost basis.
func NewPurchase(itemID, warehouseID id.ID, qty types.Quantity, unitCost types.Money, actor string) MovementRequest {
	return MovementRequest{
		Type:        TypePurchase,
		StockItemID: itemID,
		WarehouseID: warehouseID,
		Quantity:    qty.Abs(),
		UnitCost:    &unitCost,
		Actor:       actor,
	}
}

// NewReturn builds an inbound customer return. Pass LotDevalued to book the
// returned units straight into a devalued lot at unitCost.
func NewReturn(itemID, warehouseID id.ID, qty types.Quantity, unitCost *types.Money, lotType LotType, actor, reason string) MovementRequest {
	return MovementRequest{
		Type:        TypeReturn,
		StockItemID: itemID,
		WarehouseID: warehouseID,
		Quantity:    qty.Abs(),
		UnitCost:    unitCost,
		LotType:     lotType,
		Actor:       actor,
		Reason:      reason,
	}
}

// NewWaste builds an outbound write-off, optionally pinned to a specific lot.
func NewWaste(itemID, warehouseID id.ID, qty types.Quantity, consumeFromLotID *id.ID, actor, reason string) MovementRequest {
	return MovementRequest{
		Type:             TypeWaste,
		StockItemID:      itemID,
		WarehouseID:      warehouseID,
		Quantity:         qty.Abs().Neg(),
		ConsumeFromLotID: consumeFromLotID,
		Actor:            actor,
		Reason:           reason,
	}
}

// Validate enforces the per-type shape of the request.
func (r *MovementRequest) Validate() error {
	if !validMovementType(r.Type) {
		return apperror.NewValidation("unknown movement type").
			WithDetail("field", "movementType").
			WithDetail("value", string(r.Type))
	}
	if r.Type == TypeDevaluation {
		// Devaluation has its own entry point with its own validation order.
		return apperror.NewValidation("devaluation must go through RecordDevaluation")
	}
	if id.IsNil(r.StockItemID) {
		return apperror.NewValidation("stock item is required").
			WithDetail("field", "stockItemId")
	}
	if id.IsNil(r.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if r.Quantity.IsZero() {
		return apperror.NewValidation("quantity cannot be zero").
			WithDetail("field", "quantity")
	}
	if r.Actor == "" {
		return apperror.NewValidation("actor is required").
			WithDetail("field", "actor")
	}

	switch r.Type {
	case TypeSale, TypeUsage, TypeWaste:
		if r.Quantity.IsPositive() {
			return apperror.NewValidation(string(r.Type) + " quantity must be outbound").
				WithDetail("field", "quantity")
		}
	case TypePurchase, TypeReturn:
		if r.Quantity.IsNegative() {
			return apperror.NewValidation(string(r.Type) + " quantity must be inbound").
				WithDetail("field", "quantity")
		}
	}

	if r.UnitCost != nil && r.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}
	if r.LotType != "" && r.LotType != LotStandard && r.LotType != LotDevalued {
		return apperror.NewValidation("unknown lot type").
			WithDetail("field", "lotType").
			WithDetail("value", string(r.LotType))
	}
	if r.LotType == LotDevalued && r.Quantity.IsNegative() {
		return apperror.NewValidation("lot type override applies to inbound movements only").
			WithDetail("field", "lotType")
	}
	if r.ConsumeFromLotID != nil && r.Quantity.IsPositive() {
		return apperror.NewValidation("consume_from_lot applies to outbound movements only").
			WithDetail("field", "consumeFromLotId")
	}
	return nil
}

// inbound reports whether the request adds quantity.
func (r *MovementRequest) inbound() bool {
	return r.Quantity.IsPositive()
}

// TransferRequest moves quantity between two warehouses as two paired legs
// sharing one reference id.
type TransferRequest struct {
	StockItemID     id.ID
	FromWarehouseID id.ID
	ToWarehouseID   id.ID

	// Quantity to move, given positive
	Quantity types.Quantity

	Actor  string
	Reason string
	Notes  string
}

// Validate checks transfer input shape.
func (r *TransferRequest) Validate() error {
	if id.IsNil(r.StockItemID) {
		return apperror.NewValidation("stock item is required").
			WithDetail("field", "stockItemId")
	}
	if id.IsNil(r.FromWarehouseID) || id.IsNil(r.ToWarehouseID) {
		return apperror.NewValidation("both warehouses are required")
	}
	if r.FromWarehouseID == r.ToWarehouseID {
		return apperror.NewValidation("source and destination warehouses must differ")
	}
	if !r.Quantity.IsPositive() {
		return apperror.NewValidation("transfer quantity must be positive").
			WithDetail("field", "quantity")
	}
	if r.Actor == "" {
		return apperror.NewValidation("actor is required").
			WithDetail("field", "actor")
	}
	return nil
}

// CostMode selects how a devaluation's new unit cost is supplied.
type CostMode string

const (
	// CostModePercent derives the new cost as base × (100 − pct) / 100
	CostModePercent CostMode = "percent"
	// CostModeFixed supplies the new cost directly
	CostModeFixed CostMode = "fixed"
)

// DevaluationRequest reclassifies quantity into a lower cost basis.
type DevaluationRequest struct {
	StockItemID id.ID
	WarehouseID id.ID

	// Quantity of units to reclassify, given positive
	Quantity types.Quantity

	Mode CostMode

	// Percent off the base cost, for CostModePercent
	Percent *types.Money

	// NewUnitCost, for CostModeFixed
	NewUnitCost *types.Money

	Actor  string
	Reason string
	Notes  string
}

// Validate checks input shape only. Invariant checks against the item's base
// cost run inside RecordDevaluation in the order the contract prescribes.
func (r *DevaluationRequest) Validate() error {
	if id.IsNil(r.StockItemID) {
		return apperror.NewValidation("stock item is required").
			WithDetail("field", "stockItemId")
	}
	if id.IsNil(r.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if !r.Quantity.IsPositive() {
		return apperror.NewValidation("devaluation quantity must be positive").
			WithDetail("field", "quantity")
	}
	if r.Actor == "" {
		return apperror.NewValidation("actor is required").
			WithDetail("field", "actor")
	}

	switch r.Mode {
	case CostModePercent:
		if r.Percent == nil {
			return apperror.NewInvalidDevaluationInput("percentage is required")
		}
		if r.Percent.IsNegative() || r.Percent.GreaterThan(types.MustMoney("100")) {
			return apperror.NewInvalidDevaluationInput("percentage must be between 0 and 100")
		}
	case CostModeFixed:
		if r.NewUnitCost == nil {
			return apperror.NewInvalidDevaluationInput("fixed cost is required")
		}
		if r.NewUnitCost.IsNegative() {
			return apperror.NewInvalidDevaluationInput("fixed cost cannot be negative")
		}
	default:
		return apperror.NewInvalidDevaluationInput("unknown cost mode")
	}
	return nil
}

// resolveNewCost computes the target unit cost against the item's base cost.
func (r *DevaluationRequest) resolveNewCost(baseCost types.Money) types.Money {
	if r.Mode == CostModePercent {
		hundred := types.MustMoney("100")
		return baseCost.Mul(hundred.Sub(*r.Percent)).Div(hundred)
	}
	return *r.NewUnitCost
}

// WasteDevaluationRequest devalues quantity and immediately writes it off from
// the freshly devalued lot, as one atomic composite.
type WasteDevaluationRequest struct {
	Devaluation DevaluationRequest

	// WasteQuantity written off from the devalued lot; defaults to the full
	// devalued quantity when zero
	WasteQuantity types.Quantity

	WasteReason string
}

// Validate checks the composite's input shape.
func (r *WasteDevaluationRequest) Validate() error {
	if err := r.Devaluation.Validate(); err != nil {
		return err
	}
	if r.WasteQuantity.IsNegative() {
		return apperror.NewValidation("waste quantity cannot be negative").
			WithDetail("field", "wasteQuantity")
	}
	if r.WasteQuantity > r.Devaluation.Quantity {
		return apperror.NewValidation("waste quantity cannot exceed devalued quantity").
			WithDetail("field", "wasteQuantity")
	}
	return nil
}
