// Package receiving adapts purchase-order line receipts into inbound ledger
// movements. The PO lifecycle itself lives outside the engine; this adapter
// only sees (item, warehouse, quantity, cost) tuples.
package receiving

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
)

// ReferenceTypePurchaseOrder correlates receipt movements back to their PO line.
const ReferenceTypePurchaseOrder = "purchase_order"

// POLine is one receipt event against a purchase-order line. Partial
// receiving is supported: repeated events against the same line are additive.
type POLine struct {
	POLineID         id.ID
	StockItemID      id.ID
	WarehouseID      id.ID
	QuantityReceived types.Quantity
	UnitCost         types.Money
	ReceivedBy       string
	Notes            string
}

// Validate checks the receipt tuple shape.
func (l *POLine) Validate() error {
	if id.IsNil(l.POLineID) {
		return apperror.NewValidation("purchase order line reference is required").
			WithDetail("field", "poLineId")
	}
	if !l.QuantityReceived.IsPositive() {
		return apperror.NewValidation("received quantity must be positive").
			WithDetail("field", "quantityReceived")
	}
	if l.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}
	return nil
}

// Adapter converts receipt events into purchase movements at order cost.
type Adapter struct {
	ledger *ledger.Service
}

// NewAdapter creates the receiving adapter.
func NewAdapter(ledgerSvc *ledger.Service) *Adapter {
	return &Adapter{ledger: ledgerSvc}
}

// ReceiveLine books one receipt event. Each call is independently atomic, so
// a failed partial receipt never disturbs earlier ones.
func (a *Adapter) ReceiveLine(ctx context.Context, line POLine) (*ledger.StockMovement, error) {
	if err := line.Validate(); err != nil {
		return nil, err
	}

	poLineID := line.POLineID
	req := ledger.MovementRequest{
		Type:          ledger.TypePurchase,
		StockItemID:   line.StockItemID,
		WarehouseID:   line.WarehouseID,
		Quantity:      line.QuantityReceived,
		UnitCost:      &line.UnitCost,
		Actor:         line.ReceivedBy,
		Notes:         line.Notes,
		ReferenceType: ReferenceTypePurchaseOrder,
		ReferenceID:   &poLineID,
	}

	movement, _, err := a.ledger.RecordMovement(ctx, req)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order line received",
		"po_line_id", line.POLineID,
		"movement_id", movement.ID,
		"quantity", line.QuantityReceived,
		"unit_cost", line.UnitCost,
	)
	return movement, nil
}
