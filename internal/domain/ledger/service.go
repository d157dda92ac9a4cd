package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalog/item"
	"stockledger/internal/domain/catalog/warehouse"
	"stockledger/pkg/logger"
)

// ItemReader is the slice of the item catalog the ledger consumes.
type ItemReader interface {
	GetByID(ctx context.Context, itemID id.ID) (*item.StockItem, error)
}

// WarehouseReader is the slice of the warehouse registry the ledger consumes.
type WarehouseReader interface {
	GetByID(ctx context.Context, warehouseID id.ID) (*warehouse.Warehouse, error)
}

// Service is the stock movement ledger. Every quantity change in the system
// goes through RecordMovement or RecordDevaluation; both run the availability
// check, the movement insert, the lot bookkeeping, and the aggregate update
// inside one transaction holding the aggregate row lock.
type Service struct {
	repo       Repository
	items      ItemReader
	warehouses WarehouseReader
	audit      AuditRecorder
	txm        tx.Manager
}

// NewService creates the ledger service.
func NewService(repo Repository, items ItemReader, warehouses WarehouseReader, audit AuditRecorder, txm tx.Manager) *Service {
	if audit == nil {
		audit = NopAuditRecorder{}
	}
	return &Service{
		repo:       repo,
		items:      items,
		warehouses: warehouses,
		audit:      audit,
		txm:        txm,
	}
}

// RecordMovement appends one movement, applies lot bookkeeping, and updates
// the aggregate, atomically. Returns the persisted movement and the updated
// aggregate row.
func (s *Service) RecordMovement(ctx context.Context, req MovementRequest) (*StockMovement, *WarehouseStock, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		movement *StockMovement
		agg      *WarehouseStock
	)
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		m, a, err := s.recordMovementTx(ctx, req)
		if err != nil {
			return err
		}
		movement, agg = m, a
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "recorded stock movement",
		"movement_id", movement.ID,
		"type", movement.Type,
		"item_id", movement.StockItemID,
		"warehouse_id", movement.WarehouseID,
		"quantity", movement.Quantity,
	)
	return movement, agg, nil
}

// recordMovementTx is the transactional body of RecordMovement. The caller
// guarantees an open transaction; req is already validated.
func (s *Service) recordMovementTx(ctx context.Context, req MovementRequest) (*StockMovement, *WarehouseStock, error) {
	it, err := s.items.GetByID(ctx, req.StockItemID)
	if err != nil {
		return nil, nil, err
	}
	wh, err := s.warehouses.GetByID(ctx, req.WarehouseID)
	if err != nil {
		return nil, nil, err
	}
	if !wh.IsActive {
		return nil, nil, apperror.NewValidation("warehouse is not active").
			WithDetail("warehouse_id", wh.ID)
	}

	agg, err := s.repo.GetAggregateForUpdate(ctx, it.ID, wh.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock aggregate: %w", err)
	}

	if !req.inbound() {
		need := req.Quantity.Abs()
		if agg.QuantityOnHand < need {
			return nil, nil, apperror.NewInsufficientStock(it.ID.String(), need.Float64(), agg.QuantityOnHand.Float64())
		}
	}

	now := time.Now().UTC()
	movement := &StockMovement{
		ID:            id.New(),
		StockItemID:   it.ID,
		WarehouseID:   wh.ID,
		Type:          req.Type,
		Quantity:      req.Quantity,
		UnitCost:      req.UnitCost,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Reason:        req.Reason,
		Notes:         req.Notes,
		MovedBy:       req.Actor,
		MovedAt:       now,
	}

	// Lot bookkeeping only for trackable items. Untracked items still get the
	// movement row and the aggregate update.
	if it.IsTrackable {
		if req.inbound() {
			cost := it.DefaultCost
			if req.UnitCost != nil {
				cost = *req.UnitCost
			}
			lotType := req.LotType
			if lotType == "" {
				lotType = LotStandard
			}
			lot := NewStockLot(it.ID, wh.ID, cost, lotType, req.Quantity)
			if err := s.repo.InsertLot(ctx, lot); err != nil {
				return nil, nil, fmt.Errorf("insert lot: %w", err)
			}
			movement.UnitCost = &cost
		} else {
			consumed, err := s.consumeLots(ctx, it.ID, wh.ID, req.Quantity.Abs(), req.ConsumeFromLotID)
			if err != nil {
				return nil, nil, err
			}
			if movement.UnitCost == nil {
				movement.UnitCost = weightedUnitCost(consumed)
			}
		}
	}

	if err := s.repo.InsertMovement(ctx, movement); err != nil {
		return nil, nil, fmt.Errorf("insert movement: %w", err)
	}

	agg.QuantityOnHand += req.Quantity
	agg.LastMovementAt = now
	agg.UpdatedAt = now
	if err := s.repo.UpsertAggregate(ctx, agg); err != nil {
		return nil, nil, fmt.Errorf("upsert aggregate: %w", err)
	}

	if err := s.recordAudit(ctx, AuditActionMovement, movement.ID, req.Actor, movement); err != nil {
		return nil, nil, err
	}
	return movement, agg, nil
}

// lotConsumption is one lot's share of an outbound quantity.
type lotConsumption struct {
	LotID    id.ID
	Quantity types.Quantity
	UnitCost types.Money
}

// consumeLots decrements lots for an outbound quantity. A pinned lot is
// consumed alone; otherwise lots are drained oldest-first. No partial
// mutation survives a shortfall: the error rolls the transaction back.
func (s *Service) consumeLots(ctx context.Context, itemID, warehouseID id.ID, need types.Quantity, pinnedLotID *id.ID) ([]lotConsumption, error) {
	if pinnedLotID != nil {
		lot, err := s.repo.GetLotForUpdate(ctx, *pinnedLotID)
		if err != nil {
			return nil, err
		}
		if lot.StockItemID != itemID || lot.WarehouseID != warehouseID {
			return nil, apperror.NewValidation("lot does not belong to this item and warehouse").
				WithDetail("lot_id", lot.ID)
		}
		if lot.QuantityOnHand < need {
			return nil, apperror.NewLotInsufficient(itemID.String(), need.Float64(), lot.QuantityOnHand.Float64())
		}
		if err := s.repo.SetLotQuantity(ctx, lot.ID, lot.QuantityOnHand-need); err != nil {
			return nil, fmt.Errorf("decrement lot: %w", err)
		}
		return []lotConsumption{{LotID: lot.ID, Quantity: need, UnitCost: lot.UnitCost}}, nil
	}

	lots, err := s.repo.GetLotsForUpdate(ctx, itemID, warehouseID, nil)
	if err != nil {
		return nil, fmt.Errorf("lock lots: %w", err)
	}
	return s.drainLots(ctx, itemID, lots, need)
}

// drainLots consumes need units across lots in the given order.
func (s *Service) drainLots(ctx context.Context, itemID id.ID, lots []StockLot, need types.Quantity) ([]lotConsumption, error) {
	var total types.Quantity
	for _, lot := range lots {
		total += lot.QuantityOnHand
	}
	if total < need {
		return nil, apperror.NewLotInsufficient(itemID.String(), need.Float64(), total.Float64())
	}

	remaining := need
	consumed := make([]lotConsumption, 0, len(lots))
	for _, lot := range lots {
		if remaining.IsZero() {
			break
		}
		take := lot.QuantityOnHand
		if take > remaining {
			take = remaining
		}
		if err := s.repo.SetLotQuantity(ctx, lot.ID, lot.QuantityOnHand-take); err != nil {
			return nil, fmt.Errorf("decrement lot: %w", err)
		}
		consumed = append(consumed, lotConsumption{LotID: lot.ID, Quantity: take, UnitCost: lot.UnitCost})
		remaining -= take
	}
	return consumed, nil
}

// weightedUnitCost returns the quantity-weighted average cost of consumed
// portions, nil when nothing was consumed.
func weightedUnitCost(consumed []lotConsumption) *types.Money {
	if len(consumed) == 0 {
		return nil
	}
	var total types.Quantity
	value := types.ZeroMoney()
	for _, c := range consumed {
		value = value.Add(c.UnitCost.Mul(c.Quantity.Decimal()))
		total += c.Quantity
	}
	cost := value.Div(total.Decimal())
	return &cost
}

// lotCostBasis returns the quantity-weighted unit cost of taking need
// oldest-first from lots, capped at what the lots hold. Reports false when
// the lots are empty.
func lotCostBasis(lots []StockLot, need types.Quantity) (types.Money, bool) {
	remaining := need
	var total types.Quantity
	value := types.ZeroMoney()
	for _, lot := range lots {
		if remaining.IsZero() {
			break
		}
		take := lot.QuantityOnHand
		if take > remaining {
			take = remaining
		}
		value = value.Add(lot.UnitCost.Mul(take.Decimal()))
		total += take
		remaining -= take
	}
	if total.IsZero() {
		return types.ZeroMoney(), false
	}
	return value.Div(total.Decimal()), true
}

// Transfer moves quantity between warehouses as two paired movements sharing
// one reference id. Both aggregate rows are locked up front in ascending
// (warehouse_id, item_id) order so opposite-direction transfers cannot
// deadlock. Either both legs commit or neither does.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*StockMovement, *StockMovement, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	refID := id.New()
	var outLeg, inLeg *StockMovement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.lockAggregatesInOrder(ctx, req.StockItemID, req.FromWarehouseID, req.ToWarehouseID); err != nil {
			return err
		}

		outReq := MovementRequest{
			Type:          TypeTransfer,
			StockItemID:   req.StockItemID,
			WarehouseID:   req.FromWarehouseID,
			Quantity:      req.Quantity.Neg(),
			Actor:         req.Actor,
			Reason:        req.Reason,
			Notes:         req.Notes,
			ReferenceType: "transfer",
			ReferenceID:   &refID,
		}
		out, _, err := s.recordMovementTx(ctx, outReq)
		if err != nil {
			return err
		}

		// The destination lot inherits the cost basis leaving the source.
		inReq := MovementRequest{
			Type:          TypeTransfer,
			StockItemID:   req.StockItemID,
			WarehouseID:   req.ToWarehouseID,
			Quantity:      req.Quantity,
			UnitCost:      out.UnitCost,
			Actor:         req.Actor,
			Reason:        req.Reason,
			Notes:         req.Notes,
			ReferenceType: "transfer",
			ReferenceID:   &refID,
		}
		in, _, err := s.recordMovementTx(ctx, inReq)
		if err != nil {
			return err
		}

		outLeg, inLeg = out, in
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "recorded stock transfer",
		"reference_id", refID,
		"item_id", req.StockItemID,
		"from", req.FromWarehouseID,
		"to", req.ToWarehouseID,
		"quantity", req.Quantity,
	)
	return outLeg, inLeg, nil
}

// lockAggregatesInOrder acquires both aggregate row locks in a fixed global
// order: ascending warehouse id, item constant across both keys.
func (s *Service) lockAggregatesInOrder(ctx context.Context, itemID, whA, whB id.ID) error {
	first, second := whA, whB
	if bytes.Compare(whB[:], whA[:]) < 0 {
		first, second = whB, whA
	}
	if _, err := s.repo.GetAggregateForUpdate(ctx, itemID, first); err != nil {
		return fmt.Errorf("lock aggregate: %w", err)
	}
	if _, err := s.repo.GetAggregateForUpdate(ctx, itemID, second); err != nil {
		return fmt.Errorf("lock aggregate: %w", err)
	}
	return nil
}

// RecordDevaluation reclassifies quantity from standard lots into a devalued
// lot at the new cost. On-hand quantity is untouched; the movement row exists
// for the audit trail only.
func (s *Service) RecordDevaluation(ctx context.Context, req DevaluationRequest) (*StockMovement, *StockLot, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		movement *StockMovement
		lot      *StockLot
	)
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		m, l, err := s.recordDevaluationTx(ctx, req)
		if err != nil {
			return err
		}
		movement, lot = m, l
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "recorded stock devaluation",
		"movement_id", movement.ID,
		"item_id", req.StockItemID,
		"warehouse_id", req.WarehouseID,
		"quantity", req.Quantity,
		"new_unit_cost", lot.UnitCost,
	)
	return movement, lot, nil
}

// recordDevaluationTx runs the devaluation contract. Validations run in the
// prescribed order, all of them before any mutation.
func (s *Service) recordDevaluationTx(ctx context.Context, req DevaluationRequest) (*StockMovement, *StockLot, error) {
	it, err := s.items.GetByID(ctx, req.StockItemID)
	if err != nil {
		return nil, nil, err
	}
	wh, err := s.warehouses.GetByID(ctx, req.WarehouseID)
	if err != nil {
		return nil, nil, err
	}
	if !wh.IsActive {
		return nil, nil, apperror.NewValidation("warehouse is not active").
			WithDetail("warehouse_id", wh.ID)
	}

	// 1. Item must be trackable: devaluation is lot surgery.
	if !it.IsTrackable {
		return nil, nil, apperror.NewNotTrackable(it.ID)
	}

	// Lock order matches the outbound path: aggregate row first, lots second.
	agg, err := s.repo.GetAggregateForUpdate(ctx, it.ID, wh.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock aggregate: %w", err)
	}
	standard := LotStandard
	lots, err := s.repo.GetLotsForUpdate(ctx, it.ID, wh.ID, &standard)
	if err != nil {
		return nil, nil, fmt.Errorf("lock lots: %w", err)
	}

	// 2. The base cost is what the reclassified stock was actually acquired
	// at: the weighted cost of the oldest standard lots covering the
	// quantity. Default cost is the fallback for lot-free history.
	base, ok := lotCostBasis(lots, req.Quantity)
	if !ok {
		base = it.DefaultCost
	}
	if !base.IsPositive() {
		return nil, nil, apperror.NewInvalidDevaluationInput("item has no base cost to devalue against")
	}

	// 3. Devaluation only reduces value.
	newCost := req.resolveNewCost(base)
	if newCost.GreaterThan(base) {
		return nil, nil, apperror.NewDevaluationExceedsCost(newCost.String(), base.String())
	}

	// 4. Requested quantity must be covered by current on-hand stock.
	if agg.QuantityOnHand < req.Quantity {
		return nil, nil, apperror.NewInsufficientStock(it.ID.String(), req.Quantity.Float64(), agg.QuantityOnHand.Float64())
	}

	// Reclassify: drain standard lots oldest-first, extend or create the
	// devalued lot at the new cost.
	if _, err := s.drainLots(ctx, it.ID, lots, req.Quantity); err != nil {
		return nil, nil, err
	}

	dlot, err := s.repo.FindDevaluedLotForUpdate(ctx, it.ID, wh.ID, newCost)
	if err != nil {
		return nil, nil, fmt.Errorf("find devalued lot: %w", err)
	}
	if dlot == nil {
		dlot = NewStockLot(it.ID, wh.ID, newCost, LotDevalued, req.Quantity)
		if err := s.repo.InsertLot(ctx, dlot); err != nil {
			return nil, nil, fmt.Errorf("insert devalued lot: %w", err)
		}
	} else {
		dlot.QuantityOnHand += req.Quantity
		if err := s.repo.SetLotQuantity(ctx, dlot.ID, dlot.QuantityOnHand); err != nil {
			return nil, nil, fmt.Errorf("extend devalued lot: %w", err)
		}
	}

	now := time.Now().UTC()
	movement := &StockMovement{
		ID:          id.New(),
		StockItemID: it.ID,
		WarehouseID: wh.ID,
		Type:        TypeDevaluation,
		Quantity:    req.Quantity,
		UnitCost:    &newCost,
		Reason:      req.Reason,
		Notes:       req.Notes,
		MovedBy:     req.Actor,
		MovedAt:     now,
	}
	if err := s.repo.InsertMovement(ctx, movement); err != nil {
		return nil, nil, fmt.Errorf("insert movement: %w", err)
	}

	if err := s.recordAudit(ctx, AuditActionDevaluation, movement.ID, req.Actor, movement); err != nil {
		return nil, nil, err
	}
	return movement, dlot, nil
}

// WasteWithDevaluation devalues quantity and writes it off from the freshly
// devalued lot inside one transaction. A failure in the waste leg rolls the
// devaluation back too.
func (s *Service) WasteWithDevaluation(ctx context.Context, req WasteDevaluationRequest) (*StockMovement, *StockMovement, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	wasteQty := req.WasteQuantity
	if wasteQty.IsZero() {
		wasteQty = req.Devaluation.Quantity
	}

	var devalMovement, wasteMovement *StockMovement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		dm, dlot, err := s.recordDevaluationTx(ctx, req.Devaluation)
		if err != nil {
			return err
		}

		wasteReq := NewWaste(
			req.Devaluation.StockItemID,
			req.Devaluation.WarehouseID,
			wasteQty,
			&dlot.ID,
			req.Devaluation.Actor,
			req.WasteReason,
		)
		if err := wasteReq.Validate(); err != nil {
			return err
		}
		wm, _, err := s.recordMovementTx(ctx, wasteReq)
		if err != nil {
			return err
		}

		devalMovement, wasteMovement = dm, wm
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return devalMovement, wasteMovement, nil
}

// GetMovement re-reads a persisted movement by id.
func (s *Service) GetMovement(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	return s.repo.GetMovement(ctx, movementID)
}

// GetAggregate returns the aggregate row without locking.
func (s *Service) GetAggregate(ctx context.Context, itemID, warehouseID id.ID) (*WarehouseStock, error) {
	return s.repo.GetAggregate(ctx, itemID, warehouseID)
}

// RebuildAggregate replays the movement ledger for one key and rewrites the
// aggregate from the result. This is the reconciliation path for drift
// detection; lot drift is reported, never silently corrected.
func (s *Service) RebuildAggregate(ctx context.Context, itemID, warehouseID id.ID) (*WarehouseStock, error) {
	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var agg *WarehouseStock
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetAggregateForUpdate(ctx, itemID, warehouseID)
		if err != nil {
			return fmt.Errorf("lock aggregate: %w", err)
		}

		sum, err := s.repo.SumMovements(ctx, itemID, warehouseID)
		if err != nil {
			return fmt.Errorf("replay movements: %w", err)
		}

		if sum != a.QuantityOnHand {
			logger.Warn(ctx, "aggregate drift detected",
				"item_id", itemID,
				"warehouse_id", warehouseID,
				"aggregate", a.QuantityOnHand,
				"replayed", sum,
			)
		}

		if it.IsTrackable {
			lotSum, err := s.repo.SumLotQuantity(ctx, itemID, warehouseID)
			if err != nil {
				return fmt.Errorf("sum lots: %w", err)
			}
			if lotSum != sum {
				logger.Warn(ctx, "lot drift detected",
					"item_id", itemID,
					"warehouse_id", warehouseID,
					"lot_total", lotSum,
					"replayed", sum,
				)
			}
		}

		a.QuantityOnHand = sum
		a.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpsertAggregate(ctx, a); err != nil {
			return fmt.Errorf("upsert aggregate: %w", err)
		}
		agg = a
		return s.recordAuditAs(ctx, "warehouse_stock", AuditActionRebuild, itemID, "system", a)
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// recordAudit snapshots a movement mutation into the audit trail.
func (s *Service) recordAudit(ctx context.Context, action AuditAction, entityID id.ID, actor string, payload any) error {
	return s.recordAuditAs(ctx, "stock_movement", action, entityID, actor, payload)
}

func (s *Service) recordAuditAs(ctx context.Context, entityType string, action AuditAction, entityID id.ID, actor string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	entry := AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Actor:      actor,
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}
