package ledger

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalog/item"
	"stockledger/internal/domain/catalog/warehouse"
)

// --- In-memory fakes ---

// fakeStore holds ledger state behind the fake repository. The fake
// transaction manager snapshots and restores it to emulate rollback.
type fakeStore struct {
	mu        sync.Mutex
	movements []StockMovement
	lots      []StockLot
	aggs      map[string]WarehouseStock
}

func newFakeStore() *fakeStore {
	return &fakeStore{aggs: make(map[string]WarehouseStock)}
}

func aggKey(itemID, warehouseID id.ID) string {
	return itemID.String() + "|" + warehouseID.String()
}

type storeSnapshot struct {
	movements []StockMovement
	lots      []StockLot
	aggs      map[string]WarehouseStock
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		movements: append([]StockMovement(nil), s.movements...),
		lots:      append([]StockLot(nil), s.lots...),
		aggs:      make(map[string]WarehouseStock, len(s.aggs)),
	}
	for k, v := range s.aggs {
		snap.aggs[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.movements = snap.movements
	s.lots = snap.lots
	s.aggs = snap.aggs
}

// fakeTxManager serializes transactions with a mutex and rolls the store back
// on error, mirroring the contract the real manager provides. Nested calls
// join the open transaction.
type fakeTxManager struct {
	store *fakeStore
}

type txFlag struct{}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txFlag{}) != nil {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snap := m.store.snapshot()
	err := fn(context.WithValue(ctx, txFlag{}, true))
	if err != nil {
		m.store.restore(snap)
	}
	return err
}

// fakeRepo implements Repository over fakeStore. Callers always hold the
// transaction, so no extra locking here.
type fakeRepo struct {
	store *fakeStore
}

func (r *fakeRepo) InsertMovement(ctx context.Context, m *StockMovement) error {
	r.store.movements = append(r.store.movements, *m)
	return nil
}

func (r *fakeRepo) GetMovement(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	for i := range r.store.movements {
		if r.store.movements[i].ID == movementID {
			m := r.store.movements[i]
			return &m, nil
		}
	}
	return nil, apperror.NewNotFound("stock movement", movementID)
}

func (r *fakeRepo) SumMovements(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, error) {
	var sum types.Quantity
	for _, m := range r.store.movements {
		if m.StockItemID == itemID && m.WarehouseID == warehouseID && m.Type != TypeDevaluation {
			sum += m.Quantity
		}
	}
	return sum, nil
}

func (r *fakeRepo) InsertLot(ctx context.Context, lot *StockLot) error {
	r.store.lots = append(r.store.lots, *lot)
	return nil
}

func (r *fakeRepo) GetLotForUpdate(ctx context.Context, lotID id.ID) (*StockLot, error) {
	for i := range r.store.lots {
		if r.store.lots[i].ID == lotID {
			lot := r.store.lots[i]
			return &lot, nil
		}
	}
	return nil, apperror.NewNotFound("stock lot", lotID)
}

func (r *fakeRepo) GetLotsForUpdate(ctx context.Context, itemID, warehouseID id.ID, lotType *LotType) ([]StockLot, error) {
	var out []StockLot
	for _, lot := range r.store.lots {
		if lot.StockItemID != itemID || lot.WarehouseID != warehouseID {
			continue
		}
		if !lot.QuantityOnHand.IsPositive() {
			continue
		}
		if lotType != nil && lot.LotType != *lotType {
			continue
		}
		out = append(out, lot)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (r *fakeRepo) FindDevaluedLotForUpdate(ctx context.Context, itemID, warehouseID id.ID, unitCost types.Money) (*StockLot, error) {
	for i := range r.store.lots {
		lot := r.store.lots[i]
		if lot.StockItemID == itemID && lot.WarehouseID == warehouseID &&
			lot.LotType == LotDevalued && lot.UnitCost.Equal(unitCost) {
			return &lot, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) SetLotQuantity(ctx context.Context, lotID id.ID, qty types.Quantity) error {
	for i := range r.store.lots {
		if r.store.lots[i].ID == lotID {
			r.store.lots[i].QuantityOnHand = qty
			return nil
		}
	}
	return apperror.NewNotFound("stock lot", lotID)
}

func (r *fakeRepo) SumLotQuantity(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, error) {
	var sum types.Quantity
	for _, lot := range r.store.lots {
		if lot.StockItemID == itemID && lot.WarehouseID == warehouseID {
			sum += lot.QuantityOnHand
		}
	}
	return sum, nil
}

func (r *fakeRepo) GetAggregateForUpdate(ctx context.Context, itemID, warehouseID id.ID) (*WarehouseStock, error) {
	if agg, ok := r.store.aggs[aggKey(itemID, warehouseID)]; ok {
		a := agg
		return &a, nil
	}
	return &WarehouseStock{StockItemID: itemID, WarehouseID: warehouseID}, nil
}

func (r *fakeRepo) GetAggregate(ctx context.Context, itemID, warehouseID id.ID) (*WarehouseStock, error) {
	return r.GetAggregateForUpdate(ctx, itemID, warehouseID)
}

func (r *fakeRepo) UpsertAggregate(ctx context.Context, agg *WarehouseStock) error {
	r.store.aggs[aggKey(agg.StockItemID, agg.WarehouseID)] = *agg
	return nil
}

// fakeItems / fakeWarehouses back the catalog readers.
type fakeItems struct {
	items map[id.ID]*item.StockItem
}

func (f *fakeItems) GetByID(ctx context.Context, itemID id.ID) (*item.StockItem, error) {
	if it, ok := f.items[itemID]; ok {
		return it, nil
	}
	return nil, apperror.NewNotFound("stock item", itemID)
}

type fakeWarehouses struct {
	warehouses map[id.ID]*warehouse.Warehouse
}

func (f *fakeWarehouses) GetByID(ctx context.Context, warehouseID id.ID) (*warehouse.Warehouse, error) {
	if wh, ok := f.warehouses[warehouseID]; ok {
		return wh, nil
	}
	return nil, apperror.NewNotFound("warehouse", warehouseID)
}

// failingAudit fails on a chosen action to exercise rollback paths.
type failingAudit struct {
	failOn AuditAction
}

func (f *failingAudit) Record(ctx context.Context, entry AuditEntry) error {
	if entry.Action == f.failOn {
		return apperror.NewInternal(assert.AnError)
	}
	return nil
}

// --- Fixture ---

type fixture struct {
	svc   *Service
	store *fakeStore
	repo  *fakeRepo

	item      *item.StockItem
	untracked *item.StockItem
	whA       *warehouse.Warehouse
	whB       *warehouse.Warehouse
	inactive  *warehouse.Warehouse
}

func newFixture(t *testing.T, audit AuditRecorder) *fixture {
	t.Helper()

	store := newFakeStore()
	repo := &fakeRepo{store: store}
	txm := &fakeTxManager{store: store}

	tracked := item.NewStockItem("WIDGET-1", "Widget", types.MustMoney("10.00"))
	untracked := item.NewStockItem("SERVICE-1", "Service Fee", types.MustMoney("5.00"))
	untracked.IsTrackable = false

	whA := warehouse.NewWarehouse("MAIN", "Main")
	whB := warehouse.NewWarehouse("EAST", "East")
	inactive := warehouse.NewWarehouse("OLD", "Closed")
	inactive.IsActive = false

	items := &fakeItems{items: map[id.ID]*item.StockItem{
		tracked.ID:   tracked,
		untracked.ID: untracked,
	}}
	warehouses := &fakeWarehouses{warehouses: map[id.ID]*warehouse.Warehouse{
		whA.ID:      whA,
		whB.ID:      whB,
		inactive.ID: inactive,
	}}

	return &fixture{
		svc:       NewService(repo, items, warehouses, audit, txm),
		store:     store,
		repo:      repo,
		item:      tracked,
		untracked: untracked,
		whA:       whA,
		whB:       whB,
		inactive:  inactive,
	}
}

func (f *fixture) purchase(t *testing.T, wh *warehouse.Warehouse, qty int64, cost string) *StockMovement {
	t.Helper()
	req := NewPurchase(f.item.ID, wh.ID, types.NewQuantityFromInt(qty), types.MustMoney(cost), "tester")
	m, _, err := f.svc.RecordMovement(context.Background(), req)
	require.NoError(t, err)
	return m
}

func (f *fixture) onHand(wh *warehouse.Warehouse) types.Quantity {
	agg, _ := f.repo.GetAggregate(context.Background(), f.item.ID, wh.ID)
	return agg.QuantityOnHand
}

func qty(v int64) types.Quantity { return types.NewQuantityFromInt(v) }

// --- Movement tests ---

func TestRecordMovement_PurchaseCreatesLotAndAggregate(t *testing.T) {
	f := newFixture(t, nil)

	m := f.purchase(t, f.whA, 10, "12.50")

	require.NotNil(t, m.UnitCost)
	assert.True(t, m.UnitCost.Equal(types.MustMoney("12.50")))
	assert.Equal(t, qty(10), f.onHand(f.whA))

	require.Len(t, f.store.lots, 1)
	lot := f.store.lots[0]
	assert.Equal(t, LotStandard, lot.LotType)
	assert.Equal(t, qty(10), lot.QuantityOnHand)
	assert.True(t, lot.UnitCost.Equal(types.MustMoney("12.50")))
}

func TestRecordMovement_PurchaseFallsBackToDefaultCost(t *testing.T) {
	f := newFixture(t, nil)

	req := NewAdjustment(f.item.ID, f.whA.ID, qty(4), "tester", "count correction")
	m, _, err := f.svc.RecordMovement(context.Background(), req)
	require.NoError(t, err)

	// No explicit cost on the request: the lot is booked at item default.
	require.NotNil(t, m.UnitCost)
	assert.True(t, m.UnitCost.Equal(f.item.DefaultCost))
	require.Len(t, f.store.lots, 1)
	assert.True(t, f.store.lots[0].UnitCost.Equal(f.item.DefaultCost))
}

func TestRecordMovement_SaleConsumesFIFO(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 5, "2.00")
	f.purchase(t, f.whA, 5, "4.00")

	m, agg, err := f.svc.RecordMovement(context.Background(),
		NewSale(f.item.ID, f.whA.ID, qty(7), "tester"))
	require.NoError(t, err)

	assert.Equal(t, qty(3), agg.QuantityOnHand)

	// Oldest lot fully drained, second partially.
	lots, err := f.repo.GetLotsForUpdate(context.Background(), f.item.ID, f.whA.ID, nil)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, qty(3), lots[0].QuantityOnHand)
	assert.True(t, lots[0].UnitCost.Equal(types.MustMoney("4.00")))

	// Weighted cost: 5×2.00 + 2×4.00 over 7 units.
	require.NotNil(t, m.UnitCost)
	assert.True(t, m.UnitCost.Equal(types.MustMoney("18").Div(types.MustMoney("7"))),
		"got %s", m.UnitCost.String())
}

func TestRecordMovement_InsufficientStock(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 5, "2.00")

	_, _, err := f.svc.RecordMovement(context.Background(),
		NewSale(f.item.ID, f.whA.ID, qty(6), "tester"))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	// Nothing persisted.
	assert.Equal(t, qty(5), f.onHand(f.whA))
	assert.Len(t, f.store.movements, 1)
}

func TestRecordMovement_LotShortfallRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 5, "2.00")

	// Drift the aggregate above lot coverage, then try to sell more than the
	// lots can fund. The aggregate check passes, the lot check must fail and
	// roll everything back.
	f.store.aggs[aggKey(f.item.ID, f.whA.ID)] = WarehouseStock{
		StockItemID:    f.item.ID,
		WarehouseID:    f.whA.ID,
		QuantityOnHand: qty(8),
	}

	_, _, err := f.svc.RecordMovement(context.Background(),
		NewSale(f.item.ID, f.whA.ID, qty(6), "tester"))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeLotInsufficient))

	assert.Equal(t, qty(8), f.onHand(f.whA))
	assert.Equal(t, qty(5), f.store.lots[0].QuantityOnHand)
	assert.Len(t, f.store.movements, 1)
}

func TestRecordMovement_UntrackedItemSkipsLots(t *testing.T) {
	f := newFixture(t, nil)

	req := NewPurchase(f.untracked.ID, f.whA.ID, qty(3), types.MustMoney("5.00"), "tester")
	_, agg, err := f.svc.RecordMovement(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, qty(3), agg.QuantityOnHand)
	assert.Empty(t, f.store.lots)
}

func TestRecordMovement_InactiveWarehouseRejected(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.svc.RecordMovement(context.Background(),
		NewPurchase(f.item.ID, f.inactive.ID, qty(1), types.MustMoney("1.00"), "tester"))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRecordMovement_DevaluationTypeRejected(t *testing.T) {
	f := newFixture(t, nil)

	req := MovementRequest{
		Type:        TypeDevaluation,
		StockItemID: f.item.ID,
		WarehouseID: f.whA.ID,
		Quantity:    qty(1),
		Actor:       "tester",
	}
	_, _, err := f.svc.RecordMovement(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRecordMovement_PinnedLotConsumption(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 5, "2.00")
	f.purchase(t, f.whA, 5, "4.00")

	// Pin the newer lot; FIFO order must not apply.
	newer := f.store.lots[1]
	req := NewWaste(f.item.ID, f.whA.ID, qty(4), &newer.ID, "tester", "damaged")
	m, _, err := f.svc.RecordMovement(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, qty(5), f.store.lots[0].QuantityOnHand)
	assert.Equal(t, qty(1), f.store.lots[1].QuantityOnHand)
	require.NotNil(t, m.UnitCost)
	assert.True(t, m.UnitCost.Equal(types.MustMoney("4.00")))
}

func TestRecordMovement_PinnedLotWrongKeyRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 5, "2.00")
	f.purchase(t, f.whB, 5, "2.00")

	foreign := f.store.lots[1] // belongs to whB
	req := NewWaste(f.item.ID, f.whA.ID, qty(1), &foreign.ID, "tester", "oops")
	_, _, err := f.svc.RecordMovement(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

// --- Transfer tests ---

func TestTransfer_ZeroSumPairedLegs(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 10, "3.00")

	out, in, err := f.svc.Transfer(context.Background(), TransferRequest{
		StockItemID:     f.item.ID,
		FromWarehouseID: f.whA.ID,
		ToWarehouseID:   f.whB.ID,
		Quantity:        qty(4),
		Actor:           "tester",
	})
	require.NoError(t, err)

	assert.Equal(t, qty(-4), out.Quantity)
	assert.Equal(t, qty(4), in.Quantity)
	require.NotNil(t, out.ReferenceID)
	require.NotNil(t, in.ReferenceID)
	assert.Equal(t, *out.ReferenceID, *in.ReferenceID)

	assert.Equal(t, qty(6), f.onHand(f.whA))
	assert.Equal(t, qty(4), f.onHand(f.whB))

	// Destination lot carries the source cost basis.
	destLots, err := f.repo.GetLotsForUpdate(context.Background(), f.item.ID, f.whB.ID, nil)
	require.NoError(t, err)
	require.Len(t, destLots, 1)
	assert.True(t, destLots[0].UnitCost.Equal(types.MustMoney("3.00")))
}

func TestTransfer_InsufficientSourceRollsBackBothLegs(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 3, "3.00")

	_, _, err := f.svc.Transfer(context.Background(), TransferRequest{
		StockItemID:     f.item.ID,
		FromWarehouseID: f.whA.ID,
		ToWarehouseID:   f.whB.ID,
		Quantity:        qty(5),
		Actor:           "tester",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	assert.Equal(t, qty(3), f.onHand(f.whA))
	assert.Equal(t, qty(0), f.onHand(f.whB))
	assert.Len(t, f.store.movements, 1)
}

func TestTransfer_SameWarehouseRejected(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.svc.Transfer(context.Background(), TransferRequest{
		StockItemID:     f.item.ID,
		FromWarehouseID: f.whA.ID,
		ToWarehouseID:   f.whA.ID,
		Quantity:        qty(1),
		Actor:           "tester",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

// --- Devaluation tests ---

func TestRecordDevaluation_PercentReclassifiesLots(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 10, "10.00")

	pct := types.MustMoney("40")
	m, lot, err := f.svc.RecordDevaluation(context.Background(), DevaluationRequest{
		StockItemID: f.item.ID,
		WarehouseID: f.whA.ID,
		Quantity:    qty(4),
		Mode:        CostModePercent,
		Percent:     &pct,
		Actor:       "tester",
		Reason:      "water damage",
	})
	require.NoError(t, err)

	// On-hand unchanged, quantity reclassified between lots.
	assert.Equal(t, qty(10), f.onHand(f.whA))
	assert.Equal(t, LotDevalued, lot.LotType)
	assert.Equal(t, qty(4), lot.QuantityOnHand)
	assert.True(t, lot.UnitCost.Equal(types.MustMoney("6.00")), "got %s", lot.UnitCost.String())

	assert.Equal(t, qty(6), f.store.lots[0].QuantityOnHand)

	// The movement row is informational.
	assert.Equal(t, TypeDevaluation, m.Type)
	assert.Equal(t, qty(4), m.Quantity)
	sum, err := f.repo.SumMovements(context.Background(), f.item.ID, f.whA.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(10), sum)
}

func TestRecordDevaluation_FixedCostExtendsExistingLot(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 10, "10.00")

	fixed := types.MustMoney("2.50")
	_, first, err := f.svc.RecordDevaluation(context.Background(), DevaluationRequest{
		StockItemID: f.item.ID,
		WarehouseID: f.whA.ID,
		Quantity:    qty(3),
		Mode:        CostModeFixed,
		NewUnitCost: &fixed,
		Actor:       "tester",
	})
	require.NoError(t, err)

	_, second, err := f.svc.RecordDevaluation(context.Background(), DevaluationRequest{
		StockItemID: f.item.ID,
		WarehouseID: f.whA.ID,
		Quantity:    qty(2),
		Mode:        CostModeFixed,
		NewUnitCost: &fixed,
		Actor:       "tester",
	})
	require.NoError(t, err)

	// Same cost, same lot: extended, not stacked.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, qty(5), second.QuantityOnHand)
}

func TestRecordDevaluation_ValidationOrder(t *testing.T) {
	pct := func(v string) *types.Money { m := types.MustMoney(v); return &m }

	tests := []struct {
		name     string
		mutate   func(f *fixture, req *DevaluationRequest)
		wantCode string
	}{
		{
			name: "not trackable wins over everything",
			mutate: func(f *fixture, req *DevaluationRequest) {
				req.StockItemID = f.untracked.ID
				req.Quantity = qty(1000) // would also be insufficient
			},
			wantCode: apperror.CodeNotTrackable,
		},
		{
			name: "zero base cost before exceeds check",
			mutate: func(f *fixture, req *DevaluationRequest) {
				// lot-free history falls back to the default cost
				f.store.lots = nil
				f.item.DefaultCost = types.ZeroMoney()
			},
			wantCode: apperror.CodeInvalidDevaluationCost,
		},
		{
			name: "percent out of range",
			mutate: func(f *fixture, req *DevaluationRequest) {
				req.Percent = pct("140")
			},
			wantCode: apperror.CodeInvalidDevaluationCost,
		},
		{
			name: "fixed cost above base",
			mutate: func(f *fixture, req *DevaluationRequest) {
				req.Mode = CostModeFixed
				req.Percent = nil
				req.NewUnitCost = pct("11.00")
			},
			wantCode: apperror.CodeDevaluationExceedsCost,
		},
		{
			name: "insufficient stock checked last",
			mutate: func(f *fixture, req *DevaluationRequest) {
				req.Quantity = qty(11)
			},
			wantCode: apperror.CodeInsufficientStock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.purchase(t, f.whA, 10, "10.00")

			req := DevaluationRequest{
				StockItemID: f.item.ID,
				WarehouseID: f.whA.ID,
				Quantity:    qty(4),
				Mode:        CostModePercent,
				Percent:     pct("50"),
				Actor:       "tester",
			}
			tt.mutate(f, &req)

			_, _, err := f.svc.RecordDevaluation(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.wantCode),
				"want %s, got %v", tt.wantCode, err)
		})
	}
}

func TestRecordDevaluation_BaseIsAcquisitionCostNotDefault(t *testing.T) {
	// Default cost 10.00, but the stock was bought at 8.00: the percentage
	// applies to what the stock actually cost.
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 100, "8.00")

	pct := types.MustMoney("37.5")
	_, lot, err := f.svc.RecordDevaluation(context.Background(), DevaluationRequest{
		StockItemID: f.item.ID,
		WarehouseID: f.whA.ID,
		Quantity:    qty(100),
		Mode:        CostModePercent,
		Percent:     &pct,
		Actor:       "tester",
	})
	require.NoError(t, err)
	assert.True(t, lot.UnitCost.Equal(types.MustMoney("5.00")), "got %s", lot.UnitCost.String())
}

func TestRecordDevaluation_AboveAcquisitionCostRejected(t *testing.T) {
	// 9.00 is below the 10.00 default but above the 8.00 the stock was
	// acquired at; accepting it would raise the valuation.
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 100, "8.00")

	fixed := types.MustMoney("9.00")
	_, _, err := f.svc.RecordDevaluation(context.Background(), DevaluationRequest{
		StockItemID: f.item.ID,
		WarehouseID: f.whA.ID,
		Quantity:    qty(10),
		Mode:        CostModeFixed,
		NewUnitCost: &fixed,
		Actor:       "tester",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDevaluationExceedsCost))
}

func TestRecordDevaluation_WeightedBasisAcrossLots(t *testing.T) {
	// 5 @ 6.00 then 5 @ 10.00; devaluing all 10 devalues against the
	// weighted 8.00, oldest lots first.
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 5, "6.00")
	f.purchase(t, f.whA, 5, "10.00")

	pct := types.MustMoney("50")
	_, lot, err := f.svc.RecordDevaluation(context.Background(), DevaluationRequest{
		StockItemID: f.item.ID,
		WarehouseID: f.whA.ID,
		Quantity:    qty(10),
		Mode:        CostModePercent,
		Percent:     &pct,
		Actor:       "tester",
	})
	require.NoError(t, err)
	assert.True(t, lot.UnitCost.Equal(types.MustMoney("4.00")), "got %s", lot.UnitCost.String())
}

func TestRecordDevaluation_ToEqualCostAllowed(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 10, "10.00")

	fixed := types.MustMoney("10.00")
	_, lot, err := f.svc.RecordDevaluation(context.Background(), DevaluationRequest{
		StockItemID: f.item.ID,
		WarehouseID: f.whA.ID,
		Quantity:    qty(2),
		Mode:        CostModeFixed,
		NewUnitCost: &fixed,
		Actor:       "tester",
	})
	require.NoError(t, err)
	assert.True(t, lot.UnitCost.Equal(fixed))
}

// --- Composite waste tests ---

func TestWasteWithDevaluation_Composite(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 10, "10.00")

	pct := types.MustMoney("50")
	dev, waste, err := f.svc.WasteWithDevaluation(context.Background(), WasteDevaluationRequest{
		Devaluation: DevaluationRequest{
			StockItemID: f.item.ID,
			WarehouseID: f.whA.ID,
			Quantity:    qty(4),
			Mode:        CostModePercent,
			Percent:     &pct,
			Actor:       "tester",
		},
		WasteQuantity: qty(3),
		WasteReason:   "expired",
	})
	require.NoError(t, err)

	assert.Equal(t, TypeDevaluation, dev.Type)
	assert.Equal(t, TypeWaste, waste.Type)
	assert.Equal(t, qty(-3), waste.Quantity)
	require.NotNil(t, waste.UnitCost)
	assert.True(t, waste.UnitCost.Equal(types.MustMoney("5.00")))

	// 10 on hand − 3 wasted; 1 unit remains in the devalued lot.
	assert.Equal(t, qty(7), f.onHand(f.whA))
	lots, err := f.repo.GetLotsForUpdate(context.Background(), f.item.ID, f.whA.ID, nil)
	require.NoError(t, err)
	var devaluedLeft types.Quantity
	for _, lot := range lots {
		if lot.LotType == LotDevalued {
			devaluedLeft += lot.QuantityOnHand
		}
	}
	assert.Equal(t, qty(1), devaluedLeft)
}

func TestWasteWithDevaluation_DefaultsToFullQuantity(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 10, "10.00")

	pct := types.MustMoney("50")
	_, waste, err := f.svc.WasteWithDevaluation(context.Background(), WasteDevaluationRequest{
		Devaluation: DevaluationRequest{
			StockItemID: f.item.ID,
			WarehouseID: f.whA.ID,
			Quantity:    qty(4),
			Mode:        CostModePercent,
			Percent:     &pct,
			Actor:       "tester",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, qty(-4), waste.Quantity)
	assert.Equal(t, qty(6), f.onHand(f.whA))
}

func TestWasteWithDevaluation_FailureRollsBackDevaluation(t *testing.T) {
	// Audit fails on the waste movement: the whole composite must roll back,
	// including the already-applied devaluation.
	f := newFixture(t, &failingAudit{failOn: AuditActionMovement})

	// The audit recorder fails every movement audit, so seed stock directly.
	lot := NewStockLot(f.item.ID, f.whA.ID, types.MustMoney("10.00"), LotStandard, qty(10))
	f.store.lots = append(f.store.lots, *lot)
	f.store.aggs[aggKey(f.item.ID, f.whA.ID)] = WarehouseStock{
		StockItemID:    f.item.ID,
		WarehouseID:    f.whA.ID,
		QuantityOnHand: qty(10),
	}

	pct := types.MustMoney("50")
	_, _, err := f.svc.WasteWithDevaluation(context.Background(), WasteDevaluationRequest{
		Devaluation: DevaluationRequest{
			StockItemID: f.item.ID,
			WarehouseID: f.whA.ID,
			Quantity:    qty(4),
			Mode:        CostModePercent,
			Percent:     &pct,
			Actor:       "tester",
		},
	})
	require.Error(t, err)

	// No devalued lot survived, the standard lot is whole again.
	lots, lotErr := f.repo.GetLotsForUpdate(context.Background(), f.item.ID, f.whA.ID, nil)
	require.NoError(t, lotErr)
	require.Len(t, lots, 1)
	assert.Equal(t, LotStandard, lots[0].LotType)
	assert.Equal(t, qty(10), lots[0].QuantityOnHand)
	assert.Equal(t, qty(10), f.onHand(f.whA))
}

// --- Rebuild tests ---

func TestRebuildAggregate_CorrectsDrift(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 10, "2.00")
	_, _, err := f.svc.RecordMovement(context.Background(),
		NewSale(f.item.ID, f.whA.ID, qty(4), "tester"))
	require.NoError(t, err)

	// Introduce drift.
	f.store.aggs[aggKey(f.item.ID, f.whA.ID)] = WarehouseStock{
		StockItemID:    f.item.ID,
		WarehouseID:    f.whA.ID,
		QuantityOnHand: qty(99),
	}

	agg, err := f.svc.RebuildAggregate(context.Background(), f.item.ID, f.whA.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(6), agg.QuantityOnHand)
	assert.Equal(t, qty(6), f.onHand(f.whA))
}

func TestRebuildAggregate_IgnoresDevaluationQuantities(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 10, "10.00")

	pct := types.MustMoney("50")
	_, _, err := f.svc.RecordDevaluation(context.Background(), DevaluationRequest{
		StockItemID: f.item.ID,
		WarehouseID: f.whA.ID,
		Quantity:    qty(4),
		Mode:        CostModePercent,
		Percent:     &pct,
		Actor:       "tester",
	})
	require.NoError(t, err)

	agg, err := f.svc.RebuildAggregate(context.Background(), f.item.ID, f.whA.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(10), agg.QuantityOnHand)
}

// --- Concurrency ---

func TestRecordMovement_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t, nil)
	f.purchase(t, f.whA, 100, "1.00")

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.svc.RecordMovement(context.Background(),
				NewSale(f.item.ID, f.whA.ID, qty(60), "tester"))
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperror.HasCode(err, apperror.CodeInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, insufficient)
	assert.Equal(t, qty(40), f.onHand(f.whA))
}
