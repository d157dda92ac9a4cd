package reservation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

// fakeStore backs both the reservation repo and the aggregate store.
type fakeStore struct {
	mu           sync.Mutex
	reservations map[id.ID]StockReservation
	aggs         map[string]ledger.WarehouseStock
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reservations: make(map[id.ID]StockReservation),
		aggs:         make(map[string]ledger.WarehouseStock),
	}
}

func aggKey(itemID, warehouseID id.ID) string {
	return itemID.String() + "|" + warehouseID.String()
}

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

	// Snapshot for rollback.
	resSnap := make(map[id.ID]StockReservation, len(m.store.reservations))
	for k, v := range m.store.reservations {
		resSnap[k] = v
	}
	aggSnap := make(map[string]ledger.WarehouseStock, len(m.store.aggs))
	for k, v := range m.store.aggs {
		aggSnap[k] = v
	}

	err := fn(context.WithValue(ctx, txFlag{}, true))
	if err != nil {
		m.store.reservations = resSnap
		m.store.aggs = aggSnap
	}
	return err
}

type fakeRepo struct {
	store *fakeStore
}

func (r *fakeRepo) Insert(ctx context.Context, res *StockReservation) error {
	r.store.reservations[res.ID] = *res
	return nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, resID id.ID) (*StockReservation, error) {
	return r.Get(ctx, resID)
}

func (r *fakeRepo) Get(ctx context.Context, resID id.ID) (*StockReservation, error) {
	if res, ok := r.store.reservations[resID]; ok {
		return &res, nil
	}
	return nil, apperror.NewNotFound("reservation", resID)
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, res *StockReservation) error {
	if _, ok := r.store.reservations[res.ID]; !ok {
		return apperror.NewNotFound("reservation", res.ID)
	}
	r.store.reservations[res.ID] = *res
	return nil
}

func (r *fakeRepo) ListActive(ctx context.Context, itemID, warehouseID id.ID) ([]StockReservation, error) {
	var out []StockReservation
	for _, res := range r.store.reservations {
		if res.StockItemID == itemID && res.WarehouseID == warehouseID && res.Status == StatusReserved {
			out = append(out, res)
		}
	}
	return out, nil
}

type fakeAggregates struct {
	store *fakeStore
}

func (a *fakeAggregates) GetAggregateForUpdate(ctx context.Context, itemID, warehouseID id.ID) (*ledger.WarehouseStock, error) {
	if agg, ok := a.store.aggs[aggKey(itemID, warehouseID)]; ok {
		copied := agg
		return &copied, nil
	}
	return &ledger.WarehouseStock{StockItemID: itemID, WarehouseID: warehouseID}, nil
}

func (a *fakeAggregates) UpsertAggregate(ctx context.Context, agg *ledger.WarehouseStock) error {
	a.store.aggs[aggKey(agg.StockItemID, agg.WarehouseID)] = *agg
	return nil
}

type fixture struct {
	svc   *Service
	store *fakeStore

	itemID      id.ID
	warehouseID id.ID
}

func newFixture(t *testing.T, onHand int64) *fixture {
	t.Helper()

	store := newFakeStore()
	f := &fixture{
		svc:         NewService(&fakeRepo{store: store}, &fakeAggregates{store: store}, &fakeTxManager{store: store}),
		store:       store,
		itemID:      id.New(),
		warehouseID: id.New(),
	}
	store.aggs[aggKey(f.itemID, f.warehouseID)] = ledger.WarehouseStock{
		StockItemID:    f.itemID,
		WarehouseID:    f.warehouseID,
		QuantityOnHand: types.NewQuantityFromInt(onHand),
	}
	return f
}

func (f *fixture) agg() ledger.WarehouseStock {
	return f.store.aggs[aggKey(f.itemID, f.warehouseID)]
}

func qty(v int64) types.Quantity { return types.NewQuantityFromInt(v) }

func TestReserve_HoldsAvailableQuantity(t *testing.T) {
	f := newFixture(t, 10)

	res, err := f.svc.Reserve(context.Background(), f.itemID, f.warehouseID, qty(4), "picker")
	require.NoError(t, err)

	assert.Equal(t, StatusReserved, res.Status)
	assert.Equal(t, qty(4), res.Quantity)

	agg := f.agg()
	assert.Equal(t, qty(10), agg.QuantityOnHand, "reserve never touches on-hand")
	assert.Equal(t, qty(4), agg.QuantityReserved)
	assert.Equal(t, qty(6), agg.QuantityAvailable())
}

func TestReserve_ChecksAvailableNotOnHand(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.svc.Reserve(context.Background(), f.itemID, f.warehouseID, qty(7), "picker")
	require.NoError(t, err)

	// 3 available left; 4 must fail even though 10 are on hand.
	_, err = f.svc.Reserve(context.Background(), f.itemID, f.warehouseID, qty(4), "picker")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Equal(t, qty(7), f.agg().QuantityReserved)
}

func TestReserve_InvalidInput(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.svc.Reserve(context.Background(), f.itemID, f.warehouseID, qty(0), "picker")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.Reserve(context.Background(), f.itemID, f.warehouseID, qty(1), "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestFulfill_ReleasesHold(t *testing.T) {
	f := newFixture(t, 10)
	res, err := f.svc.Reserve(context.Background(), f.itemID, f.warehouseID, qty(4), "picker")
	require.NoError(t, err)

	released, err := f.svc.Fulfill(context.Background(), res.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusFulfilled, released.Status)
	require.NotNil(t, released.ReleasedAt)

	agg := f.agg()
	assert.Equal(t, qty(0), agg.QuantityReserved)
	assert.Equal(t, qty(10), agg.QuantityOnHand, "fulfilment leaves on-hand to the ledger")
}

func TestCancel_ReleasesHold(t *testing.T) {
	f := newFixture(t, 10)
	res, err := f.svc.Reserve(context.Background(), f.itemID, f.warehouseID, qty(4), "picker")
	require.NoError(t, err)

	released, err := f.svc.Cancel(context.Background(), res.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, released.Status)
	assert.Equal(t, qty(0), f.agg().QuantityReserved)
}

func TestRelease_TerminalStateRejected(t *testing.T) {
	f := newFixture(t, 10)
	res, err := f.svc.Reserve(context.Background(), f.itemID, f.warehouseID, qty(4), "picker")
	require.NoError(t, err)

	_, err = f.svc.Fulfill(context.Background(), res.ID)
	require.NoError(t, err)

	// Second release in either direction is INVALID_STATE, and the hold is
	// not released twice.
	_, err = f.svc.Fulfill(context.Background(), res.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))

	_, err = f.svc.Cancel(context.Background(), res.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))

	assert.Equal(t, qty(0), f.agg().QuantityReserved)
}

func TestRelease_UnknownReservation(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.svc.Fulfill(context.Background(), id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestListActive_ExcludesReleased(t *testing.T) {
	f := newFixture(t, 10)

	a, err := f.svc.Reserve(context.Background(), f.itemID, f.warehouseID, qty(2), "picker")
	require.NoError(t, err)
	_, err = f.svc.Reserve(context.Background(), f.itemID, f.warehouseID, qty(3), "picker")
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), a.ID)
	require.NoError(t, err)

	active, err := f.svc.ListActive(context.Background(), f.itemID, f.warehouseID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, qty(3), active[0].Quantity)
}

func TestReserve_ConcurrentHoldsNeverOverbook(t *testing.T) {
	f := newFixture(t, 100)

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Reserve(context.Background(), f.itemID, f.warehouseID, qty(60), "picker")
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, qty(60), f.agg().QuantityReserved)
}
