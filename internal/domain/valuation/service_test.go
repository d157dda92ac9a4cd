package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

// fakeRepo returns canned rows; the tests exercise costing policy, not SQL.
type fakeRepo struct {
	hasLots         bool
	lotRows         []Row
	defaultRows     []Row
	history         []ledger.StockMovement
	turnover        Turnover
	lowStock        []LowStockRow
	lotRowsCalled   bool
	defaultsCalled  bool
	historyFilter   HistoryFilter
}

func (r *fakeRepo) AnyLotsExist(ctx context.Context) (bool, error) { return r.hasLots, nil }

func (r *fakeRepo) LotValueRows(ctx context.Context, filter Filter) ([]Row, error) {
	r.lotRowsCalled = true
	return r.lotRows, nil
}

func (r *fakeRepo) DefaultCostRows(ctx context.Context, filter Filter) ([]Row, error) {
	r.defaultsCalled = true
	return r.defaultRows, nil
}

func (r *fakeRepo) MovementHistory(ctx context.Context, filter HistoryFilter) ([]ledger.StockMovement, error) {
	r.historyFilter = filter
	return r.history, nil
}

func (r *fakeRepo) Turnover(ctx context.Context, filter TurnoverFilter) (Turnover, error) {
	return r.turnover, nil
}

func (r *fakeRepo) LowStock(ctx context.Context, warehouseID *id.ID) ([]LowStockRow, error) {
	return r.lowStock, nil
}

func row(sku, warehouseCode, category string, quantity int64, unitCost string) Row {
	return Row{
		StockItemID:   id.New(),
		ItemSKU:       sku,
		ItemName:      sku,
		Category:      category,
		WarehouseID:   id.New(),
		WarehouseCode: warehouseCode,
		Quantity:      types.NewQuantityFromInt(quantity),
		UnitCost:      types.MustMoney(unitCost),
	}
}

func TestGetStockValuation_LotMode(t *testing.T) {
	repo := &fakeRepo{
		hasLots: true,
		lotRows: []Row{
			row("WIDGET", "MAIN", "widgets", 10, "2.00"),
			row("WIDGET", "EAST", "widgets", 5, "2.00"),
			row("GADGET", "MAIN", "gadgets", 4, "7.50"),
		},
	}
	svc := NewService(repo)

	report, err := svc.GetStockValuation(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, CostingLots, report.Mode)
	assert.True(t, repo.lotRowsCalled)
	assert.False(t, repo.defaultsCalled, "modes are never mixed")

	// 10×2 + 5×2 + 4×7.50 = 60
	assert.True(t, report.TotalValue.Equal(types.MustMoney("60")), "got %s", report.TotalValue.String())
	require.Len(t, report.Items, 3)

	// Grouping keys sorted.
	require.Len(t, report.ByWarehouse, 2)
	assert.Equal(t, "EAST", report.ByWarehouse[0].Key)
	assert.Equal(t, "MAIN", report.ByWarehouse[1].Key)
	assert.True(t, report.ByWarehouse[1].Value.Equal(types.MustMoney("50")))

	require.Len(t, report.ByCategory, 2)
	assert.Equal(t, "gadgets", report.ByCategory[0].Key)
	assert.Equal(t, "widgets", report.ByCategory[1].Key)
}

func TestGetStockValuation_DefaultCostFallback(t *testing.T) {
	repo := &fakeRepo{
		hasLots: false,
		defaultRows: []Row{
			row("WIDGET", "MAIN", "", 8, "3.00"),
		},
	}
	svc := NewService(repo)

	report, err := svc.GetStockValuation(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, CostingDefault, report.Mode)
	assert.True(t, repo.defaultsCalled)
	assert.False(t, repo.lotRowsCalled, "modes are never mixed")
	assert.True(t, report.TotalValue.Equal(types.MustMoney("24")))

	// Empty category lands in the uncategorized bucket.
	require.Len(t, report.ByCategory, 1)
	assert.Equal(t, "uncategorized", report.ByCategory[0].Key)
}

func TestGetStockValuation_SkipsMalformedRows(t *testing.T) {
	bad := row("BROKEN", "MAIN", "widgets", -3, "2.00")
	repo := &fakeRepo{
		hasLots: true,
		lotRows: []Row{
			row("WIDGET", "MAIN", "widgets", 10, "2.00"),
			bad,
		},
	}
	svc := NewService(repo)

	report, err := svc.GetStockValuation(context.Background(), Filter{})
	require.NoError(t, err, "malformed rows degrade the report, never fail it")
	require.Len(t, report.Items, 1)
	assert.True(t, report.TotalValue.Equal(types.MustMoney("20")))
}

func TestGetMovementHistory_ClampsLimit(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	_, err := svc.GetMovementHistory(context.Background(), HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 100, repo.historyFilter.Limit, "default limit applied")

	_, err = svc.GetMovementHistory(context.Background(), HistoryFilter{Limit: 100000})
	require.NoError(t, err)
	assert.Equal(t, 1000, repo.historyFilter.Limit, "limit clamped")
}

func TestGetInventoryTurnover_EmptyPeriodRejected(t *testing.T) {
	svc := NewService(&fakeRepo{})

	now := time.Now()
	_, err := svc.GetInventoryTurnover(context.Background(), TurnoverFilter{
		FromDate: now,
		ToDate:   now,
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestGetInventoryTurnover_PassesThrough(t *testing.T) {
	want := Turnover{
		OpeningBalance: types.NewQuantityFromInt(10),
		Receipt:        types.NewQuantityFromInt(5),
		Expense:        types.NewQuantityFromInt(3),
		ClosingBalance: types.NewQuantityFromInt(12),
	}
	svc := NewService(&fakeRepo{turnover: want})

	got, err := svc.GetInventoryTurnover(context.Background(), TurnoverFilter{
		FromDate: time.Now().Add(-24 * time.Hour),
		ToDate:   time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, want.ClosingBalance, got.ClosingBalance)
}
