package valuation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
)

// Service computes stock valuation, movement history, turnover, and low-stock
// reports. Reports are advisory: malformed rows are logged and skipped rather
// than failing the whole report.
type Service struct {
	repo Repository
}

// NewService creates the valuation engine.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetStockValuation sums stock value. When any lot rows exist the whole
// report is lot-based; otherwise it falls back to aggregate × default cost.
// The presence of a single lot row switches the entire computation; mixing
// the modes would double count devalued stock.
func (s *Service) GetStockValuation(ctx context.Context, filter Filter) (*Report, error) {
	hasLots, err := s.repo.AnyLotsExist(ctx)
	if err != nil {
		return nil, fmt.Errorf("check lots: %w", err)
	}

	mode := CostingDefault
	var rows []Row
	if hasLots {
		mode = CostingLots
		rows, err = s.repo.LotValueRows(ctx, filter)
	} else {
		rows, err = s.repo.DefaultCostRows(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("load value rows: %w", err)
	}

	report := &Report{
		Mode:       mode,
		AsOf:       time.Now().UTC(),
		TotalValue: types.ZeroMoney(),
	}

	byWarehouse := make(map[string]*GroupTotal)
	byCategory := make(map[string]*GroupTotal)

	for _, row := range rows {
		if row.Quantity.IsNegative() || row.UnitCost.IsNegative() {
			logger.Warn(ctx, "skipping malformed valuation row",
				"item_id", row.StockItemID,
				"warehouse_id", row.WarehouseID,
				"quantity", row.Quantity,
				"unit_cost", row.UnitCost,
			)
			continue
		}

		row.Value = row.UnitCost.Mul(row.Quantity.Decimal())
		report.TotalValue = report.TotalValue.Add(row.Value)
		report.Items = append(report.Items, row)

		accumulate(byWarehouse, row.WarehouseCode, row)
		accumulate(byCategory, categoryKey(row.Category), row)
	}

	report.ByWarehouse = sortedTotals(byWarehouse)
	report.ByCategory = sortedTotals(byCategory)
	return report, nil
}

func accumulate(groups map[string]*GroupTotal, key string, row Row) {
	g, ok := groups[key]
	if !ok {
		g = &GroupTotal{Key: key, Value: types.ZeroMoney()}
		groups[key] = g
	}
	g.Quantity += row.Quantity
	g.Value = g.Value.Add(row.Value)
}

func categoryKey(category string) string {
	if category == "" {
		return "uncategorized"
	}
	return category
}

func sortedTotals(groups map[string]*GroupTotal) []GroupTotal {
	out := make([]GroupTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// GetMovementHistory returns ledger rows matching the filter, newest-first.
func (s *Service) GetMovementHistory(ctx context.Context, filter HistoryFilter) ([]ledger.StockMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.MovementHistory(ctx, filter)
}

// GetInventoryTurnover sums receipts and expenses over the period.
func (s *Service) GetInventoryTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error) {
	if !filter.ToDate.After(filter.FromDate) {
		return Turnover{}, apperror.NewValidation("turnover period is empty").
			WithDetail("field", "fromDate")
	}
	return s.repo.Turnover(ctx, filter)
}

// GetLowStock returns items whose available quantity is at or below their
// reorder point.
func (s *Service) GetLowStock(ctx context.Context, filter Filter) ([]LowStockRow, error) {
	return s.repo.LowStock(ctx, filter.WarehouseID)
}
