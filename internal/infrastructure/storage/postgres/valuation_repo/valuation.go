// Package valuation_repo provides the PostgreSQL read models behind the
// valuation engine: value rows, movement history, turnover, and low stock.
package valuation_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/valuation"
	"stockledger/internal/infrastructure/storage/postgres"
)

// Repo implements valuation.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// AnyLotsExist checks for lot rows belonging to active trackable items.
// Emptied lots still count: their presence means lot bookkeeping is on.
func (r *Repo) AnyLotsExist(ctx context.Context) (bool, error) {
	sql := `
		SELECT EXISTS (
			SELECT 1
			FROM stock_lots l
			JOIN stock_items i ON i.id = l.stock_item_id
			WHERE i.is_active AND i.is_trackable
		)
	`

	var exists bool
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql).Scan(&exists); err != nil {
		return false, fmt.Errorf("check lots exist: %w", err)
	}
	return exists, nil
}

func (r *Repo) LotValueRows(ctx context.Context, filter valuation.Filter) ([]valuation.Row, error) {
	return r.selectRows(ctx, lotValueQuery(r.builder, filter))
}

func (r *Repo) DefaultCostRows(ctx context.Context, filter valuation.Filter) ([]valuation.Row, error) {
	return r.selectRows(ctx, defaultCostQuery(r.builder, filter))
}

func lotValueQuery(b squirrel.StatementBuilderType, filter valuation.Filter) squirrel.SelectBuilder {
	q := b.Select(
		"l.stock_item_id",
		"i.sku AS item_sku",
		"i.name AS item_name",
		"i.category",
		"l.warehouse_id",
		"w.code AS warehouse_code",
		"l.lot_type",
		"l.quantity_on_hand AS quantity",
		"l.unit_cost",
	).
		From("stock_lots l").
		Join("stock_items i ON i.id = l.stock_item_id").
		Join("warehouses w ON w.id = l.warehouse_id").
		Where("l.quantity_on_hand > 0").
		Where(squirrel.Eq{"i.is_active": true, "i.is_trackable": true}).
		OrderBy("i.sku", "w.code", "l.id")

	return applyValueFilter(q, filter)
}

// defaultCostQuery is the lot-free fallback. Untracked items carry aggregate
// rows without lots, so trackability is deliberately not filtered here.
func defaultCostQuery(b squirrel.StatementBuilderType, filter valuation.Filter) squirrel.SelectBuilder {
	q := b.Select(
		"s.stock_item_id",
		"i.sku AS item_sku",
		"i.name AS item_name",
		"i.category",
		"s.warehouse_id",
		"w.code AS warehouse_code",
		"'' AS lot_type",
		"s.quantity_on_hand AS quantity",
		"i.default_cost AS unit_cost",
	).
		From("warehouse_stock s").
		Join("stock_items i ON i.id = s.stock_item_id").
		Join("warehouses w ON w.id = s.warehouse_id").
		Where("s.quantity_on_hand <> 0").
		Where(squirrel.Eq{"i.is_active": true}).
		OrderBy("i.sku", "w.code")

	return applyValueFilter(q, filter)
}

// applyValueFilter narrows value queries. Both builders alias the item table
// as i and the location column to warehouse_id, so one helper serves both.
func applyValueFilter(q squirrel.SelectBuilder, filter valuation.Filter) squirrel.SelectBuilder {
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"w.id": *filter.WarehouseID})
	}
	if filter.Category != "" {
		q = q.Where(squirrel.Eq{"i.category": filter.Category})
	}
	if filter.Currency != "" {
		q = q.Where(squirrel.Eq{"i.currency_code": filter.Currency})
	}
	return q
}

func (r *Repo) selectRows(ctx context.Context, q squirrel.SelectBuilder) ([]valuation.Row, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []valuation.Row
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select value rows: %w", err)
	}
	return rows, nil
}

func (r *Repo) MovementHistory(ctx context.Context, filter valuation.HistoryFilter) ([]ledger.StockMovement, error) {
	q := r.builder.Select(
		"id", "stock_item_id", "warehouse_id", "movement_type", "quantity",
		"unit_cost", "reference_type", "reference_id", "reason", "notes",
		"moved_by", "moved_at",
	).
		From("stock_movements").
		OrderBy("moved_at DESC", "id DESC")

	q = applyHistoryFilter(q, filter)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []ledger.StockMovement
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return movements, nil
}

func applyHistoryFilter(q squirrel.SelectBuilder, filter valuation.HistoryFilter) squirrel.SelectBuilder {
	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"stock_item_id": *filter.ItemID})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.Type})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"moved_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"moved_at": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

// Turnover computes the opening balance as the ledger sum strictly before the
// period, then splits in-period quantities by sign. Devaluation rows are
// excluded everywhere: their quantities are informational.
func (r *Repo) Turnover(ctx context.Context, filter valuation.TurnoverFilter) (valuation.Turnover, error) {
	sql := `
		SELECT
			COALESCE(SUM(quantity) FILTER (WHERE moved_at < $1), 0) AS opening,
			COALESCE(SUM(quantity) FILTER (
				WHERE moved_at >= $1 AND moved_at < $2 AND quantity > 0), 0) AS receipt,
			COALESCE(-SUM(quantity) FILTER (
				WHERE moved_at >= $1 AND moved_at < $2 AND quantity < 0), 0) AS expense
		FROM stock_movements
		WHERE movement_type <> 'devaluation'
		  AND moved_at < $2
	`
	args := []any{filter.FromDate, filter.ToDate}
	if filter.ItemID != nil {
		sql += fmt.Sprintf(" AND stock_item_id = $%d", len(args)+1)
		args = append(args, *filter.ItemID)
	}
	if filter.WarehouseID != nil {
		sql += fmt.Sprintf(" AND warehouse_id = $%d", len(args)+1)
		args = append(args, *filter.WarehouseID)
	}

	var opening, receipt, expense int64
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, args...).Scan(&opening, &receipt, &expense)
	if err != nil && err != pgx.ErrNoRows {
		return valuation.Turnover{}, fmt.Errorf("turnover: %w", err)
	}

	t := valuation.Turnover{
		FromDate:       filter.FromDate,
		ToDate:         filter.ToDate,
		OpeningBalance: types.NewQuantityFromInt64Scaled(opening),
		Receipt:        types.NewQuantityFromInt64Scaled(receipt),
		Expense:        types.NewQuantityFromInt64Scaled(expense),
	}
	t.ClosingBalance = t.OpeningBalance + t.Receipt - t.Expense
	return t, nil
}

func (r *Repo) LowStock(ctx context.Context, warehouseID *id.ID) ([]valuation.LowStockRow, error) {
	q := r.builder.Select(
		"s.stock_item_id",
		"i.sku AS item_sku",
		"i.name AS item_name",
		"s.warehouse_id",
		"w.code AS warehouse_code",
		"s.quantity_on_hand - s.quantity_reserved AS available",
		"i.reorder_point",
		"i.reorder_quantity",
	).
		From("warehouse_stock s").
		Join("stock_items i ON i.id = s.stock_item_id").
		Join("warehouses w ON w.id = s.warehouse_id").
		Where(squirrel.Eq{"i.is_active": true, "w.is_active": true}).
		Where("i.reorder_point > 0").
		Where("s.quantity_on_hand - s.quantity_reserved <= i.reorder_point").
		OrderBy("i.sku", "w.code")

	if warehouseID != nil {
		q = q.Where(squirrel.Eq{"w.id": *warehouseID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []valuation.LowStockRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select low stock: %w", err)
	}
	return rows, nil
}

var _ valuation.Repository = (*Repo)(nil)
