package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

var lotColumns = []string{
	"id", "stock_item_id", "warehouse_id", "unit_cost", "lot_type",
	"quantity_on_hand", "created_at",
}

// InsertLot stores a new cost-basis lot.
func (r *Repo) InsertLot(ctx context.Context, lot *ledger.StockLot) error {
	q := r.builder.Insert(lotsTable).
		Columns(lotColumns...).
		Values(
			lot.ID, lot.StockItemID, lot.WarehouseID, lot.UnitCost,
			lot.LotType, lot.QuantityOnHand, lot.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// GetLotForUpdate locks and returns one lot.
func (r *Repo) GetLotForUpdate(ctx context.Context, lotID id.ID) (*ledger.StockLot, error) {
	sql := `
		SELECT id, stock_item_id, warehouse_id, unit_cost, lot_type,
		       quantity_on_hand, created_at
		FROM stock_lots
		WHERE id = $1
		FOR UPDATE
	`

	var lot ledger.StockLot
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &lot, sql, lotID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock lot", lotID)
		}
		return nil, fmt.Errorf("get lot for update: %w", err)
	}
	return &lot, nil
}

// GetLotsForUpdate locks the non-empty lots of a key in FIFO order. Lot ids
// are UUIDv7, so ascending id is ascending creation time.
func (r *Repo) GetLotsForUpdate(ctx context.Context, itemID, warehouseID id.ID, lotType *ledger.LotType) ([]ledger.StockLot, error) {
	sql := `
		SELECT id, stock_item_id, warehouse_id, unit_cost, lot_type,
		       quantity_on_hand, created_at
		FROM stock_lots
		WHERE stock_item_id = $1
		  AND warehouse_id = $2
		  AND quantity_on_hand > 0
	`
	args := []any{itemID, warehouseID}
	if lotType != nil {
		sql += " AND lot_type = $3"
		args = append(args, *lotType)
	}
	sql += " ORDER BY id FOR UPDATE"

	var lots []ledger.StockLot
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lots, sql, args...); err != nil {
		return nil, fmt.Errorf("select lots for update: %w", err)
	}
	return lots, nil
}

// FindDevaluedLotForUpdate locks the devalued lot at exactly unitCost, nil
// when none exists.
func (r *Repo) FindDevaluedLotForUpdate(ctx context.Context, itemID, warehouseID id.ID, unitCost types.Money) (*ledger.StockLot, error) {
	sql := `
		SELECT id, stock_item_id, warehouse_id, unit_cost, lot_type,
		       quantity_on_hand, created_at
		FROM stock_lots
		WHERE stock_item_id = $1
		  AND warehouse_id = $2
		  AND lot_type = 'devalued'
		  AND unit_cost = $3
		ORDER BY id
		LIMIT 1
		FOR UPDATE
	`

	var lot ledger.StockLot
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &lot, sql, itemID, warehouseID, unitCost); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find devalued lot: %w", err)
	}
	return &lot, nil
}

// SetLotQuantity writes a lot's remaining quantity.
func (r *Repo) SetLotQuantity(ctx context.Context, lotID id.ID, qty types.Quantity) error {
	q := r.builder.Update(lotsTable).
		Set("quantity_on_hand", qty).
		Where(squirrel.Eq{"id": lotID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update lot quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stock lot", lotID)
	}
	return nil
}

// SumLotQuantity totals the remaining lot quantity for a key.
func (r *Repo) SumLotQuantity(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(quantity_on_hand), 0)
		FROM stock_lots
		WHERE stock_item_id = $1 AND warehouse_id = $2
	`

	var sumScaled int64
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, itemID, warehouseID).Scan(&sumScaled)
	if err != nil && err != pgx.ErrNoRows {
		return 0, fmt.Errorf("sum lots: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(sumScaled), nil
}
