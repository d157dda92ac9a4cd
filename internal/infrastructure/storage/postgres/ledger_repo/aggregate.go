package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

const aggregateLockSQL = `
	SELECT stock_item_id, warehouse_id, quantity_on_hand,
	       quantity_reserved, last_movement_at, updated_at
	FROM warehouse_stock
	WHERE stock_item_id = $1 AND warehouse_id = $2
	FOR UPDATE
`

// aggregateEnsureSQL materializes the row for a key that has never moved, so
// the re-read below always has a real row to lock. Without it two first
// movements for the same key would both read zero unlocked and the later
// writer's snapshot would erase the earlier one.
const aggregateEnsureSQL = `
	INSERT INTO warehouse_stock (stock_item_id, warehouse_id)
	VALUES ($1, $2)
	ON CONFLICT (stock_item_id, warehouse_id) DO NOTHING
`

// GetAggregateForUpdate locks the per-(item, warehouse) row for the duration
// of the surrounding transaction. A key that has never moved gets a zero row
// inserted first, so every caller serializes on a real row lock.
func (r *Repo) GetAggregateForUpdate(ctx context.Context, itemID, warehouseID id.ID) (*ledger.WarehouseStock, error) {
	querier := r.txm.GetQuerier(ctx)

	var agg ledger.WarehouseStock
	err := pgxscan.Get(ctx, querier, &agg, aggregateLockSQL, itemID, warehouseID)
	if err == nil {
		return &agg, nil
	}
	if !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("get aggregate for update: %w", err)
	}

	if _, err := querier.Exec(ctx, aggregateEnsureSQL, itemID, warehouseID); err != nil {
		return nil, fmt.Errorf("ensure aggregate row: %w", err)
	}
	if err := pgxscan.Get(ctx, querier, &agg, aggregateLockSQL, itemID, warehouseID); err != nil {
		return nil, fmt.Errorf("lock aggregate row: %w", err)
	}
	return &agg, nil
}

// GetAggregate reads the aggregate without locking. Absent rows read as zero.
func (r *Repo) GetAggregate(ctx context.Context, itemID, warehouseID id.ID) (*ledger.WarehouseStock, error) {
	sql := `
		SELECT stock_item_id, warehouse_id, quantity_on_hand,
		       quantity_reserved, last_movement_at, updated_at
		FROM warehouse_stock
		WHERE stock_item_id = $1 AND warehouse_id = $2
	`

	var agg ledger.WarehouseStock
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &agg, sql, itemID, warehouseID); err != nil {
		if pgxscan.NotFound(err) {
			return &ledger.WarehouseStock{
				StockItemID: itemID,
				WarehouseID: warehouseID,
			}, nil
		}
		return nil, fmt.Errorf("get aggregate: %w", err)
	}
	return &agg, nil
}

// UpsertAggregate writes the aggregate back. GetAggregateForUpdate guarantees
// the row exists and is locked by this transaction, so the write is a plain
// row update under the held lock.
func (r *Repo) UpsertAggregate(ctx context.Context, agg *ledger.WarehouseStock) error {
	sql := `
		INSERT INTO warehouse_stock
			(stock_item_id, warehouse_id, quantity_on_hand,
			 quantity_reserved, last_movement_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stock_item_id, warehouse_id) DO UPDATE SET
			quantity_on_hand = EXCLUDED.quantity_on_hand,
			quantity_reserved = EXCLUDED.quantity_reserved,
			last_movement_at = EXCLUDED.last_movement_at,
			updated_at = EXCLUDED.updated_at
	`

	querier := r.txm.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		agg.StockItemID, agg.WarehouseID, agg.QuantityOnHand,
		agg.QuantityReserved, agg.LastMovementAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert aggregate: %w", err)
	}
	return nil
}
