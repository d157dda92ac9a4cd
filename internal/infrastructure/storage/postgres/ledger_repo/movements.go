// Package ledger_repo provides the PostgreSQL implementation of the ledger
// repository: movements, lots, and the warehouse stock aggregate.
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
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	movementsTable = "stock_movements"
	lotsTable      = "stock_lots"
	aggregateTable = "warehouse_stock"
)

var movementColumns = []string{
	"id", "stock_item_id", "warehouse_id", "movement_type", "quantity",
	"unit_cost", "reference_type", "reference_id", "reason", "notes",
	"moved_by", "moved_at",
}

// Repo implements ledger.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewRepo creates the ledger repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// InsertMovement appends one ledger row. There is no update or delete
// counterpart anywhere in this package: the ledger is append-only.
func (r *Repo) InsertMovement(ctx context.Context, m *ledger.StockMovement) error {
	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(
			m.ID, m.StockItemID, m.WarehouseID, m.Type, m.Quantity,
			m.UnitCost, m.ReferenceType, m.ReferenceID, m.Reason, m.Notes,
			m.MovedBy, m.MovedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// GetMovement retrieves one movement by id.
func (r *Repo) GetMovement(ctx context.Context, movementID id.ID) (*ledger.StockMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"id": movementID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m ledger.StockMovement
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock movement", movementID)
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return &m, nil
}

// SumMovements replays the ledger for one key. Devaluation movements carry
// informational quantities and are excluded from the sum.
func (r *Repo) SumMovements(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM stock_movements
		WHERE stock_item_id = $1
		  AND warehouse_id = $2
		  AND movement_type <> 'devaluation'
	`

	var sumScaled int64
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, itemID, warehouseID).Scan(&sumScaled)
	if err != nil && err != pgx.ErrNoRows {
		return 0, fmt.Errorf("sum movements: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(sumScaled), nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*Repo)(nil)
