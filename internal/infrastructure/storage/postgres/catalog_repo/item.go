// Package catalog_repo provides the PostgreSQL implementation of the catalog
// repositories: stock items and warehouses.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalog/item"
	"stockledger/internal/infrastructure/storage/postgres"
)

const itemsTable = "stock_items"

var itemColumns = []string{
	"id", "sku", "name", "category", "default_cost", "currency_code",
	"is_trackable", "reorder_point", "reorder_quantity", "is_active",
	"created_at", "updated_at",
}

// ItemRepo implements item.Repository.
type ItemRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*item.StockItem, error) {
	return r.getOne(ctx, squirrel.Eq{"id": itemID}, itemID)
}

func (r *ItemRepo) GetBySKU(ctx context.Context, sku string) (*item.StockItem, error) {
	return r.getOne(ctx, squirrel.Eq{"sku": sku}, sku)
}

func (r *ItemRepo) getOne(ctx context.Context, pred squirrel.Eq, ref any) (*item.StockItem, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(pred).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var it item.StockItem
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &it, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock item", ref)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}

func (r *ItemRepo) List(ctx context.Context, filter item.ListFilter) ([]item.StockItem, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		OrderBy("sku")

	if filter.Category != "" {
		q = q.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.OnlyActive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if filter.OnlyTracked {
		q = q.Where(squirrel.Eq{"is_trackable": true})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []item.StockItem
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (r *ItemRepo) Create(ctx context.Context, it *item.StockItem) error {
	q := r.builder.Insert(itemsTable).
		Columns(itemColumns...).
		Values(
			it.ID, it.SKU, it.Name, it.Category, it.DefaultCost,
			it.CurrencyCode, it.IsTrackable, it.ReorderPoint,
			it.ReorderQuantity, it.IsActive, it.CreatedAt, it.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// UpdateMetadata writes cost and reorder fields. SKU and trackability are
// deliberately not in the SET list.
func (r *ItemRepo) UpdateMetadata(ctx context.Context, it *item.StockItem) error {
	q := r.builder.Update(itemsTable).
		Set("name", it.Name).
		Set("category", it.Category).
		Set("default_cost", it.DefaultCost).
		Set("currency_code", it.CurrencyCode).
		Set("reorder_point", it.ReorderPoint).
		Set("reorder_quantity", it.ReorderQuantity).
		Set("is_active", it.IsActive).
		Set("updated_at", it.UpdatedAt).
		Where(squirrel.Eq{"id": it.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stock item", it.ID)
	}
	return nil
}

var _ item.Repository = (*ItemRepo)(nil)
