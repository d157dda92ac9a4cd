// Package reservation_repo provides the PostgreSQL implementation of the
// reservation repository.
package reservation_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/reservation"
	"stockledger/internal/infrastructure/storage/postgres"
)

const reservationsTable = "stock_reservations"

var reservationColumns = []string{
	"id", "stock_item_id", "warehouse_id", "quantity", "status",
	"reserved_by", "reserved_at", "released_at",
}

// Repo implements reservation.Repository.
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

func (r *Repo) Insert(ctx context.Context, res *reservation.StockReservation) error {
	q := r.builder.Insert(reservationsTable).
		Columns(reservationColumns...).
		Values(
			res.ID, res.StockItemID, res.WarehouseID, res.Quantity,
			res.Status, res.ReservedBy, res.ReservedAt, res.ReleasedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetForUpdate locks the reservation row so concurrent releases serialize.
func (r *Repo) GetForUpdate(ctx context.Context, resID id.ID) (*reservation.StockReservation, error) {
	sql := `
		SELECT id, stock_item_id, warehouse_id, quantity, status,
		       reserved_by, reserved_at, released_at
		FROM stock_reservations
		WHERE id = $1
		FOR UPDATE
	`
	return r.get(ctx, sql, resID)
}

func (r *Repo) Get(ctx context.Context, resID id.ID) (*reservation.StockReservation, error) {
	sql := `
		SELECT id, stock_item_id, warehouse_id, quantity, status,
		       reserved_by, reserved_at, released_at
		FROM stock_reservations
		WHERE id = $1
	`
	return r.get(ctx, sql, resID)
}

func (r *Repo) get(ctx context.Context, sql string, resID id.ID) (*reservation.StockReservation, error) {
	var res reservation.StockReservation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &res, sql, resID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("reservation", resID)
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return &res, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, res *reservation.StockReservation) error {
	q := r.builder.Update(reservationsTable).
		Set("status", res.Status).
		Set("released_at", res.ReleasedAt).
		Where(squirrel.Eq{"id": res.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("reservation", res.ID)
	}
	return nil
}

func (r *Repo) ListActive(ctx context.Context, itemID, warehouseID id.ID) ([]reservation.StockReservation, error) {
	q := r.builder.Select(reservationColumns...).
		From(reservationsTable).
		Where(squirrel.Eq{
			"stock_item_id": itemID,
			"warehouse_id":  warehouseID,
			"status":        reservation.StatusReserved,
		}).
		OrderBy("reserved_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []reservation.StockReservation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

var _ reservation.Repository = (*Repo)(nil)
