package reservation

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/pkg/logger"
)

// Service manages reservations. Reserve uses the same aggregate row lock as
// the ledger, so a reservation check can never race a concurrent sale.
type Service struct {
	repo       Repository
	aggregates AggregateStore
	txm        tx.Manager
}

// NewService creates the reservation manager.
func NewService(repo Repository, aggregates AggregateStore, txm tx.Manager) *Service {
	return &Service{repo: repo, aggregates: aggregates, txm: txm}
}

// Reserve holds qty units of (item, warehouse). Fails with INSUFFICIENT_STOCK
// when available (on-hand minus already reserved) cannot cover it.
func (s *Service) Reserve(ctx context.Context, itemID, warehouseID id.ID, qty types.Quantity, actor string) (*StockReservation, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("reservation quantity must be positive").
			WithDetail("field", "quantity")
	}
	if actor == "" {
		return nil, apperror.NewValidation("actor is required").
			WithDetail("field", "actor")
	}

	var res *StockReservation
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		agg, err := s.aggregates.GetAggregateForUpdate(ctx, itemID, warehouseID)
		if err != nil {
			return fmt.Errorf("lock aggregate: %w", err)
		}

		if agg.QuantityAvailable() < qty {
			return apperror.NewInsufficientStock(itemID.String(), qty.Float64(), agg.QuantityAvailable().Float64())
		}

		r := NewStockReservation(itemID, warehouseID, qty, actor)
		if err := s.repo.Insert(ctx, r); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}

		agg.QuantityReserved += qty
		agg.UpdatedAt = time.Now().UTC()
		if err := s.aggregates.UpsertAggregate(ctx, agg); err != nil {
			return fmt.Errorf("upsert aggregate: %w", err)
		}

		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock reserved",
		"reservation_id", res.ID,
		"item_id", itemID,
		"warehouse_id", warehouseID,
		"quantity", qty,
	)
	return res, nil
}

// Fulfill marks the reservation fulfilled and releases the held quantity.
// On-hand stock is untouched: the caller issues the matching outbound
// movement through the ledger.
func (s *Service) Fulfill(ctx context.Context, resID id.ID) (*StockReservation, error) {
	return s.release(ctx, resID, StatusFulfilled)
}

// Cancel marks the reservation cancelled and releases the held quantity.
func (s *Service) Cancel(ctx context.Context, resID id.ID) (*StockReservation, error) {
	return s.release(ctx, resID, StatusCancelled)
}

// release transitions an active reservation to a terminal state.
func (s *Service) release(ctx context.Context, resID id.ID, target Status) (*StockReservation, error) {
	var res *StockReservation
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetForUpdate(ctx, resID)
		if err != nil {
			return err
		}
		if r.Status.Terminal() {
			return apperror.NewInvalidState("reservation", string(r.Status), string(target))
		}

		agg, err := s.aggregates.GetAggregateForUpdate(ctx, r.StockItemID, r.WarehouseID)
		if err != nil {
			return fmt.Errorf("lock aggregate: %w", err)
		}

		now := time.Now().UTC()
		r.Status = target
		r.ReleasedAt = &now
		if err := s.repo.UpdateStatus(ctx, r); err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}

		agg.QuantityReserved -= r.Quantity
		agg.UpdatedAt = now
		if err := s.aggregates.UpsertAggregate(ctx, agg); err != nil {
			return fmt.Errorf("upsert aggregate: %w", err)
		}

		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "reservation released",
		"reservation_id", res.ID,
		"status", res.Status,
		"quantity", res.Quantity,
	)
	return res, nil
}

// Get returns a reservation by id.
func (s *Service) Get(ctx context.Context, resID id.ID) (*StockReservation, error) {
	return s.repo.Get(ctx, resID)
}

// ListActive returns open reservations for a key.
func (s *Service) ListActive(ctx context.Context, itemID, warehouseID id.ID) ([]StockReservation, error) {
	return s.repo.ListActive(ctx, itemID, warehouseID)
}
