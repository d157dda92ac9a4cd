package item

import (
	"context"
	"fmt"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/pkg/logger"
)

// Service provides catalog operations for stock items.
// Catalog management proper lives outside the engine; this service carries the
// lookup contract the ledger consumes plus the minimal create/edit surface.
type Service struct {
	repo Repository
}

// NewService creates a new item catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns an item by id.
func (s *Service) Get(ctx context.Context, itemID id.ID) (*StockItem, error) {
	return s.repo.GetByID(ctx, itemID)
}

// GetBySKU returns an item by SKU.
func (s *Service) GetBySKU(ctx context.Context, sku string) (*StockItem, error) {
	return s.repo.GetBySKU(ctx, sku)
}

// List returns catalog entries matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]StockItem, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.List(ctx, filter)
}

// Create inserts a new catalog entry after validation.
func (s *Service) Create(ctx context.Context, it *StockItem) error {
	if err := it.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	logger.Info(ctx, "stock item created", "item_id", it.ID, "sku", it.SKU)
	return nil
}

// UpdateCostMetadata updates the mutable cost/reorder fields of an item.
func (s *Service) UpdateCostMetadata(ctx context.Context, itemID id.ID, defaultCost types.Money, reorderPoint, reorderQty types.Quantity) (*StockItem, error) {
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	it.DefaultCost = defaultCost
	it.ReorderPoint = reorderPoint
	it.ReorderQuantity = reorderQty
	if err := it.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateMetadata(ctx, it); err != nil {
		return nil, fmt.Errorf("update item metadata: %w", err)
	}
	return it, nil
}
