package warehouse

import (
	"context"
	"fmt"

	"stockledger/internal/core/id"
	"stockledger/pkg/logger"
)

// Service provides registry operations for warehouses.
type Service struct {
	repo Repository
}

// NewService creates a new warehouse registry service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a warehouse by id.
func (s *Service) Get(ctx context.Context, warehouseID id.ID) (*Warehouse, error) {
	return s.repo.GetByID(ctx, warehouseID)
}

// List returns registered warehouses.
func (s *Service) List(ctx context.Context, onlyActive bool) ([]Warehouse, error) {
	return s.repo.List(ctx, onlyActive)
}

// Create registers a new warehouse after validation.
func (s *Service) Create(ctx context.Context, wh *Warehouse) error {
	if err := wh.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, wh); err != nil {
		return fmt.Errorf("create warehouse: %w", err)
	}
	logger.Info(ctx, "warehouse created", "warehouse_id", wh.ID, "code", wh.Code)
	return nil
}

// Deactivate takes a warehouse out of service. Existing stock stays readable;
// new movements against it are rejected by the ledger.
func (s *Service) Deactivate(ctx context.Context, warehouseID id.ID) error {
	if _, err := s.repo.GetByID(ctx, warehouseID); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, warehouseID, false)
}
