// Package main seeds the database with demo catalog data and opening stock.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalog/item"
	"stockledger/internal/domain/catalog/warehouse"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	itemRepo := catalog_repo.NewItemRepo(txManager)
	warehouseRepo := catalog_repo.NewWarehouseRepo(txManager)
	ledgerRepo := ledger_repo.NewRepo(txManager)
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}
	ledgerService := ledger.NewService(ledgerRepo, itemRepo, warehouseRepo, auditService, txManager)

	warehouses, err := seedWarehouses(ctx, warehouseRepo, log)
	if err != nil {
		log.Fatalw("failed to seed warehouses", "error", err)
	}

	items, err := seedItems(ctx, itemRepo, txManager, log)
	if err != nil {
		log.Fatalw("failed to seed items", "error", err)
	}

	if err := seedOpeningStock(ctx, ledgerService, items, warehouses, log); err != nil {
		log.Fatalw("failed to seed opening stock", "error", err)
	}

	log.Info("seed complete")
}

func seedWarehouses(ctx context.Context, repo *catalog_repo.WarehouseRepo, log *logger.Logger) ([]*warehouse.Warehouse, error) {
	specs := []struct{ code, name string }{
		{"MAIN", "Main Warehouse"},
		{"EAST", "East Distribution Center"},
		{"OUTLET", "Outlet Store"},
	}

	out := make([]*warehouse.Warehouse, 0, len(specs))
	for _, spec := range specs {
		if existing, err := repo.GetByCode(ctx, spec.code); err == nil {
			log.Infow("warehouse exists", "code", spec.code)
			out = append(out, existing)
			continue
		}

		wh := warehouse.NewWarehouse(spec.code, spec.name)
		if err := repo.Create(ctx, wh); err != nil {
			return nil, err
		}
		log.Infow("warehouse created", "code", spec.code, "id", wh.ID)
		out = append(out, wh)
	}
	return out, nil
}

// seedItems bulk-loads the demo catalog through the COPY protocol. SKUs that
// already exist are skipped, so a re-run neither collides on the unique index
// nor books their opening stock twice.
func seedItems(ctx context.Context, repo *catalog_repo.ItemRepo, txManager *postgres.TxManager, log *logger.Logger) ([]*item.StockItem, error) {
	specs := []struct {
		sku, name, category string
		cost                string
		reorderPoint        int64
	}{
		{"WIDGET-STD", "Standard Widget", "widgets", "12.50", 50},
		{"WIDGET-PRO", "Pro Widget", "widgets", "34.00", 25},
		{"GADGET-A", "Gadget Type A", "gadgets", "7.25", 100},
		{"GADGET-B", "Gadget Type B", "gadgets", "9.80", 100},
		{"CABLE-2M", "Cable 2m", "accessories", "1.99", 200},
		{"CRATE-XL", "Shipping Crate XL", "packaging", "45.00", 10},
	}

	now := time.Now().UTC()
	columns := []string{
		"id", "sku", "name", "category", "default_cost", "currency_code",
		"is_trackable", "reorder_point", "reorder_quantity", "is_active",
		"created_at", "updated_at",
	}

	items := make([]*item.StockItem, 0, len(specs))
	rows := make([][]any, 0, len(specs))
	for _, spec := range specs {
		if _, err := repo.GetBySKU(ctx, spec.sku); err == nil {
			log.Infow("item exists", "sku", spec.sku)
			continue
		}

		it := item.NewStockItem(spec.sku, spec.name, types.MustMoney(spec.cost))
		it.Category = spec.category
		it.ReorderPoint = types.NewQuantityFromInt(spec.reorderPoint)
		it.ReorderQuantity = types.NewQuantityFromInt(spec.reorderPoint * 2)

		items = append(items, it)
		rows = append(rows, []any{
			it.ID, it.SKU, it.Name, it.Category, it.DefaultCost,
			it.CurrencyCode, it.IsTrackable, it.ReorderPoint,
			it.ReorderQuantity, it.IsActive, now, now,
		})
	}

	if len(rows) == 0 {
		return items, nil
	}

	inserter := postgres.NewBatchInserter(txManager)
	err := txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inserted, err := inserter.CopyFromSlice(ctx, "stock_items", columns, rows)
		if err != nil {
			return err
		}
		log.Infow("items created", "count", inserted)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func seedOpeningStock(ctx context.Context, svc *ledger.Service, items []*item.StockItem, warehouses []*warehouse.Warehouse, log *logger.Logger) error {
	for i, it := range items {
		wh := warehouses[i%len(warehouses)]
		qty := types.NewQuantityFromInt(int64(100 + i*40))

		req := ledger.NewPurchase(it.ID, wh.ID, qty, it.DefaultCost, "seeder")
		req.Reason = "opening stock"

		movement, _, err := svc.RecordMovement(ctx, req)
		if err != nil {
			return fmt.Errorf("opening stock for %s: %w", it.SKU, err)
		}
		log.Infow("opening stock booked",
			"sku", it.SKU,
			"warehouse", wh.Code,
			"quantity", qty,
			"movement_id", movement.ID,
		)
	}
	return nil
}
