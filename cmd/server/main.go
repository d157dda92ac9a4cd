// Package main is the entry point for the stock ledger API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stockledger/internal/config"
	"stockledger/internal/domain/catalog/item"
	"stockledger/internal/domain/catalog/warehouse"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/receiving"
	"stockledger/internal/domain/reservation"
	"stockledger/internal/domain/valuation"
	v1 "stockledger/internal/infrastructure/http/v1"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/internal/infrastructure/storage/postgres/reservation_repo"
	"stockledger/internal/infrastructure/storage/postgres/valuation_repo"
	"stockledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting stock ledger server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DB.DSN)
	poolCfg.MaxConns = cfg.DB.MaxConns
	poolCfg.MinConns = cfg.DB.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = cfg.DB.StatementTimeout
	txManager := postgres.NewTxManagerWithOptions(pool, txOpts)

	// --- Repositories ---
	ledgerRepo := ledger_repo.NewRepo(txManager)
	itemRepo := catalog_repo.NewItemRepo(txManager)
	warehouseRepo := catalog_repo.NewWarehouseRepo(txManager)
	reservationRepo := reservation_repo.NewRepo(txManager)
	valuationRepo := valuation_repo.NewRepo(txManager)

	// --- Audit trail ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// --- Services ---
	itemService := item.NewService(itemRepo)
	warehouseService := warehouse.NewService(warehouseRepo)
	ledgerService := ledger.NewService(ledgerRepo, itemRepo, warehouseRepo, auditService, txManager)
	reservationService := reservation.NewService(reservationRepo, ledgerRepo, txManager)
	valuationService := valuation.NewService(valuationRepo)
	receivingAdapter := receiving.NewAdapter(ledgerService)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:         pool.Pool,
		Logger:       log,
		Ledger:       ledgerService,
		Reservations: reservationService,
		Valuation:    valuationService,
		Receiving:    receivingAdapter,
		Items:        itemService,
		Warehouses:   warehouseService,
		Development:  cfg.App.Development(),
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: router,
	}

	go func() {
		log.Infow("http server listening", "addr", cfg.HTTP.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server failed", "error", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("forced shutdown", "error", err)
	}
	log.Info("server stopped")
}
