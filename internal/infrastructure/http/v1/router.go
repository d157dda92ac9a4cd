// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"stockledger/internal/domain/catalog/item"
	"stockledger/internal/domain/catalog/warehouse"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/receiving"
	"stockledger/internal/domain/reservation"
	"stockledger/internal/domain/valuation"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/pkg/logger"
)

// RouterConfig carries the wired services the router exposes.
type RouterConfig struct {
	Pool   *pgxpool.Pool
	Logger *logger.Logger

	Ledger       *ledger.Service
	Reservations *reservation.Service
	Valuation    *valuation.Service
	Receiving    *receiving.Adapter
	Items        *item.Service
	Warehouses   *warehouse.Service

	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order matters: recovery first so the error handler sees panics too.
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Actor())
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	base := handlers.NewBaseHandler()

	api := router.Group("/api/v1")
	{
		ledgerHandler := handlers.NewLedgerHandler(base, cfg.Ledger)
		api.POST("/movements", ledgerHandler.RecordMovement)
		api.GET("/movements/:id", ledgerHandler.GetMovement)
		api.POST("/transfers", ledgerHandler.Transfer)
		api.POST("/devaluations", ledgerHandler.RecordDevaluation)
		api.POST("/devaluations/waste", ledgerHandler.WasteWithDevaluation)
		api.GET("/stock", ledgerHandler.GetStock)
		api.POST("/stock/rebuild", ledgerHandler.RebuildStock)

		receivingHandler := handlers.NewReceivingHandler(base, cfg.Receiving)
		api.POST("/receipts", receivingHandler.ReceiveLine)

		reservationHandler := handlers.NewReservationHandler(base, cfg.Reservations)
		api.POST("/reservations", reservationHandler.Reserve)
		api.GET("/reservations", reservationHandler.ListActive)
		api.GET("/reservations/:id", reservationHandler.Get)
		api.POST("/reservations/:id/fulfill", reservationHandler.Fulfill)
		api.POST("/reservations/:id/cancel", reservationHandler.Cancel)

		reportsHandler := handlers.NewReportsHandler(base, cfg.Valuation)
		reports := api.Group("/reports")
		{
			reports.GET("/valuation", reportsHandler.GetValuation)
			reports.GET("/movements", reportsHandler.GetHistory)
			reports.GET("/turnover", reportsHandler.GetTurnover)
			reports.GET("/low-stock", reportsHandler.GetLowStock)
		}

		itemHandler := handlers.NewItemHandler(base, cfg.Items)
		api.POST("/items", itemHandler.Create)
		api.GET("/items", itemHandler.List)
		api.GET("/items/:id", itemHandler.Get)
		api.PUT("/items/:id/cost", itemHandler.UpdateCost)

		warehouseHandler := handlers.NewWarehouseHandler(base, cfg.Warehouses)
		api.POST("/warehouses", warehouseHandler.Create)
		api.GET("/warehouses", warehouseHandler.List)
		api.GET("/warehouses/:id", warehouseHandler.Get)
		api.POST("/warehouses/:id/deactivate", warehouseHandler.Deactivate)
	}

	return router
}
