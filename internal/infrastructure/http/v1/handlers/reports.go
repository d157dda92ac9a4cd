package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/valuation"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ReportsHandler exposes valuation, history, turnover, and low-stock reports.
type ReportsHandler struct {
	*BaseHandler
	service *valuation.Service
}

func NewReportsHandler(base *BaseHandler, service *valuation.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// GetValuation handles GET /reports/valuation
func (h *ReportsHandler) GetValuation(c *gin.Context) {
	warehouseID, ok := h.ParseIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	report, err := h.service.GetStockValuation(c.Request.Context(), valuation.Filter{
		WarehouseID: warehouseID,
		Category:    c.Query("category"),
		Currency:    c.Query("currency"),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// GetHistory handles GET /reports/movements
func (h *ReportsHandler) GetHistory(c *gin.Context) {
	itemID, ok := h.ParseIDQuery(c, "stockItemId")
	if !ok {
		return
	}
	warehouseID, ok := h.ParseIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	filter := valuation.HistoryFilter{
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Limit:       h.ParseIntQuery(c, "limit", 0),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}
	if t := c.Query("movementType"); t != "" {
		mt := ledger.MovementType(t)
		filter.Type = &mt
	}
	var ok2 bool
	if filter.FromDate, ok2 = h.parseTimeQuery(c, "fromDate"); !ok2 {
		return
	}
	if filter.ToDate, ok2 = h.parseTimeQuery(c, "toDate"); !ok2 {
		return
	}

	movements, err := h.service.GetMovementHistory(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]dto.MovementResponse, len(movements))
	for i := range movements {
		out[i] = dto.FromMovement(&movements[i])
	}
	h.List(c, out, len(out))
}

// GetTurnover handles GET /reports/turnover
func (h *ReportsHandler) GetTurnover(c *gin.Context) {
	fromDate, ok := h.parseTimeQuery(c, "fromDate")
	if !ok {
		return
	}
	toDate, ok := h.parseTimeQuery(c, "toDate")
	if !ok {
		return
	}
	if fromDate == nil || toDate == nil {
		h.Error(c, apperror.NewValidation("fromDate and toDate are required"))
		return
	}

	itemID, ok := h.ParseIDQuery(c, "stockItemId")
	if !ok {
		return
	}
	warehouseID, ok := h.ParseIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	turnover, err := h.service.GetInventoryTurnover(c.Request.Context(), valuation.TurnoverFilter{
		FromDate:    *fromDate,
		ToDate:      *toDate,
		ItemID:      itemID,
		WarehouseID: warehouseID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, turnover)
}

// GetLowStock handles GET /reports/low-stock
func (h *ReportsHandler) GetLowStock(c *gin.Context) {
	warehouseID, ok := h.ParseIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	rows, err := h.service.GetLowStock(c.Request.Context(), valuation.Filter{WarehouseID: warehouseID})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.List(c, rows, len(rows))
}

// parseTimeQuery parses an optional RFC 3339 time query parameter.
func (h *ReportsHandler) parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	val := c.Query(name)
	if val == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, val)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+name+" format, want RFC 3339"))
		return nil, false
	}
	return &parsed, true
}
