package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/catalog/item"
	"stockledger/internal/domain/catalog/warehouse"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ItemHandler exposes the stock item catalog.
type ItemHandler struct {
	*BaseHandler
	service *item.Service
}

func NewItemHandler(base *BaseHandler, service *item.Service) *ItemHandler {
	return &ItemHandler{BaseHandler: base, service: service}
}

// Create handles POST /items
func (h *ItemHandler) Create(c *gin.Context) {
	var body dto.CreateItemRequest
	if !h.BindJSON(c, &body) {
		return
	}

	it := body.ToDomain()
	if err := h.service.Create(c.Request.Context(), it); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, it.ID.String())
}

// Get handles GET /items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	it, err := h.service.Get(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, it)
}

// List handles GET /items
func (h *ItemHandler) List(c *gin.Context) {
	filter := item.ListFilter{
		Category:    c.Query("category"),
		OnlyActive:  c.Query("includeInactive") != "true",
		OnlyTracked: c.Query("onlyTracked") == "true",
		Limit:       h.ParseIntQuery(c, "limit", 0),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.BaseHandler.List(c, items, len(items))
}

// UpdateCost handles PUT /items/:id/cost
func (h *ItemHandler) UpdateCost(c *gin.Context) {
	itemID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var body dto.UpdateItemCostRequest
	if !h.BindJSON(c, &body) {
		return
	}

	it, err := h.service.UpdateCostMetadata(c.Request.Context(), itemID,
		body.DefaultCost, body.ReorderPoint, body.ReorderQuantity)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, it)
}

// WarehouseHandler exposes the warehouse registry.
type WarehouseHandler struct {
	*BaseHandler
	service *warehouse.Service
}

func NewWarehouseHandler(base *BaseHandler, service *warehouse.Service) *WarehouseHandler {
	return &WarehouseHandler{BaseHandler: base, service: service}
}

// Create handles POST /warehouses
func (h *WarehouseHandler) Create(c *gin.Context) {
	var body dto.CreateWarehouseRequest
	if !h.BindJSON(c, &body) {
		return
	}

	wh := body.ToDomain()
	if err := h.service.Create(c.Request.Context(), wh); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, wh.ID.String())
}

// Get handles GET /warehouses/:id
func (h *WarehouseHandler) Get(c *gin.Context) {
	warehouseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	wh, err := h.service.Get(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, wh)
}

// List handles GET /warehouses
func (h *WarehouseHandler) List(c *gin.Context) {
	whs, err := h.service.List(c.Request.Context(), c.Query("includeInactive") != "true")
	if err != nil {
		h.Error(c, err)
		return
	}
	h.BaseHandler.List(c, whs, len(whs))
}

// Deactivate handles POST /warehouses/:id/deactivate
func (h *WarehouseHandler) Deactivate(c *gin.Context) {
	warehouseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), warehouseID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.SuccessResponse{Success: true})
}
