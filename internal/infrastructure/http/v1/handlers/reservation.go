package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/reservation"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ReservationHandler exposes the reservation lifecycle.
type ReservationHandler struct {
	*BaseHandler
	service *reservation.Service
}

func NewReservationHandler(base *BaseHandler, service *reservation.Service) *ReservationHandler {
	return &ReservationHandler{BaseHandler: base, service: service}
}

// Reserve handles POST /reservations
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var body dto.ReserveRequest
	if !h.BindJSON(c, &body) {
		return
	}

	itemID, err := id.Parse(body.StockItemID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid stockItemId format"))
		return
	}
	warehouseID, err := id.Parse(body.WarehouseID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return
	}

	res, err := h.service.Reserve(c.Request.Context(), itemID, warehouseID, body.Quantity, body.Actor)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReservation(res))
}

// Fulfill handles POST /reservations/:id/fulfill
func (h *ReservationHandler) Fulfill(c *gin.Context) {
	h.release(c, h.service.Fulfill)
}

// Cancel handles POST /reservations/:id/cancel
func (h *ReservationHandler) Cancel(c *gin.Context) {
	h.release(c, h.service.Cancel)
}

func (h *ReservationHandler) release(c *gin.Context, op func(context.Context, id.ID) (*reservation.StockReservation, error)) {
	resID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	res, err := op(c.Request.Context(), resID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReservation(res))
}

// Get handles GET /reservations/:id
func (h *ReservationHandler) Get(c *gin.Context) {
	resID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	res, err := h.service.Get(c.Request.Context(), resID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReservation(res))
}

// ListActive handles GET /reservations
func (h *ReservationHandler) ListActive(c *gin.Context) {
	itemID, ok := h.ParseIDQuery(c, "stockItemId")
	if !ok {
		return
	}
	warehouseID, ok := h.ParseIDQuery(c, "warehouseId")
	if !ok {
		return
	}
	if itemID == nil || warehouseID == nil {
		h.Error(c, apperror.NewValidation("stockItemId and warehouseId are required"))
		return
	}

	list, err := h.service.ListActive(c.Request.Context(), *itemID, *warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]dto.ReservationResponse, len(list))
	for i := range list {
		out[i] = dto.FromReservation(&list[i])
	}
	h.List(c, out, len(out))
}
