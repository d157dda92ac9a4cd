package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// LedgerHandler exposes movement recording, transfers, devaluations, and the
// warehouse stock aggregate.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// RecordMovement handles POST /movements
func (h *LedgerHandler) RecordMovement(c *gin.Context) {
	var body dto.RecordMovementRequest
	if !h.BindJSON(c, &body) {
		return
	}

	req, err := body.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	movement, agg, err := h.service.RecordMovement(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"movement": dto.FromMovement(movement),
		"stock":    dto.FromAggregate(agg),
	})
}

// GetMovement handles GET /movements/:id
func (h *LedgerHandler) GetMovement(c *gin.Context) {
	movementID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	movement, err := h.service.GetMovement(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(movement))
}

// Transfer handles POST /transfers
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var body dto.TransferRequest
	if !h.BindJSON(c, &body) {
		return
	}

	req, err := body.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	outLeg, inLeg, err := h.service.Transfer(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.TransferResponse{
		OutLeg: dto.FromMovement(outLeg),
		InLeg:  dto.FromMovement(inLeg),
	})
}

// RecordDevaluation handles POST /devaluations
func (h *LedgerHandler) RecordDevaluation(c *gin.Context) {
	var body dto.DevaluationRequest
	if !h.BindJSON(c, &body) {
		return
	}

	req, err := body.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	movement, lot, err := h.service.RecordDevaluation(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.DevaluationResponse{
		Movement: dto.FromMovement(movement),
		Lot:      dto.FromLot(lot),
	})
}

// WasteWithDevaluation handles POST /devaluations/waste
func (h *LedgerHandler) WasteWithDevaluation(c *gin.Context) {
	var body dto.WasteDevaluationRequest
	if !h.BindJSON(c, &body) {
		return
	}

	req, err := body.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	devMovement, wasteMovement, err := h.service.WasteWithDevaluation(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.WasteDevaluationResponse{
		Devaluation: dto.FromMovement(devMovement),
		Waste:       dto.FromMovement(wasteMovement),
	})
}

// GetStock handles GET /stock
func (h *LedgerHandler) GetStock(c *gin.Context) {
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

	agg, err := h.service.GetAggregate(c.Request.Context(), *itemID, *warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAggregate(agg))
}

// RebuildStock handles POST /stock/rebuild
func (h *LedgerHandler) RebuildStock(c *gin.Context) {
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

	agg, err := h.service.RebuildAggregate(c.Request.Context(), *itemID, *warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAggregate(agg))
}
