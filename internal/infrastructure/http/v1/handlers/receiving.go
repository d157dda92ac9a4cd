package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/receiving"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ReceivingHandler books purchase-order receipt events.
type ReceivingHandler struct {
	*BaseHandler
	adapter *receiving.Adapter
}

func NewReceivingHandler(base *BaseHandler, adapter *receiving.Adapter) *ReceivingHandler {
	return &ReceivingHandler{BaseHandler: base, adapter: adapter}
}

// ReceiveLine handles POST /receipts
func (h *ReceivingHandler) ReceiveLine(c *gin.Context) {
	var body dto.ReceiveLineRequest
	if !h.BindJSON(c, &body) {
		return
	}

	line, err := body.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	movement, err := h.adapter.ReceiveLine(c.Request.Context(), line)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(movement))
}
