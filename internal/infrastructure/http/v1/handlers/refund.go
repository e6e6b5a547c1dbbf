package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/domain/documents/refund"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// RefundHandler handles refunds, both nested under a sale and by id.
type RefundHandler struct {
	*BaseHandler
	service *refund.Service
}

func NewRefundHandler(base *BaseHandler, service *refund.Service) *RefundHandler {
	return &RefundHandler{BaseHandler: base, service: service}
}

// Create handles POST /sales/:id/refunds
//
// The response carries the refund plus what remains refundable on the sale.
func (h *RefundHandler) Create(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateRefundRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Create(c.Request.Context(), req.ToDomain(saleID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// ListBySale handles GET /sales/:id/refunds
func (h *RefundHandler) ListBySale(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	docs, err := h.service.ListBySale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if docs == nil {
		docs = []*refund.Refund{}
	}
	h.OK(c, dto.ItemsResponse[*refund.Refund]{Items: docs})
}

// Get handles GET /refunds/:id
func (h *RefundHandler) Get(c *gin.Context) {
	refundID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), refundID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Cancel handles POST /refunds/:id/cancel
func (h *RefundHandler) Cancel(c *gin.Context) {
	refundID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelRefundRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Cancel(c.Request.Context(), refundID, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}
