package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/domain/documents/stock_adjustment"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// StockAdjustmentHandler handles the request/approve adjustment workflow.
type StockAdjustmentHandler struct {
	*BaseHandler
	service *stock_adjustment.Service
}

func NewStockAdjustmentHandler(base *BaseHandler, service *stock_adjustment.Service) *StockAdjustmentHandler {
	return &StockAdjustmentHandler{BaseHandler: base, service: service}
}

// Create handles POST /stock/adjustments
func (h *StockAdjustmentHandler) Create(c *gin.Context) {
	var req dto.CreateStockAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Request(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// List handles GET /stock/adjustments
func (h *StockAdjustmentHandler) List(c *gin.Context) {
	var q dto.StockAdjustmentListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /stock/adjustments/:id
func (h *StockAdjustmentHandler) Get(c *gin.Context) {
	adjID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), adjID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Approve handles POST /stock/adjustments/:id/approve
func (h *StockAdjustmentHandler) Approve(c *gin.Context) {
	adjID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewStockAdjustmentRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	doc, err := h.service.Approve(c.Request.Context(), adjID, req.Approver.ToApprover(), req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Reject handles POST /stock/adjustments/:id/reject
func (h *StockAdjustmentHandler) Reject(c *gin.Context) {
	adjID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewStockAdjustmentRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	doc, err := h.service.Reject(c.Request.Context(), adjID, req.Approver.ToApprover(), req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}
