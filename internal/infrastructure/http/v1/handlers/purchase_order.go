package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/domain/documents/purchase_order"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// PurchaseOrderHandler handles the purchase order lifecycle and receiving.
type PurchaseOrderHandler struct {
	*BaseHandler
	service *purchase_order.Service
}

func NewPurchaseOrderHandler(base *BaseHandler, service *purchase_order.Service) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{BaseHandler: base, service: service}
}

// Create handles POST /purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Create(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// List handles GET /purchase-orders
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var q dto.PurchaseOrderListQuery
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

// Get handles GET /purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Approve handles POST /purchase-orders/:id/approve
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ApprovePurchaseOrderRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}

	doc, err := h.service.Approve(c.Request.Context(), orderID, req.Approver.ToApprover())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Cancel handles POST /purchase-orders/:id/cancel
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelPurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Cancel(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Receive handles POST /purchase-orders/:id/receive
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ReceivePurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Receive(c.Request.Context(), orderID, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// ListReceipts handles GET /purchase-orders/:id/receipts
func (h *PurchaseOrderHandler) ListReceipts(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	receipts, err := h.service.ListReceipts(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if receipts == nil {
		receipts = []*purchase_order.Receipt{}
	}
	h.OK(c, dto.ItemsResponse[*purchase_order.Receipt]{Items: receipts})
}
