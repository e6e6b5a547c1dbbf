package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/domain/reorder"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// ReorderHandler exposes the reorder advisor.
type ReorderHandler struct {
	*BaseHandler
	service *reorder.Service
}

func NewReorderHandler(base *BaseHandler, service *reorder.Service) *ReorderHandler {
	return &ReorderHandler{BaseHandler: base, service: service}
}

// Alerts handles GET /reorder/alerts
func (h *ReorderHandler) Alerts(c *gin.Context) {
	alerts, err := h.service.Alerts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	if alerts == nil {
		alerts = []reorder.LowStockAlert{}
	}
	h.OK(c, dto.ItemsResponse[reorder.LowStockAlert]{Items: alerts})
}

// Generate handles POST /reorder/generate
func (h *ReorderHandler) Generate(c *gin.Context) {
	result, err := h.service.GeneratePurchaseOrders(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// ListLevels handles GET /reorder/levels
func (h *ReorderHandler) ListLevels(c *gin.Context) {
	var q dto.ReorderLevelListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.ListLevels(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// GetLevel handles GET /reorder/levels/:itemId
func (h *ReorderHandler) GetLevel(c *gin.Context) {
	itemID, ok := h.ParamID(c, "itemId")
	if !ok {
		return
	}

	level, err := h.service.GetLevel(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, level)
}

// SetLevel handles PUT /reorder/levels/:itemId
func (h *ReorderHandler) SetLevel(c *gin.Context) {
	itemID, ok := h.ParamID(c, "itemId")
	if !ok {
		return
	}
	var req dto.SetReorderLevelRequest
	if !h.BindJSON(c, &req) {
		return
	}

	level, err := h.service.SetLevel(c.Request.Context(), req.ToDomain(itemID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, level)
}

// DeleteLevel handles DELETE /reorder/levels/:itemId
func (h *ReorderHandler) DeleteLevel(c *gin.Context) {
	itemID, ok := h.ParamID(c, "itemId")
	if !ok {
		return
	}

	if err := h.service.DeleteLevel(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
