package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/domain/documents/sale"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles checkout and void.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Create handles POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
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

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
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

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Void handles POST /sales/:id/void
func (h *SaleHandler) Void(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.VoidSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Void(c.Request.Context(), saleID, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}
