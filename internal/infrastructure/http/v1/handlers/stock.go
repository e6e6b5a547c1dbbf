package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/internal/infrastructure/export"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// maxExportRows bounds one XLSX export.
const maxExportRows = 50_000

// StockHandler handles read access to the stock ledger.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock ledger handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// ListBatches handles GET /stock/batches
func (h *StockHandler) ListBatches(c *gin.Context) {
	var q dto.BatchListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.ListBatches(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// GetBatch handles GET /stock/batches/:id
func (h *StockHandler) GetBatch(c *gin.Context) {
	batchID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	batch, err := h.service.GetBatch(ctx, batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	rec, err := h.service.Reconcile(ctx, batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.BatchResponse{Batch: batch, Reconciliation: rec})
}

// OnHand handles GET /stock/on-hand/:itemId
func (h *StockHandler) OnHand(c *gin.Context) {
	itemID, ok := h.ParamID(c, "itemId")
	if !ok {
		return
	}

	qty, err := h.service.OnHand(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.OnHandResponse{ItemID: itemID, OnHand: qty})
}

// ListMovements handles GET /stock/movements
func (h *StockHandler) ListMovements(c *gin.Context) {
	var q dto.MovementListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.ListMovements(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// ExportMovements handles GET /stock/movements/export
//
// It takes the same filters as ListMovements and streams every matching row
// as an XLSX workbook, ignoring limit and offset.
func (h *StockHandler) ExportMovements(c *gin.Context) {
	var q dto.MovementListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	ctx := c.Request.Context()

	filter := q.ToFilter()
	filter.Limit = domain.MaxListLimit
	filter.Offset = 0

	var rows []stock.Movement
	for {
		page, err := h.service.ListMovements(ctx, filter)
		if err != nil {
			h.Error(c, err)
			return
		}
		rows = append(rows, page.Items...)
		if len(rows) > maxExportRows {
			h.Error(c, apperror.NewValidation("export too large, narrow the filter").
				WithDetail("max_rows", maxExportRows))
			return
		}
		if len(page.Items) < filter.Limit {
			break
		}
		filter.Offset += len(page.Items)
	}

	var buf bytes.Buffer
	if err := export.WriteMovements(&buf, rows); err != nil {
		h.Error(c, err)
		return
	}

	filename := fmt.Sprintf("stock-movements-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}
