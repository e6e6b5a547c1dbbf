package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/domain/cash_session"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// CashSessionHandler handles drawer sessions.
type CashSessionHandler struct {
	*BaseHandler
	service *cash_session.Service
}

func NewCashSessionHandler(base *BaseHandler, service *cash_session.Service) *CashSessionHandler {
	return &CashSessionHandler{BaseHandler: base, service: service}
}

// Open handles POST /cash-sessions
func (h *CashSessionHandler) Open(c *gin.Context) {
	var req dto.OpenCashSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Open(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// List handles GET /cash-sessions
func (h *CashSessionHandler) List(c *gin.Context) {
	var q dto.CashSessionListQuery
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

// Current handles GET /cash-sessions/current: the caller's open sessions.
func (h *CashSessionHandler) Current(c *gin.Context) {
	docs, err := h.service.Current(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	if docs == nil {
		docs = []*cash_session.Session{}
	}
	h.OK(c, dto.ItemsResponse[*cash_session.Session]{Items: docs})
}

// Get handles GET /cash-sessions/:id
func (h *CashSessionHandler) Get(c *gin.Context) {
	sessionID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	doc, err := h.service.GetByID(ctx, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	drops, err := h.service.ListDrops(ctx, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if drops == nil {
		drops = []cash_session.CashDrop{}
	}
	h.OK(c, dto.CashSessionResponse{Session: doc, Drops: drops})
}

// Close handles POST /cash-sessions/:id/close
func (h *CashSessionHandler) Close(c *gin.Context) {
	sessionID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CloseCashSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Close(c.Request.Context(), sessionID, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// RecordDrop handles POST /cash-sessions/:id/drops
func (h *CashSessionHandler) RecordDrop(c *gin.Context) {
	sessionID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CashDropRequest
	if !h.BindJSON(c, &req) {
		return
	}

	drop, err := h.service.RecordCashDrop(c.Request.Context(), sessionID, req.Amount, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, drop)
}
