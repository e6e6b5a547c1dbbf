package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/domain/auth"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// StaffHandler manages staff records and override PINs.
type StaffHandler struct {
	*BaseHandler
	service *auth.Service
}

func NewStaffHandler(base *BaseHandler, service *auth.Service) *StaffHandler {
	return &StaffHandler{BaseHandler: base, service: service}
}

func (h *StaffHandler) userID(c *gin.Context) (string, bool) {
	userID := c.Param("userId")
	if userID == "" {
		h.Error(c, apperror.NewValidation("user id is required").WithDetail("field", "userId"))
		return "", false
	}
	return userID, true
}

// List handles GET /staff
func (h *StaffHandler) List(c *gin.Context) {
	var q dto.StaffListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	staff, err := h.service.ListStaff(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	if staff == nil {
		staff = []*auth.Staff{}
	}
	h.OK(c, dto.ItemsResponse[*auth.Staff]{Items: staff})
}

// Get handles GET /staff/:userId
func (h *StaffHandler) Get(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	staff, err := h.service.GetStaff(c.Request.Context(), userID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, staff)
}

// Save handles PUT /staff/:userId
func (h *StaffHandler) Save(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req dto.SaveStaffRequest
	if !h.BindJSON(c, &req) {
		return
	}

	staff, err := h.service.SaveStaff(c.Request.Context(), req.ToDomain(userID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, staff)
}

// SetPIN handles PUT /staff/:userId/pin
func (h *StaffHandler) SetPIN(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req dto.SetPINRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetPIN(c.Request.Context(), userID, req.PIN); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
