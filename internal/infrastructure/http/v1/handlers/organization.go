package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/domain/catalogs/organization"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// OrganizationHandler reads and replaces the organization settings.
type OrganizationHandler struct {
	*BaseHandler
	service *organization.Service
}

func NewOrganizationHandler(base *BaseHandler, service *organization.Service) *OrganizationHandler {
	return &OrganizationHandler{BaseHandler: base, service: service}
}

// Get handles GET /organization
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.service.Get(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, org)
}

// Update handles PUT /organization
func (h *OrganizationHandler) Update(c *gin.Context) {
	var req dto.UpdateOrganizationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	org, err := h.service.Update(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, org)
}
