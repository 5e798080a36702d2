package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appidentity "github.com/clinicore/backend/internal/application/identity"
)

// OrganizationHandler exposes organization lifecycle operations. All of these
// routes require a super admin token; the service enforces it.
type OrganizationHandler struct {
	*BaseHandler
	service *appidentity.OrganizationService
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(service *appidentity.OrganizationService, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Create handles POST /organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}

	var req appidentity.CreateOrganizationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.ClientIP = c.ClientIP()

	resp, err := h.service.CreateOrganization(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /organizations/:id
func (h *OrganizationHandler) Get(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetOrganization(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Activate handles POST /organizations/:id/activate
func (h *OrganizationHandler) Activate(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.ActivateOrganization(c.Request.Context(), scope, id, c.ClientIP())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deactivate handles POST /organizations/:id/deactivate
func (h *OrganizationHandler) Deactivate(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.DeactivateOrganization(c.Request.Context(), scope, id, c.ClientIP())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
