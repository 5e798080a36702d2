package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appaudit "github.com/clinicore/backend/internal/application/audit"
	"github.com/clinicore/backend/internal/domain/audit"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/interfaces/http/dto"
)

// AuditHandler exposes read access to the audit trail.
type AuditHandler struct {
	*BaseHandler
	service *appaudit.Service
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(service *appaudit.Service, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

type auditListRequest struct {
	dto.ListRequest
	ActionType string `form:"action_type"`
}

func (r auditListRequest) toFilter() audit.Filter {
	defaults := dto.DefaultListRequest()
	if r.Page < 1 {
		r.Page = defaults.Page
	}
	if r.PageSize < 1 {
		r.PageSize = defaults.PageSize
	}
	filter := audit.Filter{
		Filter: shared.Filter{
			Page:     r.Page,
			PageSize: r.PageSize,
			OrderBy:  r.OrderBy,
			OrderDir: r.OrderDir,
		},
	}
	if r.ActionType != "" {
		action := audit.ActionType(r.ActionType)
		filter.ActionType = &action
	}
	return filter
}

// ListForEntity handles GET /audit/:entity_type/:id
func (h *AuditHandler) ListForEntity(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	entityID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req auditListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.service.ListForEntity(c.Request.Context(), scope, c.Param("entity_type"), entityID, req.toFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// ListForUser handles GET /audit/users/:id
func (h *AuditHandler) ListForUser(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	userID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req auditListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	entries, err := h.service.ListForUser(c.Request.Context(), scope, userID, req.toFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}
