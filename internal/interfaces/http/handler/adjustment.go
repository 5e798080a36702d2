package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/clinicore/backend/internal/application/billing"
)

// AdjustmentHandler exposes invoice adjustment operations over HTTP.
type AdjustmentHandler struct {
	*BaseHandler
	service *appbilling.AdjustmentService
}

// NewAdjustmentHandler creates a new adjustment handler
func NewAdjustmentHandler(service *appbilling.AdjustmentService, logger *zap.Logger) *AdjustmentHandler {
	return &AdjustmentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Apply handles POST /adjustments
func (h *AdjustmentHandler) Apply(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}

	var req appbilling.ApplyAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.ClientIP = c.ClientIP()

	resp, err := h.service.ApplyAdjustment(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /adjustments/:id
func (h *AdjustmentHandler) Get(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetAdjustment(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListForInvoice handles GET /invoices/:id/adjustments
func (h *AdjustmentHandler) ListForInvoice(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	invoiceID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	adjustments, err := h.service.ListAdjustmentsForInvoice(c.Request.Context(), scope, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, adjustments)
}

// WriteOff handles POST /invoices/:id/write-off
func (h *AdjustmentHandler) WriteOff(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	invoiceID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req appbilling.WriteOffRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.ClientIP = c.ClientIP()

	resp, err := h.service.WriteOff(c.Request.Context(), scope, invoiceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
