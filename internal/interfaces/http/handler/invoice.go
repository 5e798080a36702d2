package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/clinicore/backend/internal/application/billing"
	"github.com/clinicore/backend/internal/interfaces/http/dto"
)

// InvoiceHandler exposes invoice lifecycle operations over HTTP.
type InvoiceHandler struct {
	*BaseHandler
	service *appbilling.InvoiceService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(service *appbilling.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Create handles POST /invoices. The Idempotency-Key header guards against
// duplicate submissions.
func (h *InvoiceHandler) Create(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}

	var req appbilling.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	req.ClientIP = c.ClientIP()

	resp, err := h.service.CreateInvoice(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetInvoice(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}

	var filter appbilling.InvoiceListFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	result, err := h.service.ListInvoices(c.Request.Context(), scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Summary handles GET /invoices/:id/summary
func (h *InvoiceHandler) Summary(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetInvoiceSummary(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update handles PATCH /invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req appbilling.UpdateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpdateInvoice(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AddItem handles POST /invoices/:id/items
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req appbilling.InvoiceItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.AddItem(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveItem handles DELETE /invoices/:id/items/:item_id
func (h *InvoiceHandler) RemoveItem(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.UUIDParam(c, "item_id")
	if !ok {
		return
	}

	resp, err := h.service.RemoveItem(c.Request.Context(), scope, id, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type updateItemQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// UpdateItemQuantity handles PATCH /invoices/:id/items/:item_id
func (h *InvoiceHandler) UpdateItemQuantity(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.UUIDParam(c, "item_id")
	if !ok {
		return
	}

	var req updateItemQuantityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpdateItemQuantity(c.Request.Context(), scope, id, itemID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ApplyDiscount handles POST /invoices/:id/discount
func (h *InvoiceHandler) ApplyDiscount(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req appbilling.ApplyDiscountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.ApplyDiscount(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Send handles POST /invoices/:id/send
func (h *InvoiceHandler) Send(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.SendInvoice(c.Request.Context(), scope, id, c.ClientIP())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Void handles POST /invoices/:id/void
func (h *InvoiceHandler) Void(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req appbilling.VoidInvoiceRequest
	if c.Request.ContentLength > 0 {
		if !h.BindJSON(c, &req) {
			return
		}
	}
	if req.Reason == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "void reason is required")
		return
	}
	req.ClientIP = c.ClientIP()

	resp, err := h.service.VoidInvoice(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
