package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/clinicore/backend/internal/application/billing"
)

// PaymentHandler exposes payment recording and refund operations over HTTP.
type PaymentHandler struct {
	*BaseHandler
	service *appbilling.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service *appbilling.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Record handles POST /payments. The Idempotency-Key header guards against
// double charges on retried requests.
func (h *PaymentHandler) Record(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}

	var req appbilling.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	req.ClientIP = c.ClientIP()

	result, err := h.service.RecordPayment(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get handles GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetPayment(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Refund handles POST /payments/:id/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req appbilling.RefundPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.ClientIP = c.ClientIP()

	result, err := h.service.RefundPayment(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListForInvoice handles GET /invoices/:id/payments
func (h *PaymentHandler) ListForInvoice(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	invoiceID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	payments, err := h.service.ListPaymentsForInvoice(c.Request.Context(), scope, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}
