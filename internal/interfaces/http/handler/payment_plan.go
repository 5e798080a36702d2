package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/clinicore/backend/internal/application/billing"
)

// PaymentPlanHandler exposes payment plan scheduling operations over HTTP.
type PaymentPlanHandler struct {
	*BaseHandler
	service *appbilling.PaymentPlanService
}

// NewPaymentPlanHandler creates a new payment plan handler
func NewPaymentPlanHandler(service *appbilling.PaymentPlanService, logger *zap.Logger) *PaymentPlanHandler {
	return &PaymentPlanHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Create handles POST /payment-plans
func (h *PaymentPlanHandler) Create(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}

	var req appbilling.CreatePlanRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.ClientIP = c.ClientIP()

	resp, err := h.service.CreatePlan(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /payment-plans/:id
func (h *PaymentPlanHandler) Get(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetPlan(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListForInvoice handles GET /invoices/:id/payment-plans
func (h *PaymentPlanHandler) ListForInvoice(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	invoiceID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}

	plans, err := h.service.ListPlansForInvoice(c.Request.Context(), scope, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plans)
}

// PayInstallment handles POST /payment-plans/:id/installments/:installment_id/pay.
// The Idempotency-Key header guards against double payment on retries.
func (h *PaymentPlanHandler) PayInstallment(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	planID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	installmentID, ok := h.UUIDParam(c, "installment_id")
	if !ok {
		return
	}

	var req appbilling.PayInstallmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	req.ClientIP = c.ClientIP()

	result, err := h.service.PayInstallment(c.Request.Context(), scope, planID, installmentID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
