package billing

import (
	"time"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ===================== Invoice DTOs =====================

// InvoiceItemRequest represents one line item in a create/add request
type InvoiceItemRequest struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	PatientID      uuid.UUID            `json:"patient_id"`
	Items          []InvoiceItemRequest `json:"items" binding:"required,min=1"`
	DiscountType   string               `json:"discount_type,omitempty"`
	DiscountValue  decimal.Decimal      `json:"discount_value,omitempty"`
	IssuedDate     time.Time            `json:"issued_date,omitempty"`
	DueDate        *time.Time           `json:"due_date,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	IdempotencyKey string               `json:"-"` // From the Idempotency-Key header
	ClientIP       string               `json:"-"` // Captured by the handler for the audit trail
}

// ApplyDiscountRequest represents a request to apply a discount to a draft invoice
type ApplyDiscountRequest struct {
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
}

// UpdateInvoiceRequest updates the mutable header fields of an invoice
type UpdateInvoiceRequest struct {
	DueDate *time.Time `json:"due_date,omitempty"`
	Notes   *string    `json:"notes,omitempty"`
}

// VoidInvoiceRequest represents a request to void an invoice
type VoidInvoiceRequest struct {
	Reason   string `json:"reason"`
	ClientIP string `json:"-"`
}

// InvoiceItemResponse represents a line item in API responses
type InvoiceItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID              uuid.UUID             `json:"id"`
	OrganizationID  uuid.UUID             `json:"organization_id"`
	InvoiceNumber   string                `json:"invoice_number"`
	PatientID       uuid.UUID             `json:"patient_id"`
	Items           []InvoiceItemResponse `json:"items"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	DiscountType    string                `json:"discount_type"`
	DiscountValue   decimal.Decimal       `json:"discount_value"`
	FinalAmount     decimal.Decimal       `json:"final_amount"`
	PaidAmount      decimal.Decimal       `json:"paid_amount"`
	AdjustmentTotal decimal.Decimal       `json:"adjustment_total"`
	BalanceDue      decimal.Decimal       `json:"balance_due"`
	Status          string                `json:"status"`
	Overdue         bool                  `json:"overdue"`
	IssuedDate      time.Time             `json:"issued_date"`
	DueDate         *time.Time            `json:"due_date,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	SentAt          *time.Time            `json:"sent_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Version         int                   `json:"version"`
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	PatientID *uuid.UUID `form:"patient_id"`
	Status    string     `form:"status"`
	FromDate  *time.Time `form:"from_date"`
	ToDate    *time.Time `form:"to_date"`
	Overdue   bool       `form:"overdue"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
}

// InvoiceSummaryResponse aggregates the financial position of one invoice
type InvoiceSummaryResponse struct {
	Invoice         InvoiceResponse      `json:"invoice"`
	Payments        []PaymentResponse    `json:"payments"`
	Adjustments     []AdjustmentResponse `json:"adjustments"`
	PaymentCount    int                  `json:"payment_count"`
	RefundedCount   int                  `json:"refunded_count"`
	AdjustmentTotal decimal.Decimal      `json:"adjustment_total"`
	BalanceDue      decimal.Decimal      `json:"balance_due"`
}

// ===================== Payment DTOs =====================

// RecordPaymentRequest represents a request to record a payment
type RecordPaymentRequest struct {
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentDate     time.Time       `json:"payment_date,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	InstallmentID   *uuid.UUID      `json:"installment_id,omitempty"`
	IdempotencyKey  string          `json:"-"`
	ClientIP        string          `json:"-"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID              uuid.UUID       `json:"id"`
	OrganizationID  uuid.UUID       `json:"organization_id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	InstallmentID   *uuid.UUID      `json:"installment_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     time.Time       `json:"payment_date"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	IsRefunded      bool            `json:"is_refunded"`
	RefundReason    string          `json:"refund_reason,omitempty"`
	RefundedAt      *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// RecordPaymentResult carries the payment and the invoice state it produced
type RecordPaymentResult struct {
	Payment       PaymentResponse `json:"payment"`
	InvoiceStatus string          `json:"invoice_status"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	PlanCompleted bool            `json:"plan_completed,omitempty"`
}

// RefundPaymentRequest represents a request to refund a payment
type RefundPaymentRequest struct {
	Reason   string `json:"reason"`
	ClientIP string `json:"-"`
}

// ===================== Payment plan DTOs =====================

// InstallmentSpecRequest carries an explicit installment override
type InstallmentSpecRequest struct {
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
}

// CreatePlanRequest represents a request to create a payment plan
type CreatePlanRequest struct {
	InvoiceID            uuid.UUID                `json:"invoice_id"`
	Frequency            string                   `json:"frequency"`
	NumberOfInstallments int                      `json:"number_of_installments"`
	InstallmentAmount    decimal.Decimal          `json:"installment_amount"`
	StartDate            time.Time                `json:"start_date"`
	Installments         []InstallmentSpecRequest `json:"installments,omitempty"`
	ClientIP             string                   `json:"-"`
}

// InstallmentResponse represents an installment in API responses
type InstallmentResponse struct {
	ID      uuid.UUID       `json:"id"`
	Number  int             `json:"number"`
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
	IsPaid  bool            `json:"is_paid"`
	PaidAt  *time.Time      `json:"paid_at,omitempty"`
}

// PlanResponse represents a payment plan in API responses
type PlanResponse struct {
	ID                   uuid.UUID             `json:"id"`
	OrganizationID       uuid.UUID             `json:"organization_id"`
	InvoiceID            uuid.UUID             `json:"invoice_id"`
	PatientID            uuid.UUID             `json:"patient_id"`
	Frequency            string                `json:"frequency"`
	NumberOfInstallments int                   `json:"number_of_installments"`
	InstallmentAmount    decimal.Decimal       `json:"installment_amount"`
	StartDate            time.Time             `json:"start_date"`
	Status               string                `json:"status"`
	Installments         []InstallmentResponse `json:"installments"`
	CompletedAt          *time.Time            `json:"completed_at,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
}

// PayInstallmentRequest represents a request to pay one installment
type PayInstallmentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentDate     time.Time       `json:"payment_date,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	IdempotencyKey  string          `json:"-"`
	ClientIP        string          `json:"-"`
}

// ===================== Adjustment DTOs =====================

// ApplyAdjustmentRequest represents a request to apply an adjustment
type ApplyAdjustmentRequest struct {
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	AppliedDate time.Time       `json:"applied_date,omitempty"`
	ClientIP    string          `json:"-"`
}

// WriteOffRequest represents a request to write off an invoice's balance
type WriteOffRequest struct {
	Reason   string `json:"reason"`
	ClientIP string `json:"-"`
}

// AdjustmentResponse represents an adjustment in API responses
type AdjustmentResponse struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	AppliedDate    time.Time       `json:"applied_date"`
	CreatedByID    uuid.UUID       `json:"created_by_id"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ===================== Converters =====================

func toInvoiceResponse(inv *billing.Invoice) *InvoiceResponse {
	items := make([]InvoiceItemResponse, len(inv.Items))
	for i, item := range inv.Items {
		items[i] = InvoiceItemResponse{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		}
	}
	return &InvoiceResponse{
		ID:              inv.ID,
		OrganizationID:  inv.OrganizationID,
		InvoiceNumber:   inv.InvoiceNumber,
		PatientID:       inv.PatientID,
		Items:           items,
		TotalAmount:     inv.TotalAmount,
		DiscountType:    inv.DiscountType.String(),
		DiscountValue:   inv.DiscountValue,
		FinalAmount:     inv.FinalAmount,
		PaidAmount:      inv.PaidAmount,
		AdjustmentTotal: inv.AdjustmentTotal,
		BalanceDue:      inv.BalanceDue(),
		Status:          inv.Status.String(),
		Overdue:         inv.IsOverdue(time.Now()),
		IssuedDate:      inv.IssuedDate,
		DueDate:         inv.DueDate,
		Notes:           inv.Notes,
		SentAt:          inv.SentAt,
		CancelledAt:     inv.CancelledAt,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
		Version:         inv.Version,
	}
}

func toPaymentResponse(p *billing.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:              p.ID,
		OrganizationID:  p.OrganizationID,
		InvoiceID:       p.InvoiceID,
		InstallmentID:   p.InstallmentID,
		Amount:          p.Amount,
		PaymentDate:     p.PaymentDate,
		PaymentMethod:   p.PaymentMethod.String(),
		ReferenceNumber: p.ReferenceNumber,
		IsRefunded:      p.IsRefunded,
		RefundReason:    p.RefundReason,
		RefundedAt:      p.RefundedAt,
		CreatedAt:       p.CreatedAt,
	}
}

func toPlanResponse(plan *billing.PaymentPlan) *PlanResponse {
	installments := make([]InstallmentResponse, len(plan.Installments))
	for i, inst := range plan.Installments {
		installments[i] = InstallmentResponse{
			ID:      inst.ID,
			Number:  inst.Number,
			DueDate: inst.DueDate,
			Amount:  inst.Amount,
			IsPaid:  inst.IsPaid,
			PaidAt:  inst.PaidAt,
		}
	}
	return &PlanResponse{
		ID:                   plan.ID,
		OrganizationID:       plan.OrganizationID,
		InvoiceID:            plan.InvoiceID,
		PatientID:            plan.PatientID,
		Frequency:            plan.Frequency.String(),
		NumberOfInstallments: plan.NumberOfInstallments,
		InstallmentAmount:    plan.InstallmentAmount,
		StartDate:            plan.StartDate,
		Status:               plan.Status.String(),
		Installments:         installments,
		CompletedAt:          plan.CompletedAt,
		CreatedAt:            plan.CreatedAt,
	}
}

func toAdjustmentResponse(a *billing.InvoiceAdjustment) *AdjustmentResponse {
	return &AdjustmentResponse{
		ID:             a.ID,
		OrganizationID: a.OrganizationID,
		InvoiceID:      a.InvoiceID,
		Type:           a.Type.String(),
		Amount:         a.Amount,
		Reason:         a.Reason,
		AppliedDate:    a.AppliedDate,
		CreatedByID:    a.CreatedByID,
		CreatedAt:      a.CreatedAt,
	}
}
