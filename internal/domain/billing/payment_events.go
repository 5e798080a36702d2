package billing

import (
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypePayment = "Payment"

// Event type constants
const (
	EventTypePaymentRecorded = "PaymentRecorded"
	EventTypePaymentRefunded = "PaymentRefunded"
)

// PaymentRecordedEvent is raised when a payment is recorded against an invoice
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InstallmentID *uuid.UUID      `json:"installment_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, p.ID, p.OrganizationID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		InstallmentID:   p.InstallmentID,
		Amount:          p.Amount,
		Method:          p.PaymentMethod,
	}
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}

// PaymentRefundedEvent is raised when a payment is refunded
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// NewPaymentRefundedEvent creates a new PaymentRefundedEvent
func NewPaymentRefundedEvent(p *Payment) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRefunded, AggregateTypePayment, p.ID, p.OrganizationID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		Reason:          p.RefundReason,
	}
}

// EventType returns the event type name
func (e *PaymentRefundedEvent) EventType() string {
	return EventTypePaymentRefunded
}
