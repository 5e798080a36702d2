package billing

import (
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeInvoice = "Invoice"

// Event type constants
const (
	EventTypeInvoiceCreated       = "InvoiceCreated"
	EventTypeInvoiceSent          = "InvoiceSent"
	EventTypeInvoiceVoided        = "InvoiceVoided"
	EventTypeInvoiceStatusChanged = "InvoiceStatusChanged"
)

// InvoiceCreatedEvent is raised when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	PatientID     uuid.UUID `json:"patient_id"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID, inv.OrganizationID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PatientID:       inv.PatientID,
	}
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return EventTypeInvoiceCreated
}

// InvoiceSentEvent is raised when an invoice is issued to the patient
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
}

// NewInvoiceSentEvent creates a new InvoiceSentEvent
func NewInvoiceSentEvent(inv *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSent, AggregateTypeInvoice, inv.ID, inv.OrganizationID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		FinalAmount:     inv.FinalAmount,
	}
}

// EventType returns the event type name
func (e *InvoiceSentEvent) EventType() string {
	return EventTypeInvoiceSent
}

// InvoiceVoidedEvent is raised when an invoice is cancelled
type InvoiceVoidedEvent struct {
	shared.BaseDomainEvent
	InvoiceID      uuid.UUID     `json:"invoice_id"`
	InvoiceNumber  string        `json:"invoice_number"`
	PreviousStatus InvoiceStatus `json:"previous_status"`
	Reason         string        `json:"reason,omitempty"`
}

// NewInvoiceVoidedEvent creates a new InvoiceVoidedEvent
func NewInvoiceVoidedEvent(inv *Invoice, previousStatus InvoiceStatus) *InvoiceVoidedEvent {
	return &InvoiceVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceVoided, AggregateTypeInvoice, inv.ID, inv.OrganizationID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PreviousStatus:  previousStatus,
		Reason:          inv.CancelReason,
	}
}

// EventType returns the event type name
func (e *InvoiceVoidedEvent) EventType() string {
	return EventTypeInvoiceVoided
}

// InvoiceStatusChangedEvent is raised when payments move the invoice between
// SENT, PARTIAL and PAID
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	PreviousStatus InvoiceStatus   `json:"previous_status"`
	NewStatus      InvoiceStatus   `json:"new_status"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

// NewInvoiceStatusChangedEvent creates a new InvoiceStatusChangedEvent
func NewInvoiceStatusChangedEvent(inv *Invoice, previousStatus InvoiceStatus) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceStatusChanged, AggregateTypeInvoice, inv.ID, inv.OrganizationID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PreviousStatus:  previousStatus,
		NewStatus:       inv.Status,
		PaidAmount:      inv.PaidAmount,
		FinalAmount:     inv.FinalAmount,
	}
}

// EventType returns the event type name
func (e *InvoiceStatusChangedEvent) EventType() string {
	return EventTypeInvoiceStatusChanged
}
