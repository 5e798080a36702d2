package billing

import (
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeAdjustment = "InvoiceAdjustment"

// Event type constants
const EventTypeAdjustmentApplied = "AdjustmentApplied"

// AdjustmentAppliedEvent is raised when an adjustment is applied to an invoice
type AdjustmentAppliedEvent struct {
	shared.BaseDomainEvent
	AdjustmentID uuid.UUID       `json:"adjustment_id"`
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	Type         AdjustmentType  `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason"`
}

// NewAdjustmentAppliedEvent creates a new AdjustmentAppliedEvent
func NewAdjustmentAppliedEvent(a *InvoiceAdjustment) *AdjustmentAppliedEvent {
	return &AdjustmentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdjustmentApplied, AggregateTypeAdjustment, a.ID, a.OrganizationID),
		AdjustmentID:    a.ID,
		InvoiceID:       a.InvoiceID,
		Type:            a.Type,
		Amount:          a.Amount,
		Reason:          a.Reason,
	}
}

// EventType returns the event type name
func (e *AdjustmentAppliedEvent) EventType() string {
	return EventTypeAdjustmentApplied
}
