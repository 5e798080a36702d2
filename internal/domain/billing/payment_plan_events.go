package billing

import (
	"time"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypePaymentPlan = "PaymentPlan"

// Event type constants
const (
	EventTypePaymentPlanCreated   = "PaymentPlanCreated"
	EventTypeInstallmentPaid      = "InstallmentPaid"
	EventTypePaymentPlanCompleted = "PaymentPlanCompleted"
)

// PaymentPlanCreatedEvent is raised when a payment plan is created
type PaymentPlanCreatedEvent struct {
	shared.BaseDomainEvent
	PlanID               uuid.UUID     `json:"plan_id"`
	InvoiceID            uuid.UUID     `json:"invoice_id"`
	PatientID            uuid.UUID     `json:"patient_id"`
	Frequency            PlanFrequency `json:"frequency"`
	NumberOfInstallments int           `json:"number_of_installments"`
}

// NewPaymentPlanCreatedEvent creates a new PaymentPlanCreatedEvent
func NewPaymentPlanCreatedEvent(p *PaymentPlan) *PaymentPlanCreatedEvent {
	return &PaymentPlanCreatedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypePaymentPlanCreated, AggregateTypePaymentPlan, p.ID, p.OrganizationID),
		PlanID:               p.ID,
		InvoiceID:            p.InvoiceID,
		PatientID:            p.PatientID,
		Frequency:            p.Frequency,
		NumberOfInstallments: p.NumberOfInstallments,
	}
}

// EventType returns the event type name
func (e *PaymentPlanCreatedEvent) EventType() string {
	return EventTypePaymentPlanCreated
}

// InstallmentPaidEvent is raised when an installment is settled
type InstallmentPaidEvent struct {
	shared.BaseDomainEvent
	PlanID            uuid.UUID       `json:"plan_id"`
	InstallmentID     uuid.UUID       `json:"installment_id"`
	InstallmentNumber int             `json:"installment_number"`
	Amount            decimal.Decimal `json:"amount"`
	DueDate           time.Time       `json:"due_date"`
}

// NewInstallmentPaidEvent creates a new InstallmentPaidEvent
func NewInstallmentPaidEvent(p *PaymentPlan, inst *Installment) *InstallmentPaidEvent {
	return &InstallmentPaidEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInstallmentPaid, AggregateTypePaymentPlan, p.ID, p.OrganizationID),
		PlanID:            p.ID,
		InstallmentID:     inst.ID,
		InstallmentNumber: inst.Number,
		Amount:            inst.Amount,
		DueDate:           inst.DueDate,
	}
}

// EventType returns the event type name
func (e *InstallmentPaidEvent) EventType() string {
	return EventTypeInstallmentPaid
}

// PaymentPlanCompletedEvent is raised exactly once when the last unpaid
// installment is settled
type PaymentPlanCompletedEvent struct {
	shared.BaseDomainEvent
	PlanID    uuid.UUID `json:"plan_id"`
	InvoiceID uuid.UUID `json:"invoice_id"`
}

// NewPaymentPlanCompletedEvent creates a new PaymentPlanCompletedEvent
func NewPaymentPlanCompletedEvent(p *PaymentPlan) *PaymentPlanCompletedEvent {
	return &PaymentPlanCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentPlanCompleted, AggregateTypePaymentPlan, p.ID, p.OrganizationID),
		PlanID:          p.ID,
		InvoiceID:       p.InvoiceID,
	}
}

// EventType returns the event type name
func (e *PaymentPlanCompletedEvent) EventType() string {
	return EventTypePaymentPlanCompleted
}
