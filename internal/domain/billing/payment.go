package billing

import (
	"time"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents the method of payment
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodInsurance    PaymentMethod = "INSURANCE"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodInsurance, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment represents a payment recorded against an invoice.
// A payment is created once and never deleted; a refund flips IsRefunded and
// keeps the original record for audit continuity.
type Payment struct {
	shared.OrgAggregateRoot
	InvoiceID       uuid.UUID
	InstallmentID   *uuid.UUID // Set when the payment settles a plan installment
	Amount          decimal.Decimal
	PaymentDate     time.Time
	PaymentMethod   PaymentMethod
	ReferenceNumber string
	IsRefunded      bool
	RefundReason    string
	RefundedAt      *time.Time
}

// NewPayment creates a new payment record
func NewPayment(
	organizationID uuid.UUID,
	invoiceID uuid.UUID,
	amount valueobject.Money,
	method PaymentMethod,
	paymentDate time.Time,
) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewValidationError("invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("payment method %q is not valid", method)
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	p := &Payment{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		InvoiceID:        invoiceID,
		Amount:           amount.Amount(),
		PaymentDate:      paymentDate,
		PaymentMethod:    method,
	}

	p.AddDomainEvent(NewPaymentRecordedEvent(p))

	return p, nil
}

// AttachInstallment links the payment to a payment-plan installment
func (p *Payment) AttachInstallment(installmentID uuid.UUID) error {
	if installmentID == uuid.Nil {
		return shared.NewValidationError("installment ID cannot be empty")
	}
	p.InstallmentID = &installmentID
	return nil
}

// SetReferenceNumber sets the external reference (check number, transaction id)
func (p *Payment) SetReferenceNumber(reference string) error {
	if len(reference) > 100 {
		return shared.NewValidationError("reference number cannot exceed 100 characters")
	}
	p.ReferenceNumber = reference
	p.UpdatedAt = time.Now()
	return nil
}

// Refund marks the payment as refunded. The record is retained; double
// refunds are rejected.
func (p *Payment) Refund(reason string) error {
	if p.IsRefunded {
		return shared.NewInvalidStateError("payment is already refunded")
	}
	if reason == "" {
		return shared.NewValidationError("refund reason is required")
	}

	now := time.Now()
	p.IsRefunded = true
	p.RefundReason = reason
	p.RefundedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentRefundedEvent(p))

	return nil
}

// GetAmountMoney returns the payment amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.Amount)
}

// EffectiveAmount returns the amount this payment contributes to the
// invoice's paid total: zero once refunded.
func (p *Payment) EffectiveAmount() decimal.Decimal {
	if p.IsRefunded {
		return decimal.Zero
	}
	return p.Amount
}
