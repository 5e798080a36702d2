package billing

import (
	"time"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentType represents the kind of invoice adjustment
type AdjustmentType string

const (
	AdjustmentTypeWriteOff   AdjustmentType = "WRITE_OFF"
	AdjustmentTypeDiscount   AdjustmentType = "DISCOUNT"
	AdjustmentTypeCorrection AdjustmentType = "CORRECTION"
	AdjustmentTypeFee        AdjustmentType = "FEE"
)

// IsValid checks if the adjustment type is valid
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentTypeWriteOff, AdjustmentTypeDiscount, AdjustmentTypeCorrection, AdjustmentTypeFee:
		return true
	}
	return false
}

// String returns the string representation of AdjustmentType
func (t AdjustmentType) String() string {
	return string(t)
}

// InvoiceAdjustment is a ledger annotation against an invoice: a write-off,
// discount, correction or fee. It is immutable once created; it records its
// amount verbatim and never mutates the invoice's FinalAmount.
type InvoiceAdjustment struct {
	shared.OrgAggregateRoot
	InvoiceID   uuid.UUID
	Type        AdjustmentType
	Amount      decimal.Decimal
	Reason      string
	AppliedDate time.Time
	CreatedByID uuid.UUID
}

// NewInvoiceAdjustment creates a new invoice adjustment
func NewInvoiceAdjustment(
	organizationID uuid.UUID,
	invoiceID uuid.UUID,
	adjustmentType AdjustmentType,
	amount valueobject.Money,
	reason string,
	appliedDate time.Time,
	createdByID uuid.UUID,
) (*InvoiceAdjustment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewValidationError("invoice ID cannot be empty")
	}
	if !adjustmentType.IsValid() {
		return nil, shared.NewValidationError("adjustment type %q is not valid", adjustmentType)
	}
	if amount.IsZero() {
		return nil, shared.NewValidationError("adjustment amount cannot be zero")
	}
	// Corrections may go either way; the other types only ever reduce or add
	// to the collectible balance with a positive magnitude.
	if adjustmentType != AdjustmentTypeCorrection && amount.IsNegative() {
		return nil, shared.NewValidationError("%s amount must be positive", adjustmentType)
	}
	if reason == "" {
		return nil, shared.NewValidationError("adjustment reason is required")
	}
	if len(reason) > 500 {
		return nil, shared.NewValidationError("adjustment reason cannot exceed 500 characters")
	}
	if createdByID == uuid.Nil {
		return nil, shared.NewValidationError("creating user ID is required")
	}
	if appliedDate.IsZero() {
		appliedDate = time.Now()
	}

	adj := &InvoiceAdjustment{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		InvoiceID:        invoiceID,
		Type:             adjustmentType,
		Amount:           amount.Amount(),
		Reason:           reason,
		AppliedDate:      appliedDate,
		CreatedByID:      createdByID,
	}

	adj.AddDomainEvent(NewAdjustmentAppliedEvent(adj))

	return adj, nil
}

// GetAmountMoney returns the adjustment amount as Money
func (a *InvoiceAdjustment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(a.Amount)
}

// BalanceEffect returns the signed effect on the collectible balance:
// fees increase it, everything else reduces it.
func (a *InvoiceAdjustment) BalanceEffect() decimal.Decimal {
	if a.Type == AdjustmentTypeFee {
		return a.Amount.Neg()
	}
	return a.Amount
}
