package billing

import (
	"fmt"
	"time"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"     // Editable, items and discount mutable
	InvoiceStatusSent      InvoiceStatus = "SENT"      // Issued to the patient, awaiting payment
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"   // Partially paid
	InvoiceStatusPaid      InvoiceStatus = "PAID"      // Fully paid, terminal
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED" // Voided, terminal
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further status transition is allowed
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// CanVoid returns true if the invoice can still be voided in this status
func (s InvoiceStatus) CanVoid() bool {
	return s != InvoiceStatusPaid && s != InvoiceStatusCancelled
}

// CanAdjust returns true if adjustments may target an invoice in this status
func (s InvoiceStatus) CanAdjust() bool {
	return s != InvoiceStatusPaid && s != InvoiceStatusCancelled
}

// DiscountType represents the kind of invoice-level discount
type DiscountType string

const (
	DiscountTypeNone       DiscountType = "NONE"
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeValue      DiscountType = "VALUE"
)

// IsValid checks if the discount type is valid
func (d DiscountType) IsValid() bool {
	switch d {
	case DiscountTypeNone, DiscountTypePercentage, DiscountTypeValue:
		return true
	}
	return false
}

// String returns the string representation of DiscountType
func (d DiscountType) String() string {
	return string(d)
}

// InvoiceItem represents a line item owned by exactly one invoice
type InvoiceItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal // Quantity * UnitPrice
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewInvoiceItem creates a new invoice line item
func NewInvoiceItem(invoiceID uuid.UUID, description string, quantity int, unitPrice valueobject.Money) (*InvoiceItem, error) {
	if description == "" {
		return nil, shared.NewValidationError("item description cannot be empty")
	}
	if quantity < 1 {
		return nil, shared.NewValidationError("item quantity must be at least 1")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("item unit price cannot be negative")
	}

	now := time.Now()
	return &InvoiceItem{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice.Amount(),
		TotalPrice:  unitPrice.Amount().Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateQuantity updates the item quantity and recalculates the line total
func (i *InvoiceItem) UpdateQuantity(quantity int) error {
	if quantity < 1 {
		return shared.NewValidationError("item quantity must be at least 1")
	}
	i.Quantity = quantity
	i.TotalPrice = i.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	i.UpdatedAt = time.Now()
	return nil
}

// GetUnitPriceMoney returns the unit price as Money
func (i *InvoiceItem) GetUnitPriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(i.UnitPrice)
}

// GetTotalPriceMoney returns the line total as Money
func (i *InvoiceItem) GetTotalPriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(i.TotalPrice)
}

// Invoice represents an invoice aggregate root.
// It owns its line items and derives totals from them; payments and
// adjustments live in their own aggregates and feed back into PaidAmount
// and AdjustmentTotal through the recompute path.
type Invoice struct {
	shared.OrgAggregateRoot
	InvoiceNumber   string
	PatientID       uuid.UUID
	Items           []InvoiceItem
	TotalAmount     decimal.Decimal // Sum of item totals
	DiscountType    DiscountType
	DiscountValue   decimal.Decimal
	FinalAmount     decimal.Decimal // TotalAmount minus discount, never negative
	PaidAmount      decimal.Decimal // Sum of non-refunded payments
	AdjustmentTotal decimal.Decimal // Sum of applied adjustment amounts
	Status          InvoiceStatus
	IssuedDate      time.Time
	DueDate         *time.Time
	Notes           string
	SentAt          *time.Time
	CancelledAt     *time.Time
	CancelReason    string
}

// NewInvoice creates a new invoice in DRAFT status with no items yet
func NewInvoice(organizationID uuid.UUID, invoiceNumber string, patientID uuid.UUID, issuedDate time.Time) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewValidationError("invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewValidationError("invoice number cannot exceed 50 characters")
	}
	if patientID == uuid.Nil {
		return nil, shared.NewValidationError("patient ID cannot be empty")
	}
	if issuedDate.IsZero() {
		issuedDate = time.Now()
	}

	inv := &Invoice{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		InvoiceNumber:    invoiceNumber,
		PatientID:        patientID,
		Items:            make([]InvoiceItem, 0),
		TotalAmount:      decimal.Zero,
		DiscountType:     DiscountTypeNone,
		DiscountValue:    decimal.Zero,
		FinalAmount:      decimal.Zero,
		PaidAmount:       decimal.Zero,
		AdjustmentTotal:  decimal.Zero,
		Status:           InvoiceStatusDraft,
		IssuedDate:       issuedDate,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// AddItem adds a new line item. Only allowed while the invoice is DRAFT.
func (inv *Invoice) AddItem(description string, quantity int, unitPrice valueobject.Money) (*InvoiceItem, error) {
	if inv.Status != InvoiceStatusDraft {
		return nil, shared.NewInvalidStateError("cannot add items to a %s invoice", inv.Status)
	}

	item, err := NewInvoiceItem(inv.ID, description, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	inv.Items = append(inv.Items, *item)
	inv.recalculateTotals()
	inv.UpdatedAt = time.Now()

	return item, nil
}

// RemoveItem removes a line item. Only allowed while the invoice is DRAFT.
func (inv *Invoice) RemoveItem(itemID uuid.UUID) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewInvalidStateError("cannot remove items from a %s invoice", inv.Status)
	}

	for idx, item := range inv.Items {
		if item.ID == itemID {
			inv.Items = append(inv.Items[:idx], inv.Items[idx+1:]...)
			inv.recalculateTotals()
			inv.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewNotFoundError("invoice item")
}

// UpdateItemQuantity changes the quantity of an existing item. DRAFT only.
func (inv *Invoice) UpdateItemQuantity(itemID uuid.UUID, quantity int) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewInvalidStateError("cannot update items of a %s invoice", inv.Status)
	}

	for idx := range inv.Items {
		if inv.Items[idx].ID == itemID {
			if err := inv.Items[idx].UpdateQuantity(quantity); err != nil {
				return err
			}
			inv.recalculateTotals()
			inv.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewNotFoundError("invoice item")
}

// ApplyDiscount sets the invoice-level discount. DRAFT only.
func (inv *Invoice) ApplyDiscount(discountType DiscountType, value decimal.Decimal) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewInvalidStateError("cannot change discount of a %s invoice", inv.Status)
	}
	if !discountType.IsValid() {
		return shared.NewValidationError("discount type %q is not valid", discountType)
	}
	if value.IsNegative() {
		return shared.NewValidationError("discount value cannot be negative")
	}
	if discountType == DiscountTypePercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewValidationError("percentage discount cannot exceed 100")
	}
	if discountType == DiscountTypeNone && !value.IsZero() {
		return shared.NewValidationError("discount value must be zero when discount type is NONE")
	}

	inv.DiscountType = discountType
	inv.DiscountValue = value
	inv.recalculateTotals()
	inv.UpdatedAt = time.Now()

	return nil
}

// SetDueDate sets the payment due date
func (inv *Invoice) SetDueDate(dueDate time.Time) error {
	if inv.Status.IsTerminal() {
		return shared.NewInvalidStateError("cannot modify a %s invoice", inv.Status)
	}
	inv.DueDate = &dueDate
	inv.UpdatedAt = time.Now()
	return nil
}

// SetNotes sets free-form notes
func (inv *Invoice) SetNotes(notes string) {
	inv.Notes = notes
	inv.UpdatedAt = time.Now()
}

// Send issues the invoice, transitioning DRAFT to SENT.
// Requires at least one line item.
func (inv *Invoice) Send() error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewInvalidStateError("cannot send invoice in %s status", inv.Status)
	}
	if len(inv.Items) == 0 {
		return shared.NewValidationError("cannot send an invoice without items")
	}

	now := time.Now()
	inv.Status = InvoiceStatusSent
	inv.SentAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceSentEvent(inv))

	return nil
}

// Void cancels the invoice. Forbidden once the invoice is PAID.
func (inv *Invoice) Void(reason string) error {
	if !inv.Status.CanVoid() {
		return shared.NewInvalidStateError("cannot void invoice in %s status", inv.Status)
	}

	now := time.Now()
	previousStatus := inv.Status
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceVoidedEvent(inv, previousStatus))

	return nil
}

// RecomputeStatus updates PaidAmount from the given non-refunded payment sum
// and derives the payment-driven status. DRAFT and SENT are preserved while
// nothing has been paid; terminal CANCELLED is never overwritten. Calling it
// again with the same inputs yields the same status.
func (inv *Invoice) RecomputeStatus(paidAmount decimal.Decimal) {
	if paidAmount.IsNegative() {
		paidAmount = decimal.Zero
	}
	inv.PaidAmount = paidAmount

	if inv.Status == InvoiceStatusCancelled {
		return
	}

	previousStatus := inv.Status
	switch {
	case paidAmount.IsZero():
		// A refund can bring a PAID or PARTIAL invoice back to SENT
		if inv.Status == InvoiceStatusPaid || inv.Status == InvoiceStatusPartial {
			inv.Status = InvoiceStatusSent
		}
	case paidAmount.GreaterThanOrEqual(inv.FinalAmount):
		inv.Status = InvoiceStatusPaid
	default:
		inv.Status = InvoiceStatusPartial
	}

	if inv.Status != previousStatus {
		inv.UpdatedAt = time.Now()
		inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, previousStatus))
	}
}

// RegisterAdjustment records an adjustment amount against the invoice.
// Adjustments never mutate FinalAmount; they reduce the collectible balance.
func (inv *Invoice) RegisterAdjustment(amount decimal.Decimal) error {
	if !inv.Status.CanAdjust() {
		return shared.NewInvalidStateError("cannot adjust invoice in %s status", inv.Status)
	}

	inv.AdjustmentTotal = inv.AdjustmentTotal.Add(amount)
	inv.UpdatedAt = time.Now()

	return nil
}

// BalanceDue returns the outstanding collectible amount:
// FinalAmount - PaidAmount - AdjustmentTotal, floored at zero.
func (inv *Invoice) BalanceDue() decimal.Decimal {
	balance := inv.FinalAmount.Sub(inv.PaidAmount).Sub(inv.AdjustmentTotal)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// IsOverdue reports whether the invoice is past due at the given time.
// Overdue is derived, never persisted as a status transition.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	if inv.DueDate == nil {
		return false
	}
	if inv.Status != InvoiceStatusSent && inv.Status != InvoiceStatusPartial {
		return false
	}
	return inv.DueDate.Before(now)
}

// IsDraft returns true if the invoice is still editable
func (inv *Invoice) IsDraft() bool {
	return inv.Status == InvoiceStatusDraft
}

// IsPaid returns true if the invoice is fully paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// GetFinalAmountMoney returns the final amount as Money
func (inv *Invoice) GetFinalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(inv.FinalAmount)
}

// GetItemByID returns the line item with the given ID, or nil
func (inv *Invoice) GetItemByID(itemID uuid.UUID) *InvoiceItem {
	for i := range inv.Items {
		if inv.Items[i].ID == itemID {
			return &inv.Items[i]
		}
	}
	return nil
}

// recalculateTotals recomputes TotalAmount from items and FinalAmount from
// the discount. FinalAmount is floored at zero.
func (inv *Invoice) recalculateTotals() {
	total := decimal.Zero
	for _, item := range inv.Items {
		total = total.Add(item.TotalPrice)
	}
	inv.TotalAmount = total

	switch inv.DiscountType {
	case DiscountTypePercentage:
		factor := decimal.NewFromInt(1).Sub(inv.DiscountValue.Div(decimal.NewFromInt(100)))
		inv.FinalAmount = total.Mul(factor).Round(2)
	case DiscountTypeValue:
		inv.FinalAmount = total.Sub(inv.DiscountValue)
	default:
		inv.FinalAmount = total
	}

	if inv.FinalAmount.IsNegative() {
		inv.FinalAmount = decimal.Zero
	}
}

// DiscountAmount returns the effective discount: TotalAmount - FinalAmount
func (inv *Invoice) DiscountAmount() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.FinalAmount)
}

// Describe returns a short human-readable identifier for logs and audit entries
func (inv *Invoice) Describe() string {
	return fmt.Sprintf("invoice %s", inv.InvoiceNumber)
}
