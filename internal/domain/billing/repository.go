package billing

import (
	"context"
	"time"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	PatientID *uuid.UUID
	Status    *InvoiceStatus
	Statuses  []InvoiceStatus
	FromDate  *time.Time
	ToDate    *time.Time
	DueBefore *time.Time
}

// InvoiceRepository persists the Invoice aggregate. Every method that touches
// tenant data takes the organization ID explicitly; the unqualified FindByID
// exists only for the super-admin path.
type InvoiceRepository interface {
	// FindByID finds an invoice (with items) without organization scoping.
	// Reachable only from super-admin code paths.
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForOrg finds an invoice (with items) owned by the organization
	FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*Invoice, error)

	// FindByIDForOrgLocked behaves like FindByIDForOrg but takes a row lock;
	// only valid inside a transaction
	FindByIDForOrgLocked(ctx context.Context, organizationID, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its number within an organization
	FindByNumber(ctx context.Context, organizationID uuid.UUID, invoiceNumber string) (*Invoice, error)

	// FindAllForOrg lists invoices for an organization with filtering
	FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// CountForOrg counts invoices matching the filter
	CountForOrg(ctx context.Context, organizationID uuid.UUID, filter InvoiceFilter) (int64, error)

	// Save creates or updates an invoice together with its items
	Save(ctx context.Context, invoice *Invoice) error

	// NextInvoiceNumber produces the next candidate invoice number for the
	// organization. Uniqueness is enforced by the store; collisions are
	// retried by the caller with a fresh candidate.
	NextInvoiceNumber(ctx context.Context, organizationID uuid.UUID) (string, error)

	// ExistsByNumber reports whether the number is already taken in the organization
	ExistsByNumber(ctx context.Context, organizationID uuid.UUID, invoiceNumber string) (bool, error)
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	Method         *PaymentMethod
	IncludeRefunds bool
	FromDate       *time.Time
	ToDate         *time.Time
}

// PaymentRepository persists the Payment aggregate
type PaymentRepository interface {
	// FindByIDForOrg finds a payment owned by the organization
	FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*Payment, error)

	// FindByInvoice lists payments recorded against an invoice
	FindByInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// SumNonRefundedForInvoice returns the sum of non-refunded payment
	// amounts for the invoice. Must be called inside the same transaction as
	// the invoice recompute to avoid lost updates.
	SumNonRefundedForInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID) (decimal.Decimal, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error
}

// PaymentPlanRepository persists the PaymentPlan aggregate with its installments
type PaymentPlanRepository interface {
	// FindByIDForOrg finds a plan (with installments) owned by the organization
	FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*PaymentPlan, error)

	// FindByInvoice lists plans attached to an invoice
	FindByInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID) ([]PaymentPlan, error)

	// FindByInstallment resolves the plan owning the given installment
	FindByInstallment(ctx context.Context, organizationID, installmentID uuid.UUID) (*PaymentPlan, error)

	// Save creates or updates a plan together with its installments
	Save(ctx context.Context, plan *PaymentPlan) error
}

// AdjustmentRepository persists the InvoiceAdjustment aggregate.
// Adjustments are append-only: there is no update or delete.
type AdjustmentRepository interface {
	// FindByIDForOrg finds an adjustment owned by the organization
	FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*InvoiceAdjustment, error)

	// FindByInvoice lists adjustments applied to an invoice
	FindByInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID) ([]InvoiceAdjustment, error)

	// Save appends a new adjustment
	Save(ctx context.Context, adjustment *InvoiceAdjustment) error
}
