package billing

import (
	"context"
	"time"

	"github.com/clinicore/backend/internal/domain/audit"
	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionScope provides transactional access to the billing repositories.
// Operations that read-then-write derived invoice totals must run inside
// Execute so that concurrent payments on the same invoice serialize on the
// locked invoice row instead of losing updates.
type TransactionScope interface {
	// Execute runs fn within a database transaction. If fn returns an error
	// the transaction is rolled back; otherwise it is committed.
	Execute(ctx context.Context, fn func(repos TxRepositories) error) error
}

// TxRepositories provides the billing repositories bound to one transaction
type TxRepositories interface {
	// Invoices returns the invoice repository scoped to the current transaction
	Invoices() billing.InvoiceRepository
	// Payments returns the payment repository scoped to the current transaction
	Payments() billing.PaymentRepository
	// Plans returns the payment plan repository scoped to the current transaction
	Plans() billing.PaymentPlanRepository
	// Adjustments returns the adjustment repository scoped to the current transaction
	Adjustments() billing.AdjustmentRepository
}

// AuditRecord carries everything needed to append one audit trail entry
type AuditRecord struct {
	Actor       shared.AccessScope
	Action      audit.ActionType
	EntityType  string
	EntityID    uuid.UUID
	Previous    audit.Snapshot
	Next        audit.Snapshot
	Description string
	IPAddress   string
}

// AuditRecorder appends entries to the immutable audit trail. The write is
// attempted synchronously after the financial mutation commits; a failure is
// surfaced to the service, which reports it without rolling back the
// committed mutation.
type AuditRecorder interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// ActivityEvent is a human-readable event for the best-effort activity feed,
// distinct from the audit trail
type ActivityEvent struct {
	OrganizationID uuid.UUID
	ActorID        uuid.UUID
	Verb           string
	EntityType     string
	EntityID       uuid.UUID
	Message        string
	OccurredAt     time.Time
}

// ActivitySink receives activity events. Implementations must never block or
// fail a financial operation; errors are swallowed after logging.
type ActivitySink interface {
	Publish(ctx context.Context, event ActivityEvent)
}

// NoOpTransactionScope executes functions without an actual database
// transaction. Useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	invoices    billing.InvoiceRepository
	payments    billing.PaymentRepository
	plans       billing.PaymentPlanRepository
	adjustments billing.AdjustmentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(
	invoices billing.InvoiceRepository,
	payments billing.PaymentRepository,
	plans billing.PaymentPlanRepository,
	adjustments billing.AdjustmentRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoices:    invoices,
		payments:    payments,
		plans:       plans,
		adjustments: adjustments,
	}
}

// Execute runs fn directly against the underlying repositories
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TxRepositories) error) error {
	return fn(s)
}

// Invoices returns the invoice repository
func (s *NoOpTransactionScope) Invoices() billing.InvoiceRepository { return s.invoices }

// Payments returns the payment repository
func (s *NoOpTransactionScope) Payments() billing.PaymentRepository { return s.payments }

// Plans returns the payment plan repository
func (s *NoOpTransactionScope) Plans() billing.PaymentPlanRepository { return s.plans }

// Adjustments returns the adjustment repository
func (s *NoOpTransactionScope) Adjustments() billing.AdjustmentRepository { return s.adjustments }

// Entity type constants used for audit entries and activity events
const (
	EntityTypeInvoice     = "Invoice"
	EntityTypePayment     = "Payment"
	EntityTypePaymentPlan = "PaymentPlan"
	EntityTypeAdjustment  = "InvoiceAdjustment"
)
