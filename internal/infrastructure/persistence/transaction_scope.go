package persistence

import (
	"context"

	"gorm.io/gorm"

	appbilling "github.com/clinicore/backend/internal/application/billing"
	"github.com/clinicore/backend/internal/domain/billing"
)

// GormTransactionScope implements the billing TransactionScope using GORM
// transactions. It provides atomic execution of multiple repository
// operations; the invoice row lock acquired inside the transaction serializes
// concurrent payment recording on the same invoice.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TxRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTxRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTxRepositories provides access to the billing repositories bound to one transaction.
type gormTxRepositories struct {
	tx *gorm.DB
}

// Invoices returns the invoice repository scoped to the current transaction.
func (r *gormTxRepositories) Invoices() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// Payments returns the payment repository scoped to the current transaction.
func (r *gormTxRepositories) Payments() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// Plans returns the payment plan repository scoped to the current transaction.
func (r *gormTxRepositories) Plans() billing.PaymentPlanRepository {
	return NewGormPaymentPlanRepository(r.tx)
}

// Adjustments returns the adjustment repository scoped to the current transaction.
func (r *gormTxRepositories) Adjustments() billing.AdjustmentRepository {
	return NewGormAdjustmentRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appbilling.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTxRepositories implements TxRepositories
var _ appbilling.TxRepositories = (*gormTxRepositories)(nil)
