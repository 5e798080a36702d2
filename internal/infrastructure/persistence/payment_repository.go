package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/infrastructure/persistence/models"
)

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByIDForOrg finds a payment owned by the organization
func (r *GormPaymentRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Payment")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice lists payments recorded against an invoice
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID, filter billing.PaymentFilter) ([]billing.Payment, error) {
	var paymentModels []models.PaymentModel
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("organization_id = ? AND invoice_id = ?", organizationID, invoiceID)

	if !filter.IncludeRefunds {
		query = query.Where("is_refunded = ?", false)
	}
	if filter.Method != nil {
		query = query.Where("payment_method = ?", *filter.Method)
	}
	if filter.FromDate != nil {
		query = query.Where("payment_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("payment_date <= ?", *filter.ToDate)
	}

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "payment_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]billing.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments, nil
}

// SumNonRefundedForInvoice returns the sum of non-refunded payment amounts for
// the invoice. Called inside the same transaction as the invoice recompute.
func (r *GormPaymentRepository) SumNonRefundedForInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("organization_id = ? AND invoice_id = ? AND is_refunded = ?", organizationID, invoiceID, false).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return r.db.WithContext(ctx).Save(model).Error
}
