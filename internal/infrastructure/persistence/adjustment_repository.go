package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/infrastructure/persistence/models"
)

// GormAdjustmentRepository implements billing.AdjustmentRepository using GORM.
// Adjustments are append-only; the repository exposes no update or delete.
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// FindByIDForOrg finds an adjustment owned by the organization
func (r *GormAdjustmentRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*billing.InvoiceAdjustment, error) {
	var model models.InvoiceAdjustmentModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Adjustment")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice lists adjustments applied to an invoice
func (r *GormAdjustmentRepository) FindByInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID) ([]billing.InvoiceAdjustment, error) {
	var adjustmentModels []models.InvoiceAdjustmentModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND invoice_id = ?", organizationID, invoiceID).
		Order("applied_date ASC, created_at ASC").
		Find(&adjustmentModels).Error; err != nil {
		return nil, err
	}
	adjustments := make([]billing.InvoiceAdjustment, len(adjustmentModels))
	for i := range adjustmentModels {
		adjustments[i] = *adjustmentModels[i].ToDomain()
	}
	return adjustments, nil
}

// Save appends a new adjustment
func (r *GormAdjustmentRepository) Save(ctx context.Context, adjustment *billing.InvoiceAdjustment) error {
	model := models.InvoiceAdjustmentModelFromDomain(adjustment)
	return r.db.WithContext(ctx).Create(model).Error
}
