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

// GormPaymentPlanRepository implements billing.PaymentPlanRepository using GORM
type GormPaymentPlanRepository struct {
	db *gorm.DB
}

// NewGormPaymentPlanRepository creates a new GormPaymentPlanRepository
func NewGormPaymentPlanRepository(db *gorm.DB) *GormPaymentPlanRepository {
	return &GormPaymentPlanRepository{db: db}
}

// FindByIDForOrg finds a plan with installments owned by the organization
func (r *GormPaymentPlanRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*billing.PaymentPlan, error) {
	var model models.PaymentPlanModel
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("PaymentPlan")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice lists plans attached to an invoice
func (r *GormPaymentPlanRepository) FindByInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID) ([]billing.PaymentPlan, error) {
	var planModels []models.PaymentPlanModel
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Where("organization_id = ? AND invoice_id = ?", organizationID, invoiceID).
		Order("created_at DESC").
		Find(&planModels).Error; err != nil {
		return nil, err
	}
	plans := make([]billing.PaymentPlan, len(planModels))
	for i := range planModels {
		plans[i] = *planModels[i].ToDomain()
	}
	return plans, nil
}

// FindByInstallment resolves the plan owning the given installment
func (r *GormPaymentPlanRepository) FindByInstallment(ctx context.Context, organizationID, installmentID uuid.UUID) (*billing.PaymentPlan, error) {
	var installment models.InstallmentModel
	if err := r.db.WithContext(ctx).
		First(&installment, "id = ?", installmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Installment")
		}
		return nil, err
	}
	return r.FindByIDForOrg(ctx, organizationID, installment.PlanID)
}

// Save creates or updates a plan together with its installments
func (r *GormPaymentPlanRepository) Save(ctx context.Context, plan *billing.PaymentPlan) error {
	model := models.PaymentPlanModelFromDomain(plan)
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(model).Error
}
