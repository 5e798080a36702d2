package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	appbilling "github.com/clinicore/backend/internal/application/billing"
	appidentity "github.com/clinicore/backend/internal/application/identity"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/infrastructure/persistence/models"
)

// GormOwnershipVerifier resolves whether an audited entity belongs to an
// organization. Audit entries carry no organization column, so tenant-scoped
// audit reads check ownership against the entity's own table.
type GormOwnershipVerifier struct {
	db *gorm.DB
}

// NewGormOwnershipVerifier creates a new GormOwnershipVerifier
func NewGormOwnershipVerifier(db *gorm.DB) *GormOwnershipVerifier {
	return &GormOwnershipVerifier{db: db}
}

// VerifyEntityOwnership reports whether the entity identified by type and ID
// belongs to the organization.
func (v *GormOwnershipVerifier) VerifyEntityOwnership(ctx context.Context, organizationID uuid.UUID, entityType string, entityID uuid.UUID) (bool, error) {
	var model any
	switch entityType {
	case appbilling.EntityTypeInvoice:
		model = &models.InvoiceModel{}
	case appbilling.EntityTypePayment:
		model = &models.PaymentModel{}
	case appbilling.EntityTypePaymentPlan:
		model = &models.PaymentPlanModel{}
	case appbilling.EntityTypeAdjustment:
		model = &models.InvoiceAdjustmentModel{}
	case appidentity.EntityTypeOrganization:
		// An organization owns only its own record
		return organizationID == entityID, nil
	default:
		return false, shared.NewValidationError("unknown entity type %q", entityType)
	}

	var count int64
	if err := v.db.WithContext(ctx).Model(model).
		Where("organization_id = ? AND id = ?", organizationID, entityID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
