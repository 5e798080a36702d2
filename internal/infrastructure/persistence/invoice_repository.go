package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice with items without organization scoping.
// Reachable only from super-admin code paths.
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Invoice")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForOrg finds an invoice with items owned by the organization
func (r *GormInvoiceRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Invoice")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForOrgLocked finds an invoice with a FOR UPDATE row lock.
// Only meaningful inside a transaction; the lock is held until commit.
func (r *GormInvoiceRepository) FindByIDForOrgLocked(ctx context.Context, organizationID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Invoice")
		}
		return nil, err
	}

	// Items are loaded separately: FOR UPDATE cannot be combined with the
	// preload join and the lock only needs the invoice row.
	var items []models.InvoiceItemModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", id).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	model.Items = items

	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its number within an organization
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, organizationID uuid.UUID, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("organization_id = ? AND invoice_number = ?", organizationID, invoiceNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Invoice")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForOrg lists invoices for an organization with filtering
func (r *GormInvoiceRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Preload("Items").
		Where("organization_id = ?", organizationID)
	query = r.applyFilter(query, filter)
	query = r.applyPagination(query, filter)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// CountForOrg counts invoices matching the filter
func (r *GormInvoiceRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("organization_id = ?", organizationID)
	query = r.applyFilter(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an invoice together with its items. A duplicate
// invoice number surfaces as a concurrency conflict so the caller can retry
// with a fresh candidate.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	if err := r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeConcurrencyConflict,
				fmt.Sprintf("invoice number %s is already taken", invoice.InvoiceNumber))
		}
		return err
	}

	// FullSaveAssociations upserts the items still on the aggregate but never
	// deletes rows for items that were removed; prune them so the next load
	// matches the aggregate.
	kept := make([]uuid.UUID, len(model.Items))
	for i := range model.Items {
		kept[i] = model.Items[i].ID
	}
	prune := r.db.WithContext(ctx).Where("invoice_id = ?", model.ID)
	if len(kept) > 0 {
		prune = prune.Where("id NOT IN ?", kept)
	}
	return prune.Delete(&models.InvoiceItemModel{}).Error
}

// NextInvoiceNumber produces the next candidate number in the form
// INV-YYYYMM-NNNNN, per organization per month. Uniqueness is enforced by the
// database index; a concurrent writer taking the same candidate makes Save
// fail with a conflict and the caller retries.
func (r *GormInvoiceRepository) NextInvoiceNumber(ctx context.Context, organizationID uuid.UUID) (string, error) {
	now := time.Now()
	prefix := fmt.Sprintf("INV-%s-", now.Format("200601"))

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("organization_id = ? AND invoice_number LIKE ?", organizationID, prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// ExistsByNumber reports whether the number is already taken in the organization
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, organizationID uuid.UUID, invoiceNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("organization_id = ? AND invoice_number = ?", organizationID, invoiceNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies invoice filter conditions to the query
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.FromDate != nil {
		query = query.Where("issued_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("issued_date <= ?", *filter.ToDate)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date IS NOT NULL AND due_date < ?", *filter.DueBefore)
	}
	return query
}

// applyPagination applies ordering and paging to the query
func (r *GormInvoiceRepository) applyPagination(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}
