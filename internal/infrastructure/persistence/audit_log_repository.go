package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clinicore/backend/internal/domain/audit"
	"github.com/clinicore/backend/internal/infrastructure/persistence/models"
)

// GormAuditLogRepository implements audit.Repository using GORM. The table is
// append-only: no update or delete path exists here.
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append writes a new audit entry
func (r *GormAuditLogRepository) Append(ctx context.Context, entry *audit.Entry) error {
	model := models.AuditLogModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByEntity lists entries for a specific entity
func (r *GormAuditLogRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter audit.Filter) ([]audit.Entry, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLogModel{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	return r.findEntries(query, filter)
}

// FindByUser lists entries recorded for a specific acting user
func (r *GormAuditLogRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter audit.Filter) ([]audit.Entry, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLogModel{}).
		Where("user_id = ?", userID)
	return r.findEntries(query, filter)
}

// CountByEntity counts entries for a specific entity
func (r *GormAuditLogRepository) CountByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter audit.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.AuditLogModel{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	if filter.ActionType != nil {
		query = query.Where("action_type = ?", *filter.ActionType)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormAuditLogRepository) findEntries(query *gorm.DB, filter audit.Filter) ([]audit.Entry, error) {
	if filter.ActionType != nil {
		query = query.Where("action_type = ?", *filter.ActionType)
	}

	orderBy := ValidateSortField(filter.OrderBy, AuditSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var entryModels []models.AuditLogModel
	if err := query.Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]audit.Entry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return entries, nil
}
