package models

import (
	"github.com/google/uuid"

	"github.com/clinicore/backend/internal/domain/audit"
)

// AuditLogModel is the persistence model for audit trail entries. Entries
// deliberately carry no organization column; ownership of the referenced
// entity decides visibility at query time.
type AuditLogModel struct {
	BaseModel
	UserID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	UserRole      string           `gorm:"type:varchar(50);not null"`
	ActionType    audit.ActionType `gorm:"type:varchar(20);not null;index"`
	EntityType    string           `gorm:"type:varchar(50);not null;index:idx_audit_entity,priority:1"`
	EntityID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_audit_entity,priority:2"`
	PreviousValue audit.Snapshot   `gorm:"type:jsonb"`
	NewValue      audit.Snapshot   `gorm:"type:jsonb"`
	Description   string           `gorm:"type:varchar(500)"`
	IPAddress     string           `gorm:"type:varchar(45)"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain audit Entry.
func (m *AuditLogModel) ToDomain() *audit.Entry {
	return &audit.Entry{
		BaseEntity:    m.BaseModel.ToDomain(),
		UserID:        m.UserID,
		UserRole:      m.UserRole,
		ActionType:    m.ActionType,
		EntityType:    m.EntityType,
		EntityID:      m.EntityID,
		PreviousValue: m.PreviousValue,
		NewValue:      m.NewValue,
		Description:   m.Description,
		IPAddress:     m.IPAddress,
	}
}

// FromDomain populates the persistence model from a domain audit Entry.
func (m *AuditLogModel) FromDomain(e *audit.Entry) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.UserID = e.UserID
	m.UserRole = e.UserRole
	m.ActionType = e.ActionType
	m.EntityType = e.EntityType
	m.EntityID = e.EntityID
	m.PreviousValue = e.PreviousValue
	m.NewValue = e.NewValue
	m.Description = e.Description
	m.IPAddress = e.IPAddress
}

// AuditLogModelFromDomain creates a new persistence model from a domain audit Entry.
func AuditLogModelFromDomain(e *audit.Entry) *AuditLogModel {
	m := &AuditLogModel{}
	m.FromDomain(e)
	return m
}
