package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// OrgAggregateModel provides common persistence fields for organization-scoped
// aggregate roots. It extends AggregateModel with organization ID and creator info.
type OrgAggregateModel struct {
	AggregateModel
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy      *uuid.UUID `gorm:"type:uuid;index"`
}

// FromDomainOrgAggregateRoot populates OrgAggregateModel from domain OrgAggregateRoot
func (m *OrgAggregateModel) FromDomainOrgAggregateRoot(o shared.OrgAggregateRoot) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrganizationID = o.OrganizationID
	m.CreatedBy = o.CreatedBy
}

// PopulateOrgAggregateRoot populates a domain OrgAggregateRoot from persistence model
func (m *OrgAggregateModel) PopulateOrgAggregateRoot(o *shared.OrgAggregateRoot) {
	o.BaseAggregateRoot.BaseEntity.ID = m.ID
	o.BaseAggregateRoot.BaseEntity.CreatedAt = m.CreatedAt
	o.BaseAggregateRoot.BaseEntity.UpdatedAt = m.UpdatedAt
	o.BaseAggregateRoot.Version = m.Version
	o.OrganizationID = m.OrganizationID
	o.CreatedBy = m.CreatedBy
}
