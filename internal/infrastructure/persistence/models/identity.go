package models

import (
	"github.com/clinicore/backend/internal/domain/identity"
	"github.com/clinicore/backend/internal/domain/shared"
)

// OrganizationModel is the persistence model for the Organization aggregate root.
type OrganizationModel struct {
	AggregateModel
	Name   string `gorm:"type:varchar(200);not null"`
	Active bool   `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (OrganizationModel) TableName() string {
	return "organizations"
}

// ToDomain converts the persistence model to a domain Organization entity.
func (m *OrganizationModel) ToDomain() *identity.Organization {
	return &identity.Organization{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Name:   m.Name,
		Active: m.Active,
	}
}

// FromDomain populates the persistence model from a domain Organization entity.
func (m *OrganizationModel) FromDomain(org *identity.Organization) {
	m.FromDomainAggregateRoot(org.BaseAggregateRoot)
	m.Name = org.Name
	m.Active = org.Active
}

// OrganizationModelFromDomain creates a new persistence model from a domain Organization.
func OrganizationModelFromDomain(org *identity.Organization) *OrganizationModel {
	m := &OrganizationModel{}
	m.FromDomain(org)
	return m
}
