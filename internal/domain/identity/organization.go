package identity

import (
	"context"
	"time"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Organization represents a tenant: an isolated clinic account that owns all
// financial data transitively. Organizations are created once at signup and
// never deleted by the financial core.
type Organization struct {
	shared.BaseAggregateRoot
	Name   string
	Active bool
}

// NewOrganization creates a new active organization
func NewOrganization(name string) (*Organization, error) {
	if name == "" {
		return nil, shared.NewValidationError("organization name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewValidationError("organization name cannot exceed 200 characters")
	}

	return &Organization{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Active:            true,
	}, nil
}

// Deactivate suspends the organization; financial mutations are rejected
// while inactive
func (o *Organization) Deactivate() {
	if !o.Active {
		return
	}
	o.Active = false
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}

// Activate re-enables a suspended organization
func (o *Organization) Activate() {
	if o.Active {
		return
	}
	o.Active = true
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}

// Repository persists organizations
type Repository interface {
	// FindByID finds an organization by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)

	// Save creates or updates an organization
	Save(ctx context.Context, org *Organization) error
}
