package shared

import (
	"github.com/google/uuid"
)

// AccessScope identifies the acting user and the organization partition every
// operation must be confined to. Repositories take the organization ID from a
// scope on all reads and force it on all creates; there is no unscoped code
// path reachable without going through the explicit super-admin branch.
type AccessScope struct {
	UserID         uuid.UUID
	Role           string
	OrganizationID uuid.UUID
	SuperAdmin     bool
}

// NewAccessScope creates a scope bound to a single organization
func NewAccessScope(userID uuid.UUID, role string, organizationID uuid.UUID) AccessScope {
	return AccessScope{
		UserID:         userID,
		Role:           role,
		OrganizationID: organizationID,
	}
}

// NewSuperAdminScope creates an unpartitioned scope for platform administrators
func NewSuperAdminScope(userID uuid.UUID, role string) AccessScope {
	return AccessScope{
		UserID:     userID,
		Role:       role,
		SuperAdmin: true,
	}
}

// Validate checks that the scope is usable: a tenant scope must carry an
// organization ID, and every scope must carry the acting user.
func (s AccessScope) Validate() error {
	if s.UserID == uuid.Nil {
		return NewValidationError("acting user is required")
	}
	if !s.SuperAdmin && s.OrganizationID == uuid.Nil {
		return NewValidationError("organization scope is required")
	}
	return nil
}

// AppliesTo reports whether the scope may touch data owned by organizationID
func (s AccessScope) AppliesTo(organizationID uuid.UUID) bool {
	if s.SuperAdmin {
		return true
	}
	return s.OrganizationID == organizationID
}
