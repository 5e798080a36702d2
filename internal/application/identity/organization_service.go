package identity

import (
	"context"
	"fmt"
	"time"

	appbilling "github.com/clinicore/backend/internal/application/billing"
	"github.com/clinicore/backend/internal/domain/audit"
	"github.com/clinicore/backend/internal/domain/identity"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntityTypeOrganization is the audit entity type for organizations
const EntityTypeOrganization = "Organization"

// OrganizationResponse represents an organization in API responses
type OrganizationResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// CreateOrganizationRequest represents a request to create an organization
type CreateOrganizationRequest struct {
	Name     string `json:"name" binding:"required"`
	ClientIP string `json:"-"`
}

// OrganizationService manages the organizations that scope all financial
// data. Lifecycle operations are reserved for super admins.
type OrganizationService struct {
	repo    identity.Repository
	auditor appbilling.AuditRecorder
	logger  *zap.Logger
}

// NewOrganizationService creates a new OrganizationService
func NewOrganizationService(repo identity.Repository, auditor appbilling.AuditRecorder, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{repo: repo, auditor: auditor, logger: logger}
}

// CreateOrganization provisions a new active organization
func (s *OrganizationService) CreateOrganization(ctx context.Context, scope shared.AccessScope, req CreateOrganizationRequest) (*OrganizationResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if !scope.SuperAdmin {
		return nil, shared.ErrUnauthorized
	}

	org, err := identity.NewOrganization(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, org); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, scope, audit.ActionCreate, org, nil, fmt.Sprintf("Created organization %s", org.Name), req.ClientIP)
	return toOrganizationResponse(org), nil
}

// GetOrganization retrieves one organization. Non-super-admins may only read
// their own organization.
func (s *OrganizationService) GetOrganization(ctx context.Context, scope shared.AccessScope, organizationID uuid.UUID) (*OrganizationResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if !scope.SuperAdmin && !scope.AppliesTo(organizationID) {
		return nil, shared.NewNotFoundError("Organization")
	}
	org, err := s.repo.FindByID(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return toOrganizationResponse(org), nil
}

// ActivateOrganization re-enables a suspended organization
func (s *OrganizationService) ActivateOrganization(ctx context.Context, scope shared.AccessScope, organizationID uuid.UUID, clientIP string) (*OrganizationResponse, error) {
	return s.setActive(ctx, scope, organizationID, true, clientIP)
}

// DeactivateOrganization suspends an organization, blocking further
// financial mutations
func (s *OrganizationService) DeactivateOrganization(ctx context.Context, scope shared.AccessScope, organizationID uuid.UUID, clientIP string) (*OrganizationResponse, error) {
	return s.setActive(ctx, scope, organizationID, false, clientIP)
}

func (s *OrganizationService) setActive(ctx context.Context, scope shared.AccessScope, organizationID uuid.UUID, active bool, clientIP string) (*OrganizationResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if !scope.SuperAdmin {
		return nil, shared.ErrUnauthorized
	}

	org, err := s.repo.FindByID(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	previous := organizationSnapshot(org)
	verb := "Deactivated"
	if active {
		org.Activate()
		verb = "Activated"
	} else {
		org.Deactivate()
	}
	if err := s.repo.Save(ctx, org); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, scope, audit.ActionUpdate, org, previous, fmt.Sprintf("%s organization %s", verb, org.Name), clientIP)
	return toOrganizationResponse(org), nil
}

func (s *OrganizationService) recordAudit(ctx context.Context, scope shared.AccessScope, action audit.ActionType, org *identity.Organization, previous audit.Snapshot, description, clientIP string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Record(ctx, appbilling.AuditRecord{
		Actor:       scope,
		Action:      action,
		EntityType:  EntityTypeOrganization,
		EntityID:    org.ID,
		Previous:    previous,
		Next:        organizationSnapshot(org),
		Description: description,
		IPAddress:   clientIP,
	})
	if err != nil {
		s.logger.Warn("audit trail write failed",
			zap.String("entity_type", EntityTypeOrganization),
			zap.String("entity_id", org.ID.String()),
			zap.Error(err))
	}
}

func organizationSnapshot(org *identity.Organization) audit.Snapshot {
	return audit.Snapshot{
		"id":     org.ID.String(),
		"name":   org.Name,
		"active": org.Active,
	}
}

func toOrganizationResponse(org *identity.Organization) *OrganizationResponse {
	return &OrganizationResponse{
		ID:        org.ID,
		Name:      org.Name,
		Active:    org.Active,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
		Version:   org.Version,
	}
}
