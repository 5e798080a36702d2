package audit

import (
	"context"
	"time"

	appbilling "github.com/clinicore/backend/internal/application/billing"
	"github.com/clinicore/backend/internal/domain/audit"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OwnershipVerifier reports whether an audited entity belongs to an
// organization. The audit trail itself stores no organization column, so
// scoped reads resolve ownership through the entity's own table.
type OwnershipVerifier interface {
	VerifyEntityOwnership(ctx context.Context, organizationID uuid.UUID, entityType string, entityID uuid.UUID) (bool, error)
}

// EntryResponse represents an audit trail entry in API responses
type EntryResponse struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	UserRole      string         `json:"user_role"`
	ActionType    string         `json:"action_type"`
	EntityType    string         `json:"entity_type"`
	EntityID      uuid.UUID      `json:"entity_id"`
	PreviousValue audit.Snapshot `json:"previous_value,omitempty"`
	NewValue      audit.Snapshot `json:"new_value,omitempty"`
	Description   string         `json:"description,omitempty"`
	IPAddress     string         `json:"ip_address,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Service appends to and reads from the immutable audit trail. It implements
// the billing layer's AuditRecorder port.
type Service struct {
	repo      audit.Repository
	ownership OwnershipVerifier
}

// NewService creates a new audit Service
func NewService(repo audit.Repository, ownership OwnershipVerifier) *Service {
	return &Service{repo: repo, ownership: ownership}
}

// Record appends one entry to the audit trail
func (s *Service) Record(ctx context.Context, rec appbilling.AuditRecord) error {
	entry, err := audit.NewEntry(
		rec.Actor.UserID,
		rec.Actor.Role,
		rec.Action,
		rec.EntityType,
		rec.EntityID,
		rec.Previous,
		rec.Next,
		rec.Description,
		rec.IPAddress,
	)
	if err != nil {
		return err
	}
	return s.repo.Append(ctx, entry)
}

// ListForEntity returns the audit history of one entity, newest first.
// Callers only see history for entities owned by their organization; super
// admins without an organization binding see everything.
func (s *Service) ListForEntity(ctx context.Context, scope shared.AccessScope, entityType string, entityID uuid.UUID, filter audit.Filter) (*shared.Paginated[EntryResponse], error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if !scope.SuperAdmin || scope.OrganizationID != uuid.Nil {
		owned, err := s.ownership.VerifyEntityOwnership(ctx, scope.OrganizationID, entityType, entityID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, shared.NewNotFoundError(entityType)
		}
	}

	entries, err := s.repo.FindByEntity(ctx, entityType, entityID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountByEntity(ctx, entityType, entityID, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(toEntryResponses(entries), total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListForUser returns the entries a user has produced, newest first.
// Non-super-admins may only query their own activity.
func (s *Service) ListForUser(ctx context.Context, scope shared.AccessScope, userID uuid.UUID, filter audit.Filter) ([]EntryResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if !scope.SuperAdmin && scope.UserID != userID {
		return nil, shared.ErrUnauthorized
	}
	entries, err := s.repo.FindByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return toEntryResponses(entries), nil
}

func toEntryResponses(entries []audit.Entry) []EntryResponse {
	responses := make([]EntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = EntryResponse{
			ID:            e.ID,
			UserID:        e.UserID,
			UserRole:      e.UserRole,
			ActionType:    e.ActionType.String(),
			EntityType:    e.EntityType,
			EntityID:      e.EntityID,
			PreviousValue: e.PreviousValue,
			NewValue:      e.NewValue,
			Description:   e.Description,
			IPAddress:     e.IPAddress,
			CreatedAt:     e.CreatedAt,
		}
	}
	return responses
}
