package audit

import (
	"context"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter defines filtering options for audit trail queries
type Filter struct {
	shared.Filter
	ActionType *ActionType
}

// Repository persists audit trail entries. The interface is deliberately
// append-plus-read: no update or delete operation exists for this entity.
type Repository interface {
	// Append writes a new entry
	Append(ctx context.Context, entry *Entry) error

	// FindByEntity lists entries for a specific entity
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter Filter) ([]Entry, error)

	// FindByUser lists entries recorded for a specific acting user
	FindByUser(ctx context.Context, userID uuid.UUID, filter Filter) ([]Entry, error)

	// CountByEntity counts entries for a specific entity
	CountByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter Filter) (int64, error)
}
