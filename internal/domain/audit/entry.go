package audit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ActionType classifies the mutating operation an entry records
type ActionType string

const (
	ActionCreate ActionType = "CREATE"
	ActionUpdate ActionType = "UPDATE"
	ActionDelete ActionType = "DELETE"
)

// IsValid checks if the action type is valid
func (a ActionType) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// String returns the string representation of ActionType
func (a ActionType) String() string {
	return string(a)
}

// Snapshot is a JSON document capturing entity state before or after a
// mutation. Stored as jsonb.
type Snapshot map[string]any

// Value implements driver.Valuer for database storage
func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for database retrieval
func (s *Snapshot) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for Snapshot")
	}
}

// Entry is one immutable record in the audit trail. Entries are append-only:
// no core operation updates or deletes them. Unlike the financial aggregates
// an entry carries no organization ID; cross-tenant audit visibility is an
// explicit admin capability, and tenant callers scope responses by the
// entity ids they own.
type Entry struct {
	shared.BaseEntity
	UserID        uuid.UUID  `json:"user_id"`
	UserRole      string     `json:"user_role"`
	ActionType    ActionType `json:"action_type"`
	EntityType    string     `json:"entity_type"`
	EntityID      uuid.UUID  `json:"entity_id"`
	PreviousValue Snapshot   `json:"previous_value,omitempty"`
	NewValue      Snapshot   `json:"new_value,omitempty"`
	Description   string     `json:"description"`
	IPAddress     string     `json:"ip_address,omitempty"`
}

// NewEntry creates a new audit trail entry
func NewEntry(
	userID uuid.UUID,
	userRole string,
	actionType ActionType,
	entityType string,
	entityID uuid.UUID,
	previousValue, newValue Snapshot,
	description string,
	ipAddress string,
) (*Entry, error) {
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("acting user ID is required")
	}
	if !actionType.IsValid() {
		return nil, shared.NewValidationError("action type %q is not valid", actionType)
	}
	if entityType == "" {
		return nil, shared.NewValidationError("entity type cannot be empty")
	}
	if entityID == uuid.Nil {
		return nil, shared.NewValidationError("entity ID cannot be empty")
	}
	if actionType == ActionCreate && newValue == nil {
		return nil, shared.NewValidationError("CREATE entries require a new-value snapshot")
	}
	if actionType == ActionUpdate && previousValue == nil {
		return nil, shared.NewValidationError("UPDATE entries require a previous-value snapshot")
	}

	return &Entry{
		BaseEntity:    shared.NewBaseEntity(),
		UserID:        userID,
		UserRole:      userRole,
		ActionType:    actionType,
		EntityType:    entityType,
		EntityID:      entityID,
		PreviousValue: previousValue,
		NewValue:      newValue,
		Description:   description,
		IPAddress:     ipAddress,
	}, nil
}

// Summary returns a short human-readable description of the entry
func (e *Entry) Summary() string {
	return fmt.Sprintf("%s %s %s", e.ActionType, e.EntityType, e.EntityID)
}
