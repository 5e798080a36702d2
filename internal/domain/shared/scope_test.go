package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAccessScope_Validate(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()

	tests := []struct {
		name    string
		scope   AccessScope
		wantErr bool
	}{
		{"tenant scope with org", NewAccessScope(userID, "billing_admin", orgID), false},
		{"super admin without org", NewSuperAdminScope(userID, "super_admin"), false},
		{"tenant scope without org", NewAccessScope(userID, "billing_admin", uuid.Nil), true},
		{"missing user", NewAccessScope(uuid.Nil, "billing_admin", orgID), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scope.Validate()
			if tt.wantErr {
				assert.True(t, IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAccessScope_AppliesTo(t *testing.T) {
	orgID := uuid.New()
	otherOrgID := uuid.New()

	tenant := NewAccessScope(uuid.New(), "billing_admin", orgID)
	assert.True(t, tenant.AppliesTo(orgID))
	assert.False(t, tenant.AppliesTo(otherOrgID))

	superAdmin := NewSuperAdminScope(uuid.New(), "super_admin")
	assert.True(t, superAdmin.AppliesTo(orgID))
	assert.True(t, superAdmin.AppliesTo(otherOrgID))
}
