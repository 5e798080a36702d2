package identity

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/backend/internal/domain/shared"
)

func TestNewOrganization(t *testing.T) {
	org, err := NewOrganization("Lakeside Clinic")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, org.ID)
	assert.Equal(t, "Lakeside Clinic", org.Name)
	assert.True(t, org.Active)
}

func TestNewOrganization_Validation(t *testing.T) {
	_, err := NewOrganization("")
	assert.True(t, shared.IsValidation(err))

	_, err = NewOrganization(strings.Repeat("x", 201))
	assert.True(t, shared.IsValidation(err))
}

func TestOrganization_DeactivateActivate(t *testing.T) {
	org, err := NewOrganization("Riverbend Dental")
	require.NoError(t, err)
	initialVersion := org.Version

	org.Deactivate()
	assert.False(t, org.Active)
	assert.Equal(t, initialVersion+1, org.Version)

	// Idempotent: no version bump when already inactive
	org.Deactivate()
	assert.Equal(t, initialVersion+1, org.Version)

	org.Activate()
	assert.True(t, org.Active)
	assert.Equal(t, initialVersion+2, org.Version)

	org.Activate()
	assert.Equal(t, initialVersion+2, org.Version)
}
