package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/backend/internal/infrastructure/config"
)

func newTestJWTService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-for-billing-core",
		AccessTokenExpiration: expiration,
		Issuer:                "clinicore",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService(time.Hour)
	userID := uuid.New()
	orgID := uuid.New()

	token, err := svc.GenerateToken(GenerateTokenInput{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           "billing_admin",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, orgID.String(), claims.OrganizationID)
	assert.Equal(t, "billing_admin", claims.Role)
	assert.False(t, claims.SuperAdmin)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	svc := newTestJWTService(-time.Minute)

	token, err := svc.GenerateToken(GenerateTokenInput{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Role:           "billing_admin",
	})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_ValidateAccessToken_WrongSecret(t *testing.T) {
	svc := newTestJWTService(time.Hour)
	other := NewJWTService(config.JWTConfig{
		Secret:                "a-completely-different-secret",
		AccessTokenExpiration: time.Hour,
		Issuer:                "clinicore",
	})

	token, err := svc.GenerateToken(GenerateTokenInput{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Role:           "billing_admin",
	})
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateAccessToken_Garbage(t *testing.T) {
	svc := newTestJWTService(time.Hour)

	_, err := svc.ValidateAccessToken("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_SuperAdminWithoutOrganization(t *testing.T) {
	svc := newTestJWTService(time.Hour)
	userID := uuid.New()

	token, err := svc.GenerateToken(GenerateTokenInput{
		UserID:     userID,
		Role:       "super_admin",
		SuperAdmin: true,
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.True(t, claims.SuperAdmin)
	assert.Empty(t, claims.OrganizationID)

	scope, err := claims.ToAccessScope()
	require.NoError(t, err)
	assert.True(t, scope.SuperAdmin)
	assert.Equal(t, userID, scope.UserID)
	assert.Equal(t, uuid.Nil, scope.OrganizationID)
}

func TestJWTService_TenantTokenRequiresOrganization(t *testing.T) {
	svc := newTestJWTService(time.Hour)

	// Non-super-admin token without an organization is rejected at validation
	token, err := svc.GenerateToken(GenerateTokenInput{
		UserID: uuid.New(),
		Role:   "billing_admin",
	})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrMissingOrgID)
}

func TestClaims_ToAccessScope(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()

	claims := &Claims{
		UserID:         userID.String(),
		OrganizationID: orgID.String(),
		Role:           "billing_admin",
	}

	scope, err := claims.ToAccessScope()
	require.NoError(t, err)
	assert.Equal(t, userID, scope.UserID)
	assert.Equal(t, orgID, scope.OrganizationID)
	assert.False(t, scope.SuperAdmin)
}

func TestClaims_ToAccessScope_SuperAdminPinnedOrganization(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()

	claims := &Claims{
		UserID:         userID.String(),
		OrganizationID: orgID.String(),
		Role:           "super_admin",
		SuperAdmin:     true,
	}

	scope, err := claims.ToAccessScope()
	require.NoError(t, err)
	assert.True(t, scope.SuperAdmin)
	assert.Equal(t, orgID, scope.OrganizationID)
}

func TestClaims_ToAccessScope_MalformedIDs(t *testing.T) {
	claims := &Claims{UserID: "not-a-uuid", OrganizationID: uuid.New().String()}
	_, err := claims.ToAccessScope()
	require.ErrorIs(t, err, ErrInvalidClaims)

	claims = &Claims{UserID: uuid.New().String(), OrganizationID: "not-a-uuid"}
	_, err = claims.ToAccessScope()
	require.ErrorIs(t, err, ErrInvalidClaims)
}
