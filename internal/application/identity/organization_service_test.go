package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicore/backend/internal/domain/identity"
	"github.com/clinicore/backend/internal/domain/shared"
)

// MockOrganizationRepository is a mock implementation of identity.Repository
type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) Save(ctx context.Context, org *identity.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func superAdminScope() shared.AccessScope {
	return shared.NewSuperAdminScope(uuid.New(), "super_admin")
}

func TestOrganizationService_CreateOrganization(t *testing.T) {
	repo := new(MockOrganizationRepository)
	svc := NewOrganizationService(repo, nil, zap.NewNop())

	repo.On("Save", mock.Anything, mock.AnythingOfType("*identity.Organization")).Return(nil)

	resp, err := svc.CreateOrganization(context.Background(), superAdminScope(), CreateOrganizationRequest{
		Name: "Riverbend Dental",
	})

	require.NoError(t, err)
	assert.Equal(t, "Riverbend Dental", resp.Name)
	assert.True(t, resp.Active)
}

func TestOrganizationService_CreateOrganization_RequiresSuperAdmin(t *testing.T) {
	repo := new(MockOrganizationRepository)
	svc := NewOrganizationService(repo, nil, zap.NewNop())

	scope := shared.NewAccessScope(uuid.New(), "billing_admin", uuid.New())
	_, err := svc.CreateOrganization(context.Background(), scope, CreateOrganizationRequest{Name: "Rogue Clinic"})

	require.ErrorIs(t, err, shared.ErrUnauthorized)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrganizationService_CreateOrganization_EmptyName(t *testing.T) {
	svc := NewOrganizationService(new(MockOrganizationRepository), nil, zap.NewNop())

	_, err := svc.CreateOrganization(context.Background(), superAdminScope(), CreateOrganizationRequest{})

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestOrganizationService_GetOrganization_OwnOrganization(t *testing.T) {
	repo := new(MockOrganizationRepository)
	svc := NewOrganizationService(repo, nil, zap.NewNop())

	org, err := identity.NewOrganization("Lakeside Clinic")
	require.NoError(t, err)
	repo.On("FindByID", mock.Anything, org.ID).Return(org, nil)

	scope := shared.NewAccessScope(uuid.New(), "billing_admin", org.ID)
	resp, err := svc.GetOrganization(context.Background(), scope, org.ID)

	require.NoError(t, err)
	assert.Equal(t, org.ID, resp.ID)
}

func TestOrganizationService_GetOrganization_ForeignOrganizationHidden(t *testing.T) {
	repo := new(MockOrganizationRepository)
	svc := NewOrganizationService(repo, nil, zap.NewNop())

	scope := shared.NewAccessScope(uuid.New(), "billing_admin", uuid.New())
	_, err := svc.GetOrganization(context.Background(), scope, uuid.New())

	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestOrganizationService_DeactivateAndActivate(t *testing.T) {
	repo := new(MockOrganizationRepository)
	svc := NewOrganizationService(repo, nil, zap.NewNop())

	org, err := identity.NewOrganization("Lakeside Clinic")
	require.NoError(t, err)
	repo.On("FindByID", mock.Anything, org.ID).Return(org, nil)
	repo.On("Save", mock.Anything, org).Return(nil)

	resp, err := svc.DeactivateOrganization(context.Background(), superAdminScope(), org.ID, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, resp.Active)

	resp, err = svc.ActivateOrganization(context.Background(), superAdminScope(), org.ID, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, resp.Active)
}

func TestOrganizationService_Deactivate_RequiresSuperAdmin(t *testing.T) {
	repo := new(MockOrganizationRepository)
	svc := NewOrganizationService(repo, nil, zap.NewNop())

	scope := shared.NewAccessScope(uuid.New(), "billing_admin", uuid.New())
	_, err := svc.DeactivateOrganization(context.Background(), scope, scope.OrganizationID, "10.0.0.1")

	require.ErrorIs(t, err, shared.ErrUnauthorized)
}
