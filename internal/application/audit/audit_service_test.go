package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appbilling "github.com/clinicore/backend/internal/application/billing"
	"github.com/clinicore/backend/internal/domain/audit"
	"github.com/clinicore/backend/internal/domain/shared"
)

// =============================================================================
// Mocks
// =============================================================================

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter audit.Filter) ([]audit.Entry, error) {
	args := m.Called(ctx, entityType, entityID, filter)
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter audit.Filter) ([]audit.Entry, error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) CountByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter audit.Filter) (int64, error) {
	args := m.Called(ctx, entityType, entityID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockOwnershipVerifier is a mock implementation of OwnershipVerifier
type MockOwnershipVerifier struct {
	mock.Mock
}

func (m *MockOwnershipVerifier) VerifyEntityOwnership(ctx context.Context, organizationID uuid.UUID, entityType string, entityID uuid.UUID) (bool, error) {
	args := m.Called(ctx, organizationID, entityType, entityID)
	return args.Bool(0), args.Error(1)
}

func entryFixture(t *testing.T, userID uuid.UUID, entityID uuid.UUID) audit.Entry {
	t.Helper()
	entry, err := audit.NewEntry(userID, "billing_admin", audit.ActionCreate,
		appbilling.EntityTypeInvoice, entityID, nil,
		audit.Snapshot{"status": "DRAFT"}, "Created invoice INV-202401-0001", "10.0.0.1")
	require.NoError(t, err)
	return *entry
}

// =============================================================================
// Record
// =============================================================================

func TestService_Record(t *testing.T) {
	repo := new(MockAuditRepository)
	svc := NewService(repo, new(MockOwnershipVerifier))

	var appended *audit.Entry
	repo.On("Append", mock.Anything, mock.AnythingOfType("*audit.Entry")).
		Run(func(args mock.Arguments) { appended = args.Get(1).(*audit.Entry) }).
		Return(nil)

	scope := shared.NewAccessScope(uuid.New(), "billing_admin", uuid.New())
	entityID := uuid.New()
	err := svc.Record(context.Background(), appbilling.AuditRecord{
		Actor:       scope,
		Action:      audit.ActionCreate,
		EntityType:  appbilling.EntityTypeInvoice,
		EntityID:    entityID,
		Next:        audit.Snapshot{"status": "DRAFT"},
		Description: "Created invoice",
		IPAddress:   "10.0.0.1",
	})

	require.NoError(t, err)
	require.NotNil(t, appended)
	assert.Equal(t, scope.UserID, appended.UserID)
	assert.Equal(t, "billing_admin", appended.UserRole)
	assert.Equal(t, entityID, appended.EntityID)
}

func TestService_Record_InvalidEntry(t *testing.T) {
	repo := new(MockAuditRepository)
	svc := NewService(repo, new(MockOwnershipVerifier))

	// UPDATE entries without a previous-value snapshot are rejected
	err := svc.Record(context.Background(), appbilling.AuditRecord{
		Actor:      shared.NewAccessScope(uuid.New(), "billing_admin", uuid.New()),
		Action:     audit.ActionUpdate,
		EntityType: appbilling.EntityTypeInvoice,
		EntityID:   uuid.New(),
		Next:       audit.Snapshot{"status": "SENT"},
	})

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

// =============================================================================
// ListForEntity
// =============================================================================

func TestService_ListForEntity(t *testing.T) {
	repo := new(MockAuditRepository)
	ownership := new(MockOwnershipVerifier)
	svc := NewService(repo, ownership)

	orgID := uuid.New()
	scope := shared.NewAccessScope(uuid.New(), "billing_admin", orgID)
	entityID := uuid.New()
	filter := audit.Filter{Filter: shared.DefaultFilter()}

	ownership.On("VerifyEntityOwnership", mock.Anything, orgID, appbilling.EntityTypeInvoice, entityID).
		Return(true, nil)
	repo.On("FindByEntity", mock.Anything, appbilling.EntityTypeInvoice, entityID, filter).
		Return([]audit.Entry{entryFixture(t, scope.UserID, entityID)}, nil)
	repo.On("CountByEntity", mock.Anything, appbilling.EntityTypeInvoice, entityID, filter).
		Return(int64(1), nil)

	page, err := svc.ListForEntity(context.Background(), scope, appbilling.EntityTypeInvoice, entityID, filter)

	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, entityID, page.Items[0].EntityID)
}

func TestService_ListForEntity_ForeignEntityHidden(t *testing.T) {
	repo := new(MockAuditRepository)
	ownership := new(MockOwnershipVerifier)
	svc := NewService(repo, ownership)

	orgID := uuid.New()
	entityID := uuid.New()
	ownership.On("VerifyEntityOwnership", mock.Anything, orgID, appbilling.EntityTypeInvoice, entityID).
		Return(false, nil)

	// An entity owned by another organization reads as not found, not forbidden
	_, err := svc.ListForEntity(context.Background(),
		shared.NewAccessScope(uuid.New(), "billing_admin", orgID),
		appbilling.EntityTypeInvoice, entityID, audit.Filter{Filter: shared.DefaultFilter()})

	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
	repo.AssertNotCalled(t, "FindByEntity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ListForEntity_SuperAdminSkipsOwnership(t *testing.T) {
	repo := new(MockAuditRepository)
	ownership := new(MockOwnershipVerifier)
	svc := NewService(repo, ownership)

	entityID := uuid.New()
	filter := audit.Filter{Filter: shared.DefaultFilter()}
	repo.On("FindByEntity", mock.Anything, appbilling.EntityTypeInvoice, entityID, filter).
		Return([]audit.Entry{}, nil)
	repo.On("CountByEntity", mock.Anything, appbilling.EntityTypeInvoice, entityID, filter).
		Return(int64(0), nil)

	_, err := svc.ListForEntity(context.Background(),
		shared.NewSuperAdminScope(uuid.New(), "super_admin"),
		appbilling.EntityTypeInvoice, entityID, filter)

	require.NoError(t, err)
	ownership.AssertNotCalled(t, "VerifyEntityOwnership", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// =============================================================================
// ListForUser
// =============================================================================

func TestService_ListForUser_OwnActivity(t *testing.T) {
	repo := new(MockAuditRepository)
	svc := NewService(repo, new(MockOwnershipVerifier))

	userID := uuid.New()
	scope := shared.NewAccessScope(userID, "billing_admin", uuid.New())
	filter := audit.Filter{Filter: shared.DefaultFilter()}
	repo.On("FindByUser", mock.Anything, userID, filter).
		Return([]audit.Entry{entryFixture(t, userID, uuid.New())}, nil)

	entries, err := svc.ListForUser(context.Background(), scope, userID, filter)

	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestService_ListForUser_OtherUserRejected(t *testing.T) {
	repo := new(MockAuditRepository)
	svc := NewService(repo, new(MockOwnershipVerifier))

	scope := shared.NewAccessScope(uuid.New(), "billing_admin", uuid.New())
	_, err := svc.ListForUser(context.Background(), scope, uuid.New(), audit.Filter{Filter: shared.DefaultFilter()})

	require.ErrorIs(t, err, shared.ErrUnauthorized)
	repo.AssertNotCalled(t, "FindByUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ListForUser_SuperAdminMayQueryAnyone(t *testing.T) {
	repo := new(MockAuditRepository)
	svc := NewService(repo, new(MockOwnershipVerifier))

	userID := uuid.New()
	filter := audit.Filter{Filter: shared.DefaultFilter()}
	repo.On("FindByUser", mock.Anything, userID, filter).Return([]audit.Entry{}, nil)

	_, err := svc.ListForUser(context.Background(),
		shared.NewSuperAdminScope(uuid.New(), "super_admin"), userID, filter)

	require.NoError(t, err)
}
