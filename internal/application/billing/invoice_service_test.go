package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/identity"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
)

// =============================================================================
// Test Fixtures
// =============================================================================

func testScope(organizationID uuid.UUID) shared.AccessScope {
	return shared.NewAccessScope(uuid.New(), "billing_admin", organizationID)
}

func activeOrg(t *testing.T) *identity.Organization {
	t.Helper()
	org, err := identity.NewOrganization("Lakeside Clinic")
	require.NoError(t, err)
	return org
}

func inactiveOrg(t *testing.T) *identity.Organization {
	t.Helper()
	org := activeOrg(t)
	org.Deactivate()
	return org
}

func sentInvoiceFixture(t *testing.T, organizationID uuid.UUID, amount float64) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(organizationID, "INV-202401-0001", uuid.New(),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = inv.AddItem("Consultation", 1, valueobject.NewMoneyUSDFromFloat(amount))
	require.NoError(t, err)
	require.NoError(t, inv.Send())
	return inv
}

type invoiceServiceMocks struct {
	invoices    *MockInvoiceRepository
	payments    *MockPaymentRepository
	adjustments *MockAdjustmentRepository
	orgs        *MockOrganizationRepository
	auditor     *MockAuditRecorder
	activity    *capturingActivitySink
}

func newInvoiceService(idempotency shared.IdempotencyStore) (*InvoiceService, *invoiceServiceMocks) {
	m := &invoiceServiceMocks{
		invoices:    new(MockInvoiceRepository),
		payments:    new(MockPaymentRepository),
		adjustments: new(MockAdjustmentRepository),
		orgs:        new(MockOrganizationRepository),
		auditor:     new(MockAuditRecorder),
		activity:    new(capturingActivitySink),
	}
	txScope := NewNoOpTransactionScope(m.invoices, m.payments, new(MockPaymentPlanRepository), m.adjustments)
	svc := NewInvoiceService(txScope, m.invoices, m.payments, m.adjustments, m.orgs,
		idempotency, shared.DefaultIdempotencyConfig(), m.auditor, m.activity, zap.NewNop())
	return svc, m
}

// =============================================================================
// CreateInvoice
// =============================================================================

func TestInvoiceService_CreateInvoice(t *testing.T) {
	orgID := uuid.New()
	scope := testScope(orgID)
	svc, m := newInvoiceService(nil)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("NextInvoiceNumber", mock.Anything, orgID).Return("INV-202401-0042", nil)
	m.invoices.On("Save", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)
	m.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.CreateInvoice(context.Background(), scope, CreateInvoiceRequest{
		PatientID: uuid.New(),
		Items: []InvoiceItemRequest{
			{Description: "Cleaning", Quantity: 1, UnitPrice: decimal.NewFromInt(80)},
			{Description: "X-ray", Quantity: 2, UnitPrice: decimal.NewFromInt(35)},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "INV-202401-0042", resp.InvoiceNumber)
	assert.Equal(t, orgID, resp.OrganizationID)
	assert.Equal(t, billing.InvoiceStatusDraft.String(), resp.Status)
	assert.True(t, resp.FinalAmount.Equal(decimal.NewFromInt(150)))
	assert.Len(t, resp.Items, 2)
	assert.Len(t, m.activity.events, 1)
	m.auditor.AssertCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestInvoiceService_CreateInvoice_WithDiscount(t *testing.T) {
	orgID := uuid.New()
	svc, m := newInvoiceService(nil)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("NextInvoiceNumber", mock.Anything, orgID).Return("INV-202401-0042", nil)
	m.invoices.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.CreateInvoice(context.Background(), testScope(orgID), CreateInvoiceRequest{
		PatientID: uuid.New(),
		Items: []InvoiceItemRequest{
			{Description: "Crown", Quantity: 1, UnitPrice: decimal.NewFromInt(200)},
		},
		DiscountType:  billing.DiscountTypePercentage.String(),
		DiscountValue: decimal.NewFromInt(10),
	})

	require.NoError(t, err)
	assert.True(t, resp.FinalAmount.Equal(decimal.NewFromInt(180)), "expected 180, got %s", resp.FinalAmount)
}

func TestInvoiceService_CreateInvoice_RetriesNumberConflict(t *testing.T) {
	orgID := uuid.New()
	svc, m := newInvoiceService(nil)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("NextInvoiceNumber", mock.Anything, orgID).Return("INV-202401-0042", nil).Once()
	m.invoices.On("NextInvoiceNumber", mock.Anything, orgID).Return("INV-202401-0043", nil).Once()
	m.invoices.On("Save", mock.Anything, mock.Anything).
		Return(shared.NewDomainError(shared.CodeConcurrencyConflict, "duplicate invoice number")).Once()
	m.invoices.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	m.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.CreateInvoice(context.Background(), testScope(orgID), CreateInvoiceRequest{
		PatientID: uuid.New(),
		Items:     []InvoiceItemRequest{{Description: "Exam", Quantity: 1, UnitPrice: decimal.NewFromInt(50)}},
	})

	require.NoError(t, err)
	assert.Equal(t, "INV-202401-0043", resp.InvoiceNumber)
	m.invoices.AssertNumberOfCalls(t, "NextInvoiceNumber", 2)
}

func TestInvoiceService_CreateInvoice_EmptyItems(t *testing.T) {
	orgID := uuid.New()
	svc, m := newInvoiceService(nil)

	_, err := svc.CreateInvoice(context.Background(), testScope(orgID), CreateInvoiceRequest{
		PatientID: uuid.New(),
		Items:     nil,
	})

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	m.invoices.AssertNotCalled(t, "NextInvoiceNumber", mock.Anything, mock.Anything)
	m.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	m.auditor.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestInvoiceService_CreateInvoice_DuplicateIdempotencyKey(t *testing.T) {
	orgID := uuid.New()
	store := new(MockIdempotencyStore)
	svc, m := newInvoiceService(store)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	store.On("Reserve", mock.Anything, "req-123", mock.Anything).Return(false, nil)

	_, err := svc.CreateInvoice(context.Background(), testScope(orgID), CreateInvoiceRequest{
		PatientID:      uuid.New(),
		Items:          []InvoiceItemRequest{{Description: "Exam", Quantity: 1, UnitPrice: decimal.NewFromInt(50)}},
		IdempotencyKey: "req-123",
	})

	require.ErrorIs(t, err, shared.ErrDuplicateRequest)
	m.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestInvoiceService_CreateInvoice_ReleasesKeyOnFailure(t *testing.T) {
	orgID := uuid.New()
	store := new(MockIdempotencyStore)
	svc, m := newInvoiceService(store)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	store.On("Reserve", mock.Anything, "req-456", mock.Anything).Return(true, nil)
	store.On("Release", mock.Anything, "req-456").Return(nil)
	m.invoices.On("NextInvoiceNumber", mock.Anything, orgID).Return("", assert.AnError)

	_, err := svc.CreateInvoice(context.Background(), testScope(orgID), CreateInvoiceRequest{
		PatientID:      uuid.New(),
		Items:          []InvoiceItemRequest{{Description: "Exam", Quantity: 1, UnitPrice: decimal.NewFromInt(50)}},
		IdempotencyKey: "req-456",
	})

	require.Error(t, err)
	store.AssertCalled(t, "Release", mock.Anything, "req-456")
}

func TestInvoiceService_CreateInvoice_InactiveOrganization(t *testing.T) {
	orgID := uuid.New()
	svc, m := newInvoiceService(nil)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(inactiveOrg(t), nil)

	_, err := svc.CreateInvoice(context.Background(), testScope(orgID), CreateInvoiceRequest{
		PatientID: uuid.New(),
		Items:     []InvoiceItemRequest{{Description: "Exam", Quantity: 1, UnitPrice: decimal.NewFromInt(50)}},
	})

	require.Error(t, err)
	assert.True(t, shared.IsInvalidState(err))
}

func TestInvoiceService_CreateInvoice_RequiresOrganizationScope(t *testing.T) {
	svc, _ := newInvoiceService(nil)

	// A super admin without an organization binding cannot create financial records
	scope := shared.NewSuperAdminScope(uuid.New(), "super_admin")
	_, err := svc.CreateInvoice(context.Background(), scope, CreateInvoiceRequest{
		PatientID: uuid.New(),
		Items:     []InvoiceItemRequest{{Description: "Exam", Quantity: 1, UnitPrice: decimal.NewFromInt(50)}},
	})

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

// =============================================================================
// Mutations
// =============================================================================

func TestInvoiceService_SendInvoice(t *testing.T) {
	orgID := uuid.New()
	svc, m := newInvoiceService(nil)

	inv, err := billing.NewInvoice(orgID, "INV-202401-0007", uuid.New(), time.Now())
	require.NoError(t, err)
	_, err = inv.AddItem("Filling", 1, valueobject.NewMoneyUSDFromFloat(95))
	require.NoError(t, err)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)
	m.invoices.On("Save", mock.Anything, inv).Return(nil)
	m.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.SendInvoice(context.Background(), testScope(orgID), inv.ID, "10.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusSent.String(), resp.Status)
	assert.Len(t, m.activity.events, 1)
}

func TestInvoiceService_AddItem_SerializesOnLockedInvoice(t *testing.T) {
	orgID := uuid.New()
	svc, m := newInvoiceService(nil)

	inv, err := billing.NewInvoice(orgID, "INV-202401-0008", uuid.New(), time.Now())
	require.NoError(t, err)
	_, err = inv.AddItem("Cleaning", 1, valueobject.NewMoneyUSDFromFloat(80))
	require.NoError(t, err)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)
	m.invoices.On("Save", mock.Anything, inv).Return(nil)
	m.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.AddItem(context.Background(), testScope(orgID), inv.ID, InvoiceItemRequest{
		Description: "X-ray",
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(45),
	})

	require.NoError(t, err)
	assert.True(t, resp.FinalAmount.Equal(decimal.NewFromInt(125)))
	// The recompute runs against the row-locked read, never the plain one
	m.invoices.AssertNotCalled(t, "FindByIDForOrg", mock.Anything, mock.Anything, mock.Anything)
	m.invoices.AssertCalled(t, "FindByIDForOrgLocked", mock.Anything, orgID, inv.ID)
}

func TestInvoiceService_AddItem_RejectedAfterSend(t *testing.T) {
	orgID := uuid.New()
	svc, m := newInvoiceService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)

	_, err := svc.AddItem(context.Background(), testScope(orgID), inv.ID, InvoiceItemRequest{
		Description: "Extra",
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(10),
	})

	require.Error(t, err)
	assert.True(t, shared.IsInvalidState(err))
	m.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestInvoiceService_VoidInvoice(t *testing.T) {
	orgID := uuid.New()
	svc, m := newInvoiceService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)
	m.invoices.On("Save", mock.Anything, inv).Return(nil)
	m.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.VoidInvoice(context.Background(), testScope(orgID), inv.ID, VoidInvoiceRequest{
		Reason: "duplicate entry",
	})

	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusCancelled.String(), resp.Status)
}

// =============================================================================
// Queries
// =============================================================================

func TestInvoiceService_GetInvoice_SuperAdminCrossesOrganizations(t *testing.T) {
	svc, m := newInvoiceService(nil)
	inv := sentInvoiceFixture(t, uuid.New(), 100)

	m.invoices.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

	scope := shared.NewSuperAdminScope(uuid.New(), "super_admin")
	resp, err := svc.GetInvoice(context.Background(), scope, inv.ID)

	require.NoError(t, err)
	assert.Equal(t, inv.ID, resp.ID)
	m.invoices.AssertNotCalled(t, "FindByIDForOrg", mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoiceService_GetInvoice_TenantScoped(t *testing.T) {
	orgID := uuid.New()
	svc, m := newInvoiceService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)

	m.invoices.On("FindByIDForOrg", mock.Anything, orgID, inv.ID).Return(inv, nil)

	resp, err := svc.GetInvoice(context.Background(), testScope(orgID), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, inv.ID, resp.ID)
	m.invoices.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestInvoiceService_ListInvoices_InvalidStatus(t *testing.T) {
	svc, _ := newInvoiceService(nil)

	_, err := svc.ListInvoices(context.Background(), testScope(uuid.New()), InvoiceListFilter{
		Status: "SHIPPED",
	})

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestInvoiceService_ListInvoices_OverdueFilter(t *testing.T) {
	orgID := uuid.New()
	svc, m := newInvoiceService(nil)

	var captured billing.InvoiceFilter
	m.invoices.On("FindAllForOrg", mock.Anything, orgID, mock.MatchedBy(func(f billing.InvoiceFilter) bool {
		captured = f
		return true
	})).Return([]billing.Invoice{}, nil)
	m.invoices.On("CountForOrg", mock.Anything, orgID, mock.Anything).Return(int64(0), nil)

	_, err := svc.ListInvoices(context.Background(), testScope(orgID), InvoiceListFilter{Overdue: true})

	require.NoError(t, err)
	require.NotNil(t, captured.DueBefore)
	assert.ElementsMatch(t, []billing.InvoiceStatus{billing.InvoiceStatusSent, billing.InvoiceStatusPartial}, captured.Statuses)
}

func TestInvoiceService_GetInvoiceSummary(t *testing.T) {
	orgID := uuid.New()
	svc, m := newInvoiceService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)

	payment, err := billing.NewPayment(orgID, inv.ID, valueobject.NewMoneyUSDFromFloat(40),
		billing.PaymentMethodCard, time.Now())
	require.NoError(t, err)
	refunded, err := billing.NewPayment(orgID, inv.ID, valueobject.NewMoneyUSDFromFloat(20),
		billing.PaymentMethodCash, time.Now())
	require.NoError(t, err)
	require.NoError(t, refunded.Refund("charge disputed"))

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrg", mock.Anything, orgID, inv.ID).Return(inv, nil)
	m.payments.On("FindByInvoice", mock.Anything, orgID, inv.ID, mock.Anything).
		Return([]billing.Payment{*payment, *refunded}, nil)
	m.adjustments.On("FindByInvoice", mock.Anything, orgID, inv.ID).
		Return([]billing.InvoiceAdjustment{}, nil)

	summary, err := svc.GetInvoiceSummary(context.Background(), testScope(orgID), inv.ID)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.PaymentCount)
	assert.Equal(t, 1, summary.RefundedCount)
	assert.True(t, summary.BalanceDue.Equal(decimal.NewFromInt(100)))
}
