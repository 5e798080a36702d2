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
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
)

type paymentServiceMocks struct {
	invoices *MockInvoiceRepository
	payments *MockPaymentRepository
	plans    *MockPaymentPlanRepository
	orgs     *MockOrganizationRepository
	auditor  *MockAuditRecorder
	activity *capturingActivitySink
}

func newPaymentService(idempotency shared.IdempotencyStore) (*PaymentService, *paymentServiceMocks) {
	m := &paymentServiceMocks{
		invoices: new(MockInvoiceRepository),
		payments: new(MockPaymentRepository),
		plans:    new(MockPaymentPlanRepository),
		orgs:     new(MockOrganizationRepository),
		auditor:  new(MockAuditRecorder),
		activity: new(capturingActivitySink),
	}
	txScope := NewNoOpTransactionScope(m.invoices, m.payments, m.plans, new(MockAdjustmentRepository))
	svc := NewPaymentService(txScope, m.payments, m.orgs, idempotency,
		shared.DefaultIdempotencyConfig(), m.auditor, m.activity, zap.NewNop())
	return svc, m
}

// =============================================================================
// RecordPayment
// =============================================================================

func TestPaymentService_RecordPayment(t *testing.T) {
	orgID := uuid.New()
	svc, m := newPaymentService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)
	m.payments.On("Save", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
	m.payments.On("SumNonRefundedForInvoice", mock.Anything, orgID, inv.ID).
		Return(decimal.NewFromInt(40), nil)
	m.invoices.On("Save", mock.Anything, inv).Return(nil)
	m.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.RecordPayment(context.Background(), testScope(orgID), RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromInt(40),
		PaymentMethod: billing.PaymentMethodCard.String(),
	})

	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusPartial.String(), result.InvoiceStatus)
	assert.True(t, result.PaidAmount.Equal(decimal.NewFromInt(40)))
	assert.True(t, result.BalanceDue.Equal(decimal.NewFromInt(60)))
	assert.False(t, result.PlanCompleted)
	// One audit entry for the payment, one for the invoice update
	m.auditor.AssertNumberOfCalls(t, "Record", 2)
}

func TestPaymentService_RecordPayment_FullPayment(t *testing.T) {
	orgID := uuid.New()
	svc, m := newPaymentService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)
	m.payments.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.payments.On("SumNonRefundedForInvoice", mock.Anything, orgID, inv.ID).
		Return(decimal.NewFromInt(100), nil)
	m.invoices.On("Save", mock.Anything, inv).Return(nil)
	m.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.RecordPayment(context.Background(), testScope(orgID), RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: billing.PaymentMethodCash.String(),
	})

	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusPaid.String(), result.InvoiceStatus)
	assert.True(t, result.BalanceDue.IsZero())
}

func TestPaymentService_RecordPayment_ExceedsBalance(t *testing.T) {
	orgID := uuid.New()
	svc, m := newPaymentService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)

	_, err := svc.RecordPayment(context.Background(), testScope(orgID), RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromFloat(100.01),
		PaymentMethod: billing.PaymentMethodCard.String(),
	})

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	m.payments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPaymentService_RecordPayment_DraftInvoice(t *testing.T) {
	orgID := uuid.New()
	svc, m := newPaymentService(nil)

	inv, err := billing.NewInvoice(orgID, "INV-202401-0009", uuid.New(), time.Now())
	require.NoError(t, err)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)

	_, err = svc.RecordPayment(context.Background(), testScope(orgID), RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromInt(10),
		PaymentMethod: billing.PaymentMethodCash.String(),
	})

	require.Error(t, err)
	assert.True(t, shared.IsInvalidState(err))
}

func TestPaymentService_RecordPayment_CancelledInvoice(t *testing.T) {
	orgID := uuid.New()
	svc, m := newPaymentService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)
	require.NoError(t, inv.Void("entered in error"))

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)

	_, err := svc.RecordPayment(context.Background(), testScope(orgID), RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromInt(10),
		PaymentMethod: billing.PaymentMethodCash.String(),
	})

	require.Error(t, err)
	assert.True(t, shared.IsInvalidState(err))
}

func TestPaymentService_RecordPayment_DuplicateIdempotencyKey(t *testing.T) {
	orgID := uuid.New()
	store := new(MockIdempotencyStore)
	svc, m := newPaymentService(store)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	store.On("Reserve", mock.Anything, "pay-789", mock.Anything).Return(false, nil)

	_, err := svc.RecordPayment(context.Background(), testScope(orgID), RecordPaymentRequest{
		InvoiceID:      uuid.New(),
		Amount:         decimal.NewFromInt(10),
		PaymentMethod:  billing.PaymentMethodCash.String(),
		IdempotencyKey: "pay-789",
	})

	require.ErrorIs(t, err, shared.ErrDuplicateRequest)
	m.invoices.AssertNotCalled(t, "FindByIDForOrgLocked", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_RecordPayment_SettlesInstallment(t *testing.T) {
	orgID := uuid.New()
	svc, m := newPaymentService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)

	plan, err := billing.NewPaymentPlan(orgID, inv.ID, inv.PatientID, billing.FrequencyMonthly,
		1, valueobject.NewMoneyUSDFromFloat(100), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	installmentID := plan.Installments[0].ID

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)
	m.plans.On("FindByInstallment", mock.Anything, orgID, installmentID).Return(plan, nil)
	m.plans.On("Save", mock.Anything, plan).Return(nil)
	m.payments.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.payments.On("SumNonRefundedForInvoice", mock.Anything, orgID, inv.ID).
		Return(decimal.NewFromInt(100), nil)
	m.invoices.On("Save", mock.Anything, inv).Return(nil)
	m.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.RecordPayment(context.Background(), testScope(orgID), RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: billing.PaymentMethodBankTransfer.String(),
		InstallmentID: &installmentID,
	})

	require.NoError(t, err)
	assert.True(t, result.PlanCompleted)
	require.NotNil(t, result.Payment.InstallmentID)
	assert.Equal(t, installmentID, *result.Payment.InstallmentID)
	assert.Equal(t, billing.PlanStatusCompleted, plan.Status)
	// Payment, invoice and plan each get an audit entry
	m.auditor.AssertNumberOfCalls(t, "Record", 3)
}

func TestPaymentService_RecordPayment_InstallmentFromOtherInvoice(t *testing.T) {
	orgID := uuid.New()
	svc, m := newPaymentService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)

	otherPlan, err := billing.NewPaymentPlan(orgID, uuid.New(), uuid.New(), billing.FrequencyWeekly,
		2, valueobject.NewMoneyUSDFromFloat(50), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	installmentID := otherPlan.Installments[0].ID

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)
	m.plans.On("FindByInstallment", mock.Anything, orgID, installmentID).Return(otherPlan, nil)

	_, err = svc.RecordPayment(context.Background(), testScope(orgID), RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromInt(50),
		PaymentMethod: billing.PaymentMethodCash.String(),
		InstallmentID: &installmentID,
	})

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	m.plans.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// =============================================================================
// RefundPayment
// =============================================================================

func TestPaymentService_RefundPayment(t *testing.T) {
	orgID := uuid.New()
	svc, m := newPaymentService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)
	inv.RecomputeStatus(decimal.NewFromInt(100))
	require.Equal(t, billing.InvoiceStatusPaid, inv.Status)

	payment, err := billing.NewPayment(orgID, inv.ID, valueobject.NewMoneyUSDFromFloat(100),
		billing.PaymentMethodCard, time.Now())
	require.NoError(t, err)

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.payments.On("FindByIDForOrg", mock.Anything, orgID, payment.ID).Return(payment, nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)
	m.payments.On("Save", mock.Anything, payment).Return(nil)
	m.payments.On("SumNonRefundedForInvoice", mock.Anything, orgID, inv.ID).
		Return(decimal.Zero, nil)
	m.invoices.On("Save", mock.Anything, inv).Return(nil)
	m.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.RefundPayment(context.Background(), testScope(orgID), payment.ID, RefundPaymentRequest{
		Reason: "insurance resubmission",
	})

	require.NoError(t, err)
	assert.True(t, result.Payment.IsRefunded)
	// Removing the only payment reverts the invoice to SENT
	assert.Equal(t, billing.InvoiceStatusSent.String(), result.InvoiceStatus)
	assert.True(t, result.BalanceDue.Equal(decimal.NewFromInt(100)))
}

func TestPaymentService_RefundPayment_AlreadyRefunded(t *testing.T) {
	orgID := uuid.New()
	svc, m := newPaymentService(nil)
	inv := sentInvoiceFixture(t, orgID, 100)

	payment, err := billing.NewPayment(orgID, inv.ID, valueobject.NewMoneyUSDFromFloat(50),
		billing.PaymentMethodCash, time.Now())
	require.NoError(t, err)
	require.NoError(t, payment.Refund("first refund"))

	m.orgs.On("FindByID", mock.Anything, orgID).Return(activeOrg(t), nil)
	m.payments.On("FindByIDForOrg", mock.Anything, orgID, payment.ID).Return(payment, nil)
	m.invoices.On("FindByIDForOrgLocked", mock.Anything, orgID, inv.ID).Return(inv, nil)

	_, err = svc.RefundPayment(context.Background(), testScope(orgID), payment.ID, RefundPaymentRequest{
		Reason: "second refund",
	})

	require.Error(t, err)
	assert.True(t, shared.IsInvalidState(err))
	m.payments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
