package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/identity"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockInvoiceRepository is a mock implementation of billing.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForOrgLocked(ctx context.Context, organizationID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumber(ctx context.Context, organizationID uuid.UUID, invoiceNumber string) (*billing.Invoice, error) {
	args := m.Called(ctx, organizationID, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter billing.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) NextInvoiceNumber(ctx context.Context, organizationID uuid.UUID) (string, error) {
	args := m.Called(ctx, organizationID)
	return args.String(0), args.Error(1)
}

func (m *MockInvoiceRepository) ExistsByNumber(ctx context.Context, organizationID uuid.UUID, invoiceNumber string) (bool, error) {
	args := m.Called(ctx, organizationID, invoiceNumber)
	return args.Bool(0), args.Error(1)
}

// MockPaymentRepository is a mock implementation of billing.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID, filter billing.PaymentFilter) ([]billing.Payment, error) {
	args := m.Called(ctx, organizationID, invoiceID, filter)
	return args.Get(0).([]billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SumNonRefundedForInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, organizationID, invoiceID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockPaymentPlanRepository is a mock implementation of billing.PaymentPlanRepository
type MockPaymentPlanRepository struct {
	mock.Mock
}

func (m *MockPaymentPlanRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*billing.PaymentPlan, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentPlan), args.Error(1)
}

func (m *MockPaymentPlanRepository) FindByInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID) ([]billing.PaymentPlan, error) {
	args := m.Called(ctx, organizationID, invoiceID)
	return args.Get(0).([]billing.PaymentPlan), args.Error(1)
}

func (m *MockPaymentPlanRepository) FindByInstallment(ctx context.Context, organizationID, installmentID uuid.UUID) (*billing.PaymentPlan, error) {
	args := m.Called(ctx, organizationID, installmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentPlan), args.Error(1)
}

func (m *MockPaymentPlanRepository) Save(ctx context.Context, plan *billing.PaymentPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

// MockAdjustmentRepository is a mock implementation of billing.AdjustmentRepository
type MockAdjustmentRepository struct {
	mock.Mock
}

func (m *MockAdjustmentRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*billing.InvoiceAdjustment, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.InvoiceAdjustment), args.Error(1)
}

func (m *MockAdjustmentRepository) FindByInvoice(ctx context.Context, organizationID, invoiceID uuid.UUID) ([]billing.InvoiceAdjustment, error) {
	args := m.Called(ctx, organizationID, invoiceID)
	return args.Get(0).([]billing.InvoiceAdjustment), args.Error(1)
}

func (m *MockAdjustmentRepository) Save(ctx context.Context, adjustment *billing.InvoiceAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

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

// =============================================================================
// Mock Supporting Ports
// =============================================================================

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsReserved(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockAuditRecorder captures audit records for assertions
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, rec AuditRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// capturingActivitySink records published activity events in memory
type capturingActivitySink struct {
	events []ActivityEvent
}

func (s *capturingActivitySink) Publish(_ context.Context, event ActivityEvent) {
	s.events = append(s.events, event)
}
