package billing

import (
	"context"
	"fmt"

	"github.com/clinicore/backend/internal/domain/audit"
	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/identity"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentPlanService schedules invoice balances into installments and settles
// individual installments through the payment service.
type PaymentPlanService struct {
	planRepo    billing.PaymentPlanRepository
	invoiceRepo billing.InvoiceRepository
	orgRepo     identity.Repository
	payments    *PaymentService
	auditor     AuditRecorder
	activity    ActivitySink
	logger      *zap.Logger
}

// NewPaymentPlanService creates a new PaymentPlanService
func NewPaymentPlanService(
	planRepo billing.PaymentPlanRepository,
	invoiceRepo billing.InvoiceRepository,
	orgRepo identity.Repository,
	payments *PaymentService,
	auditor AuditRecorder,
	activity ActivitySink,
	logger *zap.Logger,
) *PaymentPlanService {
	return &PaymentPlanService{
		planRepo:    planRepo,
		invoiceRepo: invoiceRepo,
		orgRepo:     orgRepo,
		payments:    payments,
		auditor:     auditor,
		activity:    activity,
		logger:      logger,
	}
}

// CreatePlan creates a payment plan for an outstanding invoice. Installments
// are generated from the frequency and start date unless explicit installment
// specs are supplied, which are used verbatim.
func (s *PaymentPlanService) CreatePlan(ctx context.Context, scope shared.AccessScope, req CreatePlanRequest) (*PlanResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	if err := ensureOrgActive(ctx, s.orgRepo, organizationID); err != nil {
		return nil, err
	}

	invoice, err := s.invoiceRepo.FindByIDForOrg(ctx, organizationID, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == billing.InvoiceStatusDraft {
		return nil, shared.NewInvalidStateError("cannot create a payment plan for a draft invoice")
	}
	if invoice.Status.IsTerminal() {
		return nil, shared.NewInvalidStateError("cannot create a payment plan for a %s invoice", invoice.Status)
	}

	existing, err := s.planRepo.FindByInvoice(ctx, organizationID, invoice.ID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Status == billing.PlanStatusActive {
			return nil, shared.NewInvalidStateError("invoice %s already has an active payment plan", invoice.InvoiceNumber)
		}
	}

	var specs []billing.InstallmentSpec
	for _, spec := range req.Installments {
		specs = append(specs, billing.InstallmentSpec{
			DueDate: spec.DueDate,
			Amount:  spec.Amount,
		})
	}

	plan, err := billing.NewPaymentPlan(
		organizationID,
		invoice.ID,
		invoice.PatientID,
		billing.PlanFrequency(req.Frequency),
		req.NumberOfInstallments,
		valueobject.NewMoneyUSD(req.InstallmentAmount),
		req.StartDate,
		specs,
	)
	if err != nil {
		return nil, err
	}
	plan.SetCreatedBy(scope.UserID)

	if err := s.planRepo.Save(ctx, plan); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.logger, s.auditor, AuditRecord{
		Actor:       scope,
		Action:      audit.ActionCreate,
		EntityType:  EntityTypePaymentPlan,
		EntityID:    plan.ID,
		Next:        planSnapshot(plan),
		Description: fmt.Sprintf("Created %s payment plan for invoice %s", plan.Frequency, invoice.InvoiceNumber),
		IPAddress:   req.ClientIP,
	})
	publishActivity(ctx, s.activity, scope, "created", EntityTypePaymentPlan, plan.ID,
		fmt.Sprintf("Payment plan with %d installments created for invoice %s", plan.NumberOfInstallments, invoice.InvoiceNumber))

	return toPlanResponse(plan), nil
}

// GetPlan retrieves one payment plan with its installments
func (s *PaymentPlanService) GetPlan(ctx context.Context, scope shared.AccessScope, planID uuid.UUID) (*PlanResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	plan, err := s.planRepo.FindByIDForOrg(ctx, organizationID, planID)
	if err != nil {
		return nil, err
	}
	return toPlanResponse(plan), nil
}

// ListPlansForInvoice lists the payment plans attached to an invoice
func (s *PaymentPlanService) ListPlansForInvoice(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID) ([]PlanResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	plans, err := s.planRepo.FindByInvoice(ctx, organizationID, invoiceID)
	if err != nil {
		return nil, err
	}
	responses := make([]PlanResponse, len(plans))
	for i := range plans {
		responses[i] = *toPlanResponse(&plans[i])
	}
	return responses, nil
}

// PayInstallment settles one installment of a plan by recording a payment
// against the plan's invoice. When no amount is given the installment's
// scheduled amount is used.
func (s *PaymentPlanService) PayInstallment(ctx context.Context, scope shared.AccessScope, planID, installmentID uuid.UUID, req PayInstallmentRequest) (*RecordPaymentResult, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}

	plan, err := s.planRepo.FindByIDForOrg(ctx, organizationID, planID)
	if err != nil {
		return nil, err
	}
	installment := plan.GetInstallmentByID(installmentID)
	if installment == nil {
		return nil, shared.NewNotFoundError("Installment")
	}

	amount := req.Amount
	if amount.IsZero() {
		amount = installment.Amount
	}

	return s.payments.RecordPayment(ctx, scope, RecordPaymentRequest{
		InvoiceID:       plan.InvoiceID,
		Amount:          amount,
		PaymentMethod:   req.PaymentMethod,
		PaymentDate:     req.PaymentDate,
		ReferenceNumber: req.ReferenceNumber,
		InstallmentID:   &installmentID,
		IdempotencyKey:  req.IdempotencyKey,
		ClientIP:        req.ClientIP,
	})
}
