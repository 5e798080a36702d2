package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicore/backend/internal/domain/audit"
	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/identity"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService records and refunds payments against invoices. All writes
// run inside a transaction that locks the invoice row, so concurrent payments
// against the same invoice serialize and the derived paid amount never drifts
// from the payment rows.
type PaymentService struct {
	txScope     TransactionScope
	paymentRepo billing.PaymentRepository
	orgRepo     identity.Repository
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	auditor     AuditRecorder
	activity    ActivitySink
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	txScope TransactionScope,
	paymentRepo billing.PaymentRepository,
	orgRepo identity.Repository,
	idempotency shared.IdempotencyStore,
	idemConfig shared.IdempotencyConfig,
	auditor AuditRecorder,
	activity ActivitySink,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		txScope:     txScope,
		paymentRepo: paymentRepo,
		orgRepo:     orgRepo,
		idempotency: idempotency,
		idemConfig:  idemConfig,
		auditor:     auditor,
		activity:    activity,
		logger:      logger,
	}
}

// RecordPayment records a payment against an invoice, updating the invoice's
// paid amount and status, and marking the targeted installment when one is
// given. Payments exceeding the balance due are rejected.
func (s *PaymentService) RecordPayment(ctx context.Context, scope shared.AccessScope, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	if err := ensureOrgActive(ctx, s.orgRepo, organizationID); err != nil {
		return nil, err
	}

	release, err := reserveIdempotencyKey(ctx, s.idempotency, s.idemConfig, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var (
		payment       *billing.Payment
		invoice       *billing.Invoice
		plan          *billing.PaymentPlan
		invoicePrev   audit.Snapshot
		planPrev      audit.Snapshot
		planCompleted bool
	)

	err = s.txScope.Execute(ctx, func(repos TxRepositories) error {
		invoice, err = repos.Invoices().FindByIDForOrgLocked(ctx, organizationID, req.InvoiceID)
		if err != nil {
			return err
		}
		invoicePrev = invoiceSnapshot(invoice)

		switch invoice.Status {
		case billing.InvoiceStatusDraft:
			return shared.NewInvalidStateError("cannot record a payment against a draft invoice")
		case billing.InvoiceStatusCancelled:
			return shared.NewInvalidStateError("cannot record a payment against a cancelled invoice")
		}

		balance := invoice.BalanceDue()
		if req.Amount.GreaterThan(balance) {
			return shared.NewValidationError(
				"payment of %s exceeds the balance due of %s",
				req.Amount.StringFixed(2), balance.StringFixed(2))
		}

		paymentDate := req.PaymentDate
		if paymentDate.IsZero() {
			paymentDate = time.Now()
		}
		payment, err = billing.NewPayment(
			organizationID,
			invoice.ID,
			valueobject.NewMoneyUSD(req.Amount),
			billing.PaymentMethod(req.PaymentMethod),
			paymentDate,
		)
		if err != nil {
			return err
		}
		payment.SetCreatedBy(scope.UserID)
		if req.ReferenceNumber != "" {
			if err := payment.SetReferenceNumber(req.ReferenceNumber); err != nil {
				return err
			}
		}

		if req.InstallmentID != nil {
			plan, err = repos.Plans().FindByInstallment(ctx, organizationID, *req.InstallmentID)
			if err != nil {
				return err
			}
			if plan.InvoiceID != invoice.ID {
				return shared.NewValidationError("installment belongs to a different invoice")
			}
			planPrev = planSnapshot(plan)
			planCompleted, err = plan.MarkInstallmentPaid(*req.InstallmentID)
			if err != nil {
				return err
			}
			if err := payment.AttachInstallment(*req.InstallmentID); err != nil {
				return err
			}
			if err := repos.Plans().Save(ctx, plan); err != nil {
				return err
			}
		}

		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}

		paid, err := repos.Payments().SumNonRefundedForInvoice(ctx, organizationID, invoice.ID)
		if err != nil {
			return err
		}
		invoice.RecomputeStatus(paid)
		return repos.Invoices().Save(ctx, invoice)
	})
	if err != nil {
		release()
		return nil, err
	}

	recordAudit(ctx, s.logger, s.auditor, AuditRecord{
		Actor:       scope,
		Action:      audit.ActionCreate,
		EntityType:  EntityTypePayment,
		EntityID:    payment.ID,
		Next:        paymentSnapshot(payment),
		Description: fmt.Sprintf("Recorded %s payment of %s against invoice %s", payment.PaymentMethod, payment.Amount.StringFixed(2), invoice.InvoiceNumber),
		IPAddress:   req.ClientIP,
	})
	recordAudit(ctx, s.logger, s.auditor, AuditRecord{
		Actor:       scope,
		Action:      audit.ActionUpdate,
		EntityType:  EntityTypeInvoice,
		EntityID:    invoice.ID,
		Previous:    invoicePrev,
		Next:        invoiceSnapshot(invoice),
		Description: "Payment applied",
		IPAddress:   req.ClientIP,
	})
	if plan != nil {
		recordAudit(ctx, s.logger, s.auditor, AuditRecord{
			Actor:       scope,
			Action:      audit.ActionUpdate,
			EntityType:  EntityTypePaymentPlan,
			EntityID:    plan.ID,
			Previous:    planPrev,
			Next:        planSnapshot(plan),
			Description: "Installment paid",
			IPAddress:   req.ClientIP,
		})
	}
	publishActivity(ctx, s.activity, scope, "recorded", EntityTypePayment, payment.ID,
		fmt.Sprintf("Payment of %s recorded against invoice %s", payment.Amount.StringFixed(2), invoice.InvoiceNumber))
	if planCompleted {
		publishActivity(ctx, s.activity, scope, "completed", EntityTypePaymentPlan, plan.ID,
			fmt.Sprintf("Payment plan for invoice %s completed", invoice.InvoiceNumber))
	}

	return &RecordPaymentResult{
		Payment:       *toPaymentResponse(payment),
		InvoiceStatus: invoice.Status.String(),
		PaidAmount:    invoice.PaidAmount,
		BalanceDue:    invoice.BalanceDue(),
		PlanCompleted: planCompleted,
	}, nil
}

// RefundPayment marks a payment as refunded and reverts its effect on the
// invoice's paid amount and status. Installments settled by the payment stay
// settled; the shortfall is re-collected with a regular payment.
func (s *PaymentService) RefundPayment(ctx context.Context, scope shared.AccessScope, paymentID uuid.UUID, req RefundPaymentRequest) (*RecordPaymentResult, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	if err := ensureOrgActive(ctx, s.orgRepo, organizationID); err != nil {
		return nil, err
	}

	var (
		payment     *billing.Payment
		invoice     *billing.Invoice
		paymentPrev audit.Snapshot
		invoicePrev audit.Snapshot
	)

	err = s.txScope.Execute(ctx, func(repos TxRepositories) error {
		payment, err = repos.Payments().FindByIDForOrg(ctx, organizationID, paymentID)
		if err != nil {
			return err
		}

		invoice, err = repos.Invoices().FindByIDForOrgLocked(ctx, organizationID, payment.InvoiceID)
		if err != nil {
			return err
		}

		paymentPrev = paymentSnapshot(payment)
		invoicePrev = invoiceSnapshot(invoice)

		if err := payment.Refund(req.Reason); err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}

		paid, err := repos.Payments().SumNonRefundedForInvoice(ctx, organizationID, invoice.ID)
		if err != nil {
			return err
		}
		invoice.RecomputeStatus(paid)
		return repos.Invoices().Save(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.logger, s.auditor, AuditRecord{
		Actor:       scope,
		Action:      audit.ActionUpdate,
		EntityType:  EntityTypePayment,
		EntityID:    payment.ID,
		Previous:    paymentPrev,
		Next:        paymentSnapshot(payment),
		Description: fmt.Sprintf("Refunded payment: %s", req.Reason),
		IPAddress:   req.ClientIP,
	})
	recordAudit(ctx, s.logger, s.auditor, AuditRecord{
		Actor:       scope,
		Action:      audit.ActionUpdate,
		EntityType:  EntityTypeInvoice,
		EntityID:    invoice.ID,
		Previous:    invoicePrev,
		Next:        invoiceSnapshot(invoice),
		Description: "Payment refunded",
		IPAddress:   req.ClientIP,
	})
	publishActivity(ctx, s.activity, scope, "refunded", EntityTypePayment, payment.ID,
		fmt.Sprintf("Payment of %s refunded on invoice %s", payment.Amount.StringFixed(2), invoice.InvoiceNumber))

	return &RecordPaymentResult{
		Payment:       *toPaymentResponse(payment),
		InvoiceStatus: invoice.Status.String(),
		PaidAmount:    invoice.PaidAmount,
		BalanceDue:    invoice.BalanceDue(),
	}, nil
}

// GetPayment retrieves one payment within the caller's organization
func (s *PaymentService) GetPayment(ctx context.Context, scope shared.AccessScope, paymentID uuid.UUID) (*PaymentResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	payment, err := s.paymentRepo.FindByIDForOrg(ctx, organizationID, paymentID)
	if err != nil {
		return nil, err
	}
	return toPaymentResponse(payment), nil
}

// ListPaymentsForInvoice lists payments recorded against an invoice,
// refunds included
func (s *PaymentService) ListPaymentsForInvoice(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.FindByInvoice(ctx, organizationID, invoiceID, billing.PaymentFilter{
		Filter:         shared.DefaultFilter(),
		IncludeRefunds: true,
	})
	if err != nil {
		return nil, err
	}
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = *toPaymentResponse(&payments[i])
	}
	return responses, nil
}
