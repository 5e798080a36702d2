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

// AdjustmentService applies write-offs, discounts, corrections and fees to
// issued invoices. Adjustments are append-only; they change the balance due
// but never rewrite the invoice's totals or status.
type AdjustmentService struct {
	txScope        TransactionScope
	adjustmentRepo billing.AdjustmentRepository
	orgRepo        identity.Repository
	auditor        AuditRecorder
	activity       ActivitySink
	logger         *zap.Logger
}

// NewAdjustmentService creates a new AdjustmentService
func NewAdjustmentService(
	txScope TransactionScope,
	adjustmentRepo billing.AdjustmentRepository,
	orgRepo identity.Repository,
	auditor AuditRecorder,
	activity ActivitySink,
	logger *zap.Logger,
) *AdjustmentService {
	return &AdjustmentService{
		txScope:        txScope,
		adjustmentRepo: adjustmentRepo,
		orgRepo:        orgRepo,
		auditor:        auditor,
		activity:       activity,
		logger:         logger,
	}
}

// ApplyAdjustment applies an adjustment to an invoice that is not paid or
// cancelled
func (s *AdjustmentService) ApplyAdjustment(ctx context.Context, scope shared.AccessScope, req ApplyAdjustmentRequest) (*AdjustmentResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	if err := ensureOrgActive(ctx, s.orgRepo, organizationID); err != nil {
		return nil, err
	}

	appliedDate := req.AppliedDate
	if appliedDate.IsZero() {
		appliedDate = time.Now()
	}

	var (
		adjustment  *billing.InvoiceAdjustment
		invoice     *billing.Invoice
		invoicePrev audit.Snapshot
	)
	err = s.txScope.Execute(ctx, func(repos TxRepositories) error {
		invoice, err = repos.Invoices().FindByIDForOrgLocked(ctx, organizationID, req.InvoiceID)
		if err != nil {
			return err
		}
		invoicePrev = invoiceSnapshot(invoice)

		adjustment, err = billing.NewInvoiceAdjustment(
			organizationID,
			invoice.ID,
			billing.AdjustmentType(req.Type),
			valueobject.NewMoneyUSD(req.Amount),
			req.Reason,
			appliedDate,
			scope.UserID,
		)
		if err != nil {
			return err
		}

		if err := invoice.RegisterAdjustment(adjustment.BalanceEffect()); err != nil {
			return err
		}
		if err := repos.Adjustments().Save(ctx, adjustment); err != nil {
			return err
		}
		return repos.Invoices().Save(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.recordAdjustmentAudit(ctx, scope, adjustment, invoice, invoicePrev, req.ClientIP)
	return toAdjustmentResponse(adjustment), nil
}

// WriteOff writes off an invoice's entire outstanding balance
func (s *AdjustmentService) WriteOff(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID, req WriteOffRequest) (*AdjustmentResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	if err := ensureOrgActive(ctx, s.orgRepo, organizationID); err != nil {
		return nil, err
	}

	var (
		adjustment  *billing.InvoiceAdjustment
		invoice     *billing.Invoice
		invoicePrev audit.Snapshot
	)
	err = s.txScope.Execute(ctx, func(repos TxRepositories) error {
		invoice, err = repos.Invoices().FindByIDForOrgLocked(ctx, organizationID, invoiceID)
		if err != nil {
			return err
		}
		invoicePrev = invoiceSnapshot(invoice)

		balance := invoice.BalanceDue()
		if !balance.IsPositive() {
			return shared.NewValidationError("invoice %s has no outstanding balance to write off", invoice.InvoiceNumber)
		}

		adjustment, err = billing.NewInvoiceAdjustment(
			organizationID,
			invoice.ID,
			billing.AdjustmentTypeWriteOff,
			valueobject.NewMoneyUSD(balance),
			req.Reason,
			time.Now(),
			scope.UserID,
		)
		if err != nil {
			return err
		}

		if err := invoice.RegisterAdjustment(adjustment.BalanceEffect()); err != nil {
			return err
		}
		if err := repos.Adjustments().Save(ctx, adjustment); err != nil {
			return err
		}
		return repos.Invoices().Save(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.recordAdjustmentAudit(ctx, scope, adjustment, invoice, invoicePrev, req.ClientIP)
	return toAdjustmentResponse(adjustment), nil
}

func (s *AdjustmentService) recordAdjustmentAudit(ctx context.Context, scope shared.AccessScope, adjustment *billing.InvoiceAdjustment, invoice *billing.Invoice, invoicePrev audit.Snapshot, clientIP string) {
	recordAudit(ctx, s.logger, s.auditor, AuditRecord{
		Actor:       scope,
		Action:      audit.ActionCreate,
		EntityType:  EntityTypeAdjustment,
		EntityID:    adjustment.ID,
		Next:        adjustmentSnapshot(adjustment),
		Description: fmt.Sprintf("Applied %s adjustment of %s to invoice %s", adjustment.Type, adjustment.Amount.StringFixed(2), invoice.InvoiceNumber),
		IPAddress:   clientIP,
	})
	recordAudit(ctx, s.logger, s.auditor, AuditRecord{
		Actor:       scope,
		Action:      audit.ActionUpdate,
		EntityType:  EntityTypeInvoice,
		EntityID:    invoice.ID,
		Previous:    invoicePrev,
		Next:        invoiceSnapshot(invoice),
		Description: fmt.Sprintf("%s adjustment applied", adjustment.Type),
		IPAddress:   clientIP,
	})
	publishActivity(ctx, s.activity, scope, "adjusted", EntityTypeInvoice, invoice.ID,
		fmt.Sprintf("%s of %s applied to invoice %s", adjustment.Type, adjustment.Amount.StringFixed(2), invoice.InvoiceNumber))
}

// GetAdjustment retrieves one adjustment within the caller's organization
func (s *AdjustmentService) GetAdjustment(ctx context.Context, scope shared.AccessScope, adjustmentID uuid.UUID) (*AdjustmentResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	adjustment, err := s.adjustmentRepo.FindByIDForOrg(ctx, organizationID, adjustmentID)
	if err != nil {
		return nil, err
	}
	return toAdjustmentResponse(adjustment), nil
}

// ListAdjustmentsForInvoice lists the adjustments applied to an invoice
func (s *AdjustmentService) ListAdjustmentsForInvoice(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID) ([]AdjustmentResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	adjustments, err := s.adjustmentRepo.FindByInvoice(ctx, organizationID, invoiceID)
	if err != nil {
		return nil, err
	}
	responses := make([]AdjustmentResponse, len(adjustments))
	for i := range adjustments {
		responses[i] = *toAdjustmentResponse(&adjustments[i])
	}
	return responses, nil
}
