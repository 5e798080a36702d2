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

// maxInvoiceNumberAttempts bounds the retry loop when a generated invoice
// number races with a concurrent create in the same organization.
const maxInvoiceNumberAttempts = 5

// InvoiceService provides application-level invoice operations
type InvoiceService struct {
	txScope        TransactionScope
	invoiceRepo    billing.InvoiceRepository
	paymentRepo    billing.PaymentRepository
	adjustmentRepo billing.AdjustmentRepository
	orgRepo        identity.Repository
	idempotency    shared.IdempotencyStore
	idemConfig     shared.IdempotencyConfig
	auditor        AuditRecorder
	activity       ActivitySink
	logger         *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	txScope TransactionScope,
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	adjustmentRepo billing.AdjustmentRepository,
	orgRepo identity.Repository,
	idempotency shared.IdempotencyStore,
	idemConfig shared.IdempotencyConfig,
	auditor AuditRecorder,
	activity ActivitySink,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		txScope:        txScope,
		invoiceRepo:    invoiceRepo,
		paymentRepo:    paymentRepo,
		adjustmentRepo: adjustmentRepo,
		orgRepo:        orgRepo,
		idempotency:    idempotency,
		idemConfig:     idemConfig,
		auditor:        auditor,
		activity:       activity,
		logger:         logger,
	}
}

// requireOrg validates the scope and resolves the organization every
// financial mutation must be bound to. Super admins may act on behalf of an
// organization but never without one.
func requireOrg(scope shared.AccessScope) (uuid.UUID, error) {
	if err := scope.Validate(); err != nil {
		return uuid.Nil, err
	}
	if scope.OrganizationID == uuid.Nil {
		return uuid.Nil, shared.NewValidationError("an organization scope is required for this operation")
	}
	return scope.OrganizationID, nil
}

// ensureOrgActive rejects financial mutations against suspended organizations
func ensureOrgActive(ctx context.Context, repo identity.Repository, organizationID uuid.UUID) error {
	org, err := repo.FindByID(ctx, organizationID)
	if err != nil {
		return err
	}
	if !org.Active {
		return shared.NewInvalidStateError("organization %s is not active", org.Name)
	}
	return nil
}

// guardIdempotency reserves the request's idempotency key when one is
// supplied. The returned release func frees the key if the guarded operation
// fails before producing a record.
func (s *InvoiceService) guardIdempotency(ctx context.Context, key string) (func(), error) {
	return reserveIdempotencyKey(ctx, s.idempotency, s.idemConfig, key)
}

func reserveIdempotencyKey(ctx context.Context, store shared.IdempotencyStore, cfg shared.IdempotencyConfig, key string) (func(), error) {
	noop := func() {}
	if key == "" || store == nil || !cfg.Enabled {
		return noop, nil
	}
	reserved, err := store.Reserve(ctx, key, cfg.TTL)
	if err != nil {
		return noop, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if !reserved {
		return noop, shared.ErrDuplicateRequest
	}
	return func() {
		if releaseErr := store.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
			zap.L().Warn("failed to release idempotency key", zap.Error(releaseErr))
		}
	}, nil
}

// CreateInvoice creates a new draft invoice with its line items
func (s *InvoiceService) CreateInvoice(ctx context.Context, scope shared.AccessScope, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, shared.NewValidationError("an invoice requires at least one line item")
	}
	if err := ensureOrgActive(ctx, s.orgRepo, organizationID); err != nil {
		return nil, err
	}

	release, err := s.guardIdempotency(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	invoice, err := s.createWithUniqueNumber(ctx, organizationID, scope, req)
	if err != nil {
		release()
		return nil, err
	}

	recordAudit(ctx, s.logger, s.auditor, AuditRecord{
		Actor:       scope,
		Action:      audit.ActionCreate,
		EntityType:  EntityTypeInvoice,
		EntityID:    invoice.ID,
		Next:        invoiceSnapshot(invoice),
		Description: fmt.Sprintf("Created invoice %s", invoice.InvoiceNumber),
		IPAddress:   req.ClientIP,
	})
	publishActivity(ctx, s.activity, scope, "created", EntityTypeInvoice, invoice.ID,
		fmt.Sprintf("Invoice %s created for %s", invoice.InvoiceNumber, invoice.FinalAmount.StringFixed(2)))

	return toInvoiceResponse(invoice), nil
}

func (s *InvoiceService) createWithUniqueNumber(ctx context.Context, organizationID uuid.UUID, scope shared.AccessScope, req CreateInvoiceRequest) (*billing.Invoice, error) {
	issuedDate := req.IssuedDate
	if issuedDate.IsZero() {
		issuedDate = time.Now()
	}

	var lastErr error
	for attempt := 0; attempt < maxInvoiceNumberAttempts; attempt++ {
		number, err := s.invoiceRepo.NextInvoiceNumber(ctx, organizationID)
		if err != nil {
			return nil, err
		}

		invoice, err := s.buildInvoice(organizationID, number, scope, req, issuedDate)
		if err != nil {
			return nil, err
		}

		if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
			if shared.IsConflict(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return invoice, nil
	}
	s.logger.Error("exhausted invoice number attempts",
		zap.String("organization_id", organizationID.String()),
		zap.Error(lastErr))
	return nil, shared.NewDomainError(shared.CodeConcurrencyConflict, "could not allocate a unique invoice number")
}

func (s *InvoiceService) buildInvoice(organizationID uuid.UUID, number string, scope shared.AccessScope, req CreateInvoiceRequest, issuedDate time.Time) (*billing.Invoice, error) {
	invoice, err := billing.NewInvoice(organizationID, number, req.PatientID, issuedDate)
	if err != nil {
		return nil, err
	}
	invoice.SetCreatedBy(scope.UserID)

	for _, item := range req.Items {
		if _, err := invoice.AddItem(item.Description, item.Quantity, valueobject.NewMoneyUSD(item.UnitPrice)); err != nil {
			return nil, err
		}
	}
	if req.DiscountType != "" && billing.DiscountType(req.DiscountType) != billing.DiscountTypeNone {
		if err := invoice.ApplyDiscount(billing.DiscountType(req.DiscountType), req.DiscountValue); err != nil {
			return nil, err
		}
	}
	if req.DueDate != nil {
		if err := invoice.SetDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	}
	if req.Notes != "" {
		invoice.SetNotes(req.Notes)
	}
	return invoice, nil
}

// AddItem adds a line item to a draft invoice
func (s *InvoiceService) AddItem(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID, req InvoiceItemRequest) (*InvoiceResponse, error) {
	return s.mutateInvoice(ctx, scope, invoiceID, "", fmt.Sprintf("Added item %q", req.Description), func(inv *billing.Invoice) error {
		_, err := inv.AddItem(req.Description, req.Quantity, valueobject.NewMoneyUSD(req.UnitPrice))
		return err
	})
}

// RemoveItem removes a line item from a draft invoice
func (s *InvoiceService) RemoveItem(ctx context.Context, scope shared.AccessScope, invoiceID, itemID uuid.UUID) (*InvoiceResponse, error) {
	return s.mutateInvoice(ctx, scope, invoiceID, "", "Removed invoice item", func(inv *billing.Invoice) error {
		return inv.RemoveItem(itemID)
	})
}

// UpdateItemQuantity changes the quantity of a line item on a draft invoice
func (s *InvoiceService) UpdateItemQuantity(ctx context.Context, scope shared.AccessScope, invoiceID, itemID uuid.UUID, quantity int) (*InvoiceResponse, error) {
	return s.mutateInvoice(ctx, scope, invoiceID, "", "Updated invoice item quantity", func(inv *billing.Invoice) error {
		return inv.UpdateItemQuantity(itemID, quantity)
	})
}

// ApplyDiscount applies a percentage or fixed-value discount to a draft invoice
func (s *InvoiceService) ApplyDiscount(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID, req ApplyDiscountRequest) (*InvoiceResponse, error) {
	return s.mutateInvoice(ctx, scope, invoiceID, "", "Applied discount", func(inv *billing.Invoice) error {
		return inv.ApplyDiscount(billing.DiscountType(req.DiscountType), req.DiscountValue)
	})
}

// UpdateInvoice updates the mutable header fields of an invoice
func (s *InvoiceService) UpdateInvoice(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	return s.mutateInvoice(ctx, scope, invoiceID, "", "Updated invoice", func(inv *billing.Invoice) error {
		if req.DueDate != nil {
			if err := inv.SetDueDate(*req.DueDate); err != nil {
				return err
			}
		}
		if req.Notes != nil {
			inv.SetNotes(*req.Notes)
		}
		return nil
	})
}

// SendInvoice transitions a draft invoice to sent, freezing its items and discount
func (s *InvoiceService) SendInvoice(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID, clientIP string) (*InvoiceResponse, error) {
	resp, err := s.mutateInvoice(ctx, scope, invoiceID, clientIP, "Sent invoice", func(inv *billing.Invoice) error {
		return inv.Send()
	})
	if err != nil {
		return nil, err
	}
	publishActivity(ctx, s.activity, scope, "sent", EntityTypeInvoice, resp.ID,
		fmt.Sprintf("Invoice %s sent", resp.InvoiceNumber))
	return resp, nil
}

// VoidInvoice cancels an invoice that has not been fully paid
func (s *InvoiceService) VoidInvoice(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID, req VoidInvoiceRequest) (*InvoiceResponse, error) {
	resp, err := s.mutateInvoice(ctx, scope, invoiceID, req.ClientIP, fmt.Sprintf("Voided invoice: %s", req.Reason), func(inv *billing.Invoice) error {
		return inv.Void(req.Reason)
	})
	if err != nil {
		return nil, err
	}
	publishActivity(ctx, s.activity, scope, "voided", EntityTypeInvoice, resp.ID,
		fmt.Sprintf("Invoice %s voided", resp.InvoiceNumber))
	return resp, nil
}

// mutateInvoice loads an organization-scoped invoice under a row lock,
// applies fn and saves, emitting an audit entry with before/after snapshots.
// Item and discount changes feed the same derived totals as payments, so
// they serialize on the locked invoice row too.
func (s *InvoiceService) mutateInvoice(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID, clientIP, description string, fn func(inv *billing.Invoice) error) (*InvoiceResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}
	if err := ensureOrgActive(ctx, s.orgRepo, organizationID); err != nil {
		return nil, err
	}

	var (
		invoice  *billing.Invoice
		previous audit.Snapshot
	)
	err = s.txScope.Execute(ctx, func(repos TxRepositories) error {
		invoice, err = repos.Invoices().FindByIDForOrgLocked(ctx, organizationID, invoiceID)
		if err != nil {
			return err
		}
		previous = invoiceSnapshot(invoice)
		if err := fn(invoice); err != nil {
			return err
		}
		return repos.Invoices().Save(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.logger, s.auditor, AuditRecord{
		Actor:       scope,
		Action:      audit.ActionUpdate,
		EntityType:  EntityTypeInvoice,
		EntityID:    invoice.ID,
		Previous:    previous,
		Next:        invoiceSnapshot(invoice),
		Description: description,
		IPAddress:   clientIP,
	})

	return toInvoiceResponse(invoice), nil
}

// GetInvoice retrieves one invoice. Super admins without an organization
// binding may read across organizations; everyone else is scoped.
func (s *InvoiceService) GetInvoice(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var (
		invoice *billing.Invoice
		err     error
	)
	if scope.SuperAdmin && scope.OrganizationID == uuid.Nil {
		invoice, err = s.invoiceRepo.FindByID(ctx, invoiceID)
	} else {
		invoice, err = s.invoiceRepo.FindByIDForOrg(ctx, scope.OrganizationID, invoiceID)
	}
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}

// ListInvoices lists invoices for the caller's organization with filtering
// and pagination
func (s *InvoiceService) ListInvoices(ctx context.Context, scope shared.AccessScope, filter InvoiceListFilter) (*shared.Paginated[InvoiceResponse], error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}

	repoFilter := billing.InvoiceFilter{
		Filter:    shared.DefaultFilter(),
		PatientID: filter.PatientID,
		FromDate:  filter.FromDate,
		ToDate:    filter.ToDate,
	}
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		status := billing.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.NewValidationError("invoice status %q is not valid", filter.Status)
		}
		repoFilter.Status = &status
	}
	if filter.Overdue {
		now := time.Now()
		repoFilter.DueBefore = &now
		repoFilter.Statuses = []billing.InvoiceStatus{billing.InvoiceStatusSent, billing.InvoiceStatusPartial}
	}

	invoices, err := s.invoiceRepo.FindAllForOrg(ctx, organizationID, repoFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.invoiceRepo.CountForOrg(ctx, organizationID, repoFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = *toInvoiceResponse(&invoices[i])
	}
	page := shared.NewPaginated(responses, total, repoFilter.Page, repoFilter.PageSize)
	return &page, nil
}

// GetInvoiceSummary returns the invoice with its payment and adjustment history
func (s *InvoiceService) GetInvoiceSummary(ctx context.Context, scope shared.AccessScope, invoiceID uuid.UUID) (*InvoiceSummaryResponse, error) {
	organizationID, err := requireOrg(scope)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoiceRepo.FindByIDForOrg(ctx, organizationID, invoiceID)
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
	adjustments, err := s.adjustmentRepo.FindByInvoice(ctx, organizationID, invoiceID)
	if err != nil {
		return nil, err
	}

	paymentResponses := make([]PaymentResponse, len(payments))
	refunded := 0
	for i := range payments {
		paymentResponses[i] = *toPaymentResponse(&payments[i])
		if payments[i].IsRefunded {
			refunded++
		}
	}
	adjustmentResponses := make([]AdjustmentResponse, len(adjustments))
	for i := range adjustments {
		adjustmentResponses[i] = *toAdjustmentResponse(&adjustments[i])
	}

	return &InvoiceSummaryResponse{
		Invoice:         *toInvoiceResponse(invoice),
		Payments:        paymentResponses,
		Adjustments:     adjustmentResponses,
		PaymentCount:    len(payments),
		RefundedCount:   refunded,
		AdjustmentTotal: invoice.AdjustmentTotal,
		BalanceDue:      invoice.BalanceDue(),
	}, nil
}
