package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BillingMetrics tracks the financial core's business counters: invoice and
// payment activity plus audit trail write failures.
type BillingMetrics struct {
	logger *zap.Logger

	invoicesCreated    metric.Int64Counter
	paymentsRecorded   metric.Int64Counter
	paymentsRefunded   metric.Int64Counter
	adjustmentsApplied metric.Int64Counter
	plansCompleted     metric.Int64Counter
	auditWriteFailures metric.Int64Counter
}

// NewBillingMetrics creates the billing counters on the given meter
func NewBillingMetrics(meter metric.Meter, logger *zap.Logger) (*BillingMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bm := &BillingMetrics{logger: logger}

	var err error
	if bm.invoicesCreated, err = meter.Int64Counter(
		"billing_invoices_created_total",
		metric.WithDescription("Total number of invoices created"),
		metric.WithUnit("{invoices}"),
	); err != nil {
		return nil, err
	}
	if bm.paymentsRecorded, err = meter.Int64Counter(
		"billing_payments_recorded_total",
		metric.WithDescription("Total number of payments recorded"),
		metric.WithUnit("{payments}"),
	); err != nil {
		return nil, err
	}
	if bm.paymentsRefunded, err = meter.Int64Counter(
		"billing_payments_refunded_total",
		metric.WithDescription("Total number of payments refunded"),
		metric.WithUnit("{payments}"),
	); err != nil {
		return nil, err
	}
	if bm.adjustmentsApplied, err = meter.Int64Counter(
		"billing_adjustments_applied_total",
		metric.WithDescription("Total number of invoice adjustments applied"),
		metric.WithUnit("{adjustments}"),
	); err != nil {
		return nil, err
	}
	if bm.plansCompleted, err = meter.Int64Counter(
		"billing_payment_plans_completed_total",
		metric.WithDescription("Total number of payment plans completed"),
		metric.WithUnit("{plans}"),
	); err != nil {
		return nil, err
	}
	if bm.auditWriteFailures, err = meter.Int64Counter(
		"billing_audit_write_failures_total",
		metric.WithDescription("Total number of audit trail writes that failed after a committed mutation"),
		metric.WithUnit("{failures}"),
	); err != nil {
		return nil, err
	}

	return bm, nil
}

// AttrOrganizationID is the metric attribute key for the organization
const AttrOrganizationID = attribute.Key("organization_id")

// RecordInvoiceCreated increments the invoice creation counter
func (bm *BillingMetrics) RecordInvoiceCreated(ctx context.Context, organizationID string) {
	bm.invoicesCreated.Add(ctx, 1, metric.WithAttributes(AttrOrganizationID.String(organizationID)))
}

// RecordPayment increments the payment counter
func (bm *BillingMetrics) RecordPayment(ctx context.Context, organizationID, method string) {
	bm.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(
		AttrOrganizationID.String(organizationID),
		attribute.String("method", method),
	))
}

// RecordRefund increments the refund counter
func (bm *BillingMetrics) RecordRefund(ctx context.Context, organizationID string) {
	bm.paymentsRefunded.Add(ctx, 1, metric.WithAttributes(AttrOrganizationID.String(organizationID)))
}

// RecordAdjustment increments the adjustment counter
func (bm *BillingMetrics) RecordAdjustment(ctx context.Context, organizationID, adjustmentType string) {
	bm.adjustmentsApplied.Add(ctx, 1, metric.WithAttributes(
		AttrOrganizationID.String(organizationID),
		attribute.String("type", adjustmentType),
	))
}

// RecordPlanCompleted increments the completed plan counter
func (bm *BillingMetrics) RecordPlanCompleted(ctx context.Context, organizationID string) {
	bm.plansCompleted.Add(ctx, 1, metric.WithAttributes(AttrOrganizationID.String(organizationID)))
}

// RecordAuditWriteFailure increments the audit failure counter
func (bm *BillingMetrics) RecordAuditWriteFailure(ctx context.Context, entityType string) {
	bm.auditWriteFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("entity_type", entityType)))
}
