package billing

import (
	"context"
	"time"

	"github.com/clinicore/backend/internal/domain/audit"
	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Snapshot builders produce the before/after images stored with audit trail
// entries. Monetary values are serialized as fixed-point strings so snapshots
// stay stable regardless of the decimal's internal exponent.

func invoiceSnapshot(inv *billing.Invoice) audit.Snapshot {
	items := make([]map[string]any, len(inv.Items))
	for i, item := range inv.Items {
		items[i] = map[string]any{
			"id":          item.ID.String(),
			"description": item.Description,
			"quantity":    item.Quantity,
			"unit_price":  item.UnitPrice.StringFixed(2),
			"total_price": item.TotalPrice.StringFixed(2),
		}
	}
	snap := audit.Snapshot{
		"id":               inv.ID.String(),
		"organization_id":  inv.OrganizationID.String(),
		"invoice_number":   inv.InvoiceNumber,
		"patient_id":       inv.PatientID.String(),
		"items":            items,
		"total_amount":     inv.TotalAmount.StringFixed(2),
		"discount_type":    inv.DiscountType.String(),
		"discount_value":   inv.DiscountValue.StringFixed(2),
		"final_amount":     inv.FinalAmount.StringFixed(2),
		"paid_amount":      inv.PaidAmount.StringFixed(2),
		"adjustment_total": inv.AdjustmentTotal.StringFixed(2),
		"status":           inv.Status.String(),
		"issued_date":      inv.IssuedDate.Format(time.RFC3339),
	}
	if inv.DueDate != nil {
		snap["due_date"] = inv.DueDate.Format(time.RFC3339)
	}
	if inv.Notes != "" {
		snap["notes"] = inv.Notes
	}
	if inv.CancelReason != "" {
		snap["cancel_reason"] = inv.CancelReason
	}
	return snap
}

func paymentSnapshot(p *billing.Payment) audit.Snapshot {
	snap := audit.Snapshot{
		"id":              p.ID.String(),
		"organization_id": p.OrganizationID.String(),
		"invoice_id":      p.InvoiceID.String(),
		"amount":          p.Amount.StringFixed(2),
		"payment_method":  p.PaymentMethod.String(),
		"payment_date":    p.PaymentDate.Format(time.RFC3339),
		"is_refunded":     p.IsRefunded,
	}
	if p.InstallmentID != nil {
		snap["installment_id"] = p.InstallmentID.String()
	}
	if p.ReferenceNumber != "" {
		snap["reference_number"] = p.ReferenceNumber
	}
	if p.RefundReason != "" {
		snap["refund_reason"] = p.RefundReason
	}
	if p.RefundedAt != nil {
		snap["refunded_at"] = p.RefundedAt.Format(time.RFC3339)
	}
	return snap
}

func planSnapshot(plan *billing.PaymentPlan) audit.Snapshot {
	installments := make([]map[string]any, len(plan.Installments))
	for i, inst := range plan.Installments {
		entry := map[string]any{
			"id":       inst.ID.String(),
			"number":   inst.Number,
			"due_date": inst.DueDate.Format(time.RFC3339),
			"amount":   inst.Amount.StringFixed(2),
			"is_paid":  inst.IsPaid,
		}
		if inst.PaidAt != nil {
			entry["paid_at"] = inst.PaidAt.Format(time.RFC3339)
		}
		installments[i] = entry
	}
	snap := audit.Snapshot{
		"id":                     plan.ID.String(),
		"organization_id":        plan.OrganizationID.String(),
		"invoice_id":             plan.InvoiceID.String(),
		"patient_id":             plan.PatientID.String(),
		"frequency":              plan.Frequency.String(),
		"number_of_installments": plan.NumberOfInstallments,
		"installment_amount":     plan.InstallmentAmount.StringFixed(2),
		"start_date":             plan.StartDate.Format(time.RFC3339),
		"status":                 plan.Status.String(),
		"installments":           installments,
	}
	if plan.CompletedAt != nil {
		snap["completed_at"] = plan.CompletedAt.Format(time.RFC3339)
	}
	return snap
}

func adjustmentSnapshot(a *billing.InvoiceAdjustment) audit.Snapshot {
	return audit.Snapshot{
		"id":              a.ID.String(),
		"organization_id": a.OrganizationID.String(),
		"invoice_id":      a.InvoiceID.String(),
		"type":            a.Type.String(),
		"amount":          a.Amount.StringFixed(2),
		"reason":          a.Reason,
		"applied_date":    a.AppliedDate.Format(time.RFC3339),
		"created_by_id":   a.CreatedByID.String(),
	}
}

// recordAudit appends an audit trail entry after a committed mutation.
// Audit failures must never undo committed financial state, so the error is
// logged as a warning and swallowed.
func recordAudit(ctx context.Context, logger *zap.Logger, recorder AuditRecorder, rec AuditRecord) {
	if recorder == nil {
		return
	}
	if err := recorder.Record(ctx, rec); err != nil {
		logger.Warn("audit trail write failed",
			zap.String("entity_type", rec.EntityType),
			zap.String("entity_id", rec.EntityID.String()),
			zap.String("action", string(rec.Action)),
			zap.Error(err))
	}
}

// publishActivity emits a best-effort activity feed event
func publishActivity(ctx context.Context, sink ActivitySink, scope shared.AccessScope, verb, entityType string, entityID uuid.UUID, message string) {
	if sink == nil {
		return
	}
	sink.Publish(ctx, ActivityEvent{
		OrganizationID: scope.OrganizationID,
		ActorID:        scope.UserID,
		Verb:           verb,
		EntityType:     entityType,
		EntityID:       entityID,
		Message:        message,
		OccurredAt:     time.Now(),
	})
}
