package telemetry

import (
	"context"

	appbilling "github.com/clinicore/backend/internal/application/billing"
)

// InstrumentedAuditRecorder decorates an AuditRecorder with the audit write
// failure counter. The wrapped error is returned unchanged so callers keep
// their warn-and-continue behavior.
type InstrumentedAuditRecorder struct {
	inner   appbilling.AuditRecorder
	metrics *BillingMetrics
}

// NewInstrumentedAuditRecorder wraps recorder with failure metrics
func NewInstrumentedAuditRecorder(inner appbilling.AuditRecorder, metrics *BillingMetrics) *InstrumentedAuditRecorder {
	return &InstrumentedAuditRecorder{inner: inner, metrics: metrics}
}

// Record implements appbilling.AuditRecorder
func (r *InstrumentedAuditRecorder) Record(ctx context.Context, rec appbilling.AuditRecord) error {
	err := r.inner.Record(ctx, rec)
	if err != nil && r.metrics != nil {
		r.metrics.RecordAuditWriteFailure(ctx, rec.EntityType)
	}
	return err
}
