// Package activity provides best-effort delivery of human-readable activity
// events. The feed is advisory: sinks never block or fail the financial
// operation that produced the event.
package activity

import (
	"context"

	"go.uber.org/zap"

	appbilling "github.com/clinicore/backend/internal/application/billing"
)

// LogSink writes activity events to the structured log
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new log-backed activity sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish writes the event at info level. It never fails.
func (s *LogSink) Publish(_ context.Context, event appbilling.ActivityEvent) {
	s.logger.Info("Activity",
		zap.String("organization_id", event.OrganizationID.String()),
		zap.String("actor_id", event.ActorID.String()),
		zap.String("verb", event.Verb),
		zap.String("entity_type", event.EntityType),
		zap.String("entity_id", event.EntityID.String()),
		zap.String("message", event.Message),
		zap.Time("occurred_at", event.OccurredAt),
	)
}

// NoOpSink discards all events. Useful in tests.
type NoOpSink struct{}

// Publish discards the event
func (NoOpSink) Publish(context.Context, appbilling.ActivityEvent) {}

var (
	_ appbilling.ActivitySink = (*LogSink)(nil)
	_ appbilling.ActivitySink = NoOpSink{}
)
