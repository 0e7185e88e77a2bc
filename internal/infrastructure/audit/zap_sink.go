package audit

import (
	"context"

	"github.com/welfare/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ZapSink writes audit events to a dedicated structured log stream.
// Recording is fire-and-forget: operations never fail because the audit
// write failed.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates an audit sink writing through the given logger
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("audit")}
}

// Record implements shared.AuditSink
func (s *ZapSink) Record(_ context.Context, event shared.AuditEvent) {
	fields := []zap.Field{
		zap.String("actor", event.Actor),
		zap.String("action", event.Action),
		zap.String("entity_type", event.EntityType),
		zap.String("entity_id", event.EntityID),
		zap.Time("timestamp", event.Timestamp),
	}
	if len(event.Before) > 0 {
		fields = append(fields, zap.Any("before", event.Before))
	}
	if len(event.After) > 0 {
		fields = append(fields, zap.Any("after", event.After))
	}
	s.logger.Info("audit", fields...)
}

// Ensure ZapSink implements AuditSink
var _ shared.AuditSink = (*ZapSink)(nil)
