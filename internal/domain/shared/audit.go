package shared

import (
	"context"
	"time"
)

// AuditEvent records one financial action for the external audit collaborator.
// Before and After hold serializable snapshots of the touched entity; either
// may be nil (creation has no Before, a pure read has neither).
type AuditEvent struct {
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// AuditSink receives audit events. Implementations are fire-and-forget:
// Record must never block on or fail the financial transaction that
// produced the event, so it returns nothing.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent)
}

// NopAuditSink discards all events
type NopAuditSink struct{}

// Record implements AuditSink
func (NopAuditSink) Record(context.Context, AuditEvent) {}
