package authcore

import (
	"context"
	"io"
	"log/slog"

	internalaudit "github.com/brokerdesk/authcore/internal/audit"
)

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink writes events as structured log records.
type SlogSink = internalaudit.SlogSink

// MultiSink fans events out to several sinks in order.
type MultiSink = internalaudit.MultiSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink]. A nil logger means slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// Audit event types.
const (
	AuditEventAuthorize    = "authorize"
	AuditEventTokenIssued  = "token_issued"
	AuditEventTokenRevoked = "token_revoked"
	AuditEventBreachCheck  = "password_breach_check"
)

// Audit reasons that are not session failure kinds.
const (
	auditReasonGranted        = "granted"
	auditReasonTokenMalformed = "token_malformed"
	auditReasonAudience       = "audience_mismatch"
	auditReasonDenied         = "permission_denied"
	auditReasonCondition      = "condition_not_met"
	auditReasonMisconfigured  = "misconfigured"
	auditReasonBreached       = "breached"
	auditReasonUnavailable    = "unavailable"
)

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now().UTC()
	}
	if event.Tenant == "" {
		event.Tenant = stringFromContext(ctx, tenantIDContextKey{})
	}
	if ctx == nil {
		ctx = context.Background()
	}
	e.audit.Emit(ctx, event)
}
