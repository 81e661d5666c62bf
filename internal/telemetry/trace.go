package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new span for a service operation.
// This is a convenience wrapper around otel.Tracer().Start() with common patterns.
//
// Usage in handlers:
//
//	ctx, span := telemetry.StartSpan(ctx, "aegis/server", "users.Create",
//	    attribute.String(telemetry.AttrUserID, id),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span and sets the span status to error.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span with optional attributes.
// Use for business events like validation failures or rejected attachments.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Common attribute keys for the identity services
const (
	AttrUserID    = "user.id"
	AttrUserName  = "user.name"
	AttrGroupID   = "group.id"
	AttrRoleID    = "role.id"
	AttrPolicyID  = "policy.id"
	AttrVersionID = "policy.version_id"
	AttrAccessKey = "access_key.id"
	AttrErrorKind = "error.kind"
)
