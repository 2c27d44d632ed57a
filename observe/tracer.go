package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// LinkMeta contains metadata about a device link for telemetry purposes.
type LinkMeta struct {
	ID        string   // Fully qualified link ID (host/device or just device)
	Host      string   // Service host the link targets (may be empty)
	DeviceID  string   // Device identity (required)
	Transport string   // Transport name, e.g. "mqtt" (optional)
	Tags      []string // Link tags for fleet grouping (optional)
}

// SpanName returns the deterministic span name for an operation on this link.
// Format: link.<op>.<device> or link.<op>
func (m LinkMeta) SpanName(op string) string {
	if m.DeviceID != "" {
		return "link." + op + "." + m.DeviceID
	}
	return "link." + op
}

// LinkID returns the fully qualified link identifier.
// If ID field is set, returns it. Otherwise constructs from host and device.
func (m LinkMeta) LinkID() string {
	if m.ID != "" {
		return m.ID
	}
	if m.Host != "" {
		return m.Host + "/" + m.DeviceID
	}
	return m.DeviceID
}

// Validate checks that the metadata identifies a device.
func (m LinkMeta) Validate() error {
	if m.DeviceID == "" {
		return ErrMissingDeviceID
	}
	return nil
}

// Tracer wraps OpenTelemetry tracing with link-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan must honor cancellation/deadlines and return ctx.Err() when canceled.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a link operation.
	StartSpan(ctx context.Context, meta LinkMeta, op string) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with link metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta LinkMeta, op string) (context.Context, trace.Span) {
	spanName := meta.SpanName(op)

	// Build attributes
	attrs := []attribute.KeyValue{
		attribute.String("link.id", meta.LinkID()),
		attribute.String("device.id", meta.DeviceID),
		attribute.String("link.op", op),
		attribute.Bool("link.error", false), // Will be updated in EndSpan if error
	}

	// Add host if present
	if meta.Host != "" {
		attrs = append(attrs, attribute.String("link.host", meta.Host))
	}

	// Add optional attributes if present
	if meta.Transport != "" {
		attrs = append(attrs, attribute.String("link.transport", meta.Transport))
	}
	if len(meta.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("link.tags", meta.Tags))
	}

	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("link.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer returns a tracer that records nothing.
func NewNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta LinkMeta, op string) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName(op))
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
