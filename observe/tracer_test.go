package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestLinkMeta_SpanNameWithDevice verifies span name includes device.
func TestLinkMeta_SpanNameWithDevice(t *testing.T) {
	meta := LinkMeta{
		Host:     "hub.example.com",
		DeviceID: "device-1",
	}

	expected := "link.send.device-1"
	if got := meta.SpanName("send"); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

// TestLinkMeta_SpanNameWithoutDevice verifies span name without device.
func TestLinkMeta_SpanNameWithoutDevice(t *testing.T) {
	meta := LinkMeta{}

	expected := "link.open"
	if got := meta.SpanName("open"); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

// TestLinkMeta_ID verifies ID generation with and without host.
func TestLinkMeta_ID(t *testing.T) {
	tests := []struct {
		name     string
		meta     LinkMeta
		expected string
	}{
		{
			name:     "with host",
			meta:     LinkMeta{Host: "hub.example.com", DeviceID: "device-1"},
			expected: "hub.example.com/device-1",
		},
		{
			name:     "without host",
			meta:     LinkMeta{DeviceID: "device-1"},
			expected: "device-1",
		},
		{
			name:     "explicit id wins",
			meta:     LinkMeta{ID: "custom:id", Host: "ignored", DeviceID: "ignored"},
			expected: "custom:id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.meta.LinkID(); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

// TestLinkMeta_Validate verifies device id is required.
func TestLinkMeta_Validate(t *testing.T) {
	if err := (LinkMeta{DeviceID: "device-1"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (LinkMeta{Host: "hub.example.com"}).Validate(); !errors.Is(err, ErrMissingDeviceID) {
		t.Errorf("Validate() error = %v, want ErrMissingDeviceID", err)
	}
}

// TestTracer_SpanAttributes verifies all attributes are present on span.
func TestTracer_SpanAttributes(t *testing.T) {
	// Set up in-memory span recorder
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := LinkMeta{
		ID:        "hub.example.com/device-1",
		Host:      "hub.example.com",
		DeviceID:  "device-1",
		Transport: "mqtt",
		Tags:      []string{"fleet-a", "telemetry"},
	}

	ctx, span := tr.StartSpan(context.Background(), meta, "send")
	tr.EndSpan(span, nil)
	_ = ctx // Suppress unused warning

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]

	// Verify span name
	if s.Name() != "link.send.device-1" {
		t.Errorf("expected span name 'link.send.device-1', got %q", s.Name())
	}

	// Verify attributes
	attrs := s.Attributes()
	attrMap := make(map[string]attribute.Value)
	for _, a := range attrs {
		attrMap[string(a.Key)] = a.Value
	}

	// Required attributes
	if v, ok := attrMap["link.id"]; !ok || v.AsString() != "hub.example.com/device-1" {
		t.Errorf("expected link.id='hub.example.com/device-1', got %v", v)
	}
	if v, ok := attrMap["device.id"]; !ok || v.AsString() != "device-1" {
		t.Errorf("expected device.id='device-1', got %v", v)
	}
	if v, ok := attrMap["link.op"]; !ok || v.AsString() != "send" {
		t.Errorf("expected link.op='send', got %v", v)
	}
	if v, ok := attrMap["link.error"]; !ok || v.AsBool() != false {
		t.Errorf("expected link.error=false, got %v", v)
	}

	// Optional attributes
	if v, ok := attrMap["link.host"]; !ok || v.AsString() != "hub.example.com" {
		t.Errorf("expected link.host='hub.example.com', got %v", v)
	}
	if v, ok := attrMap["link.transport"]; !ok || v.AsString() != "mqtt" {
		t.Errorf("expected link.transport='mqtt', got %v", v)
	}
}

// TestTracer_SpanAttributesMinimal verifies only required attributes when minimal meta.
func TestTracer_SpanAttributesMinimal(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := LinkMeta{
		DeviceID: "device-1",
	}

	ctx, span := tr.StartSpan(context.Background(), meta, "receive")
	tr.EndSpan(span, nil)
	_ = ctx

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	attrs := s.Attributes()
	attrMap := make(map[string]attribute.Value)
	for _, a := range attrs {
		attrMap[string(a.Key)] = a.Value
	}

	// Required attributes should be present
	if _, ok := attrMap["link.id"]; !ok {
		t.Error("expected link.id attribute")
	}
	if _, ok := attrMap["device.id"]; !ok {
		t.Error("expected device.id attribute")
	}
	if _, ok := attrMap["link.error"]; !ok {
		t.Error("expected link.error attribute")
	}

	// Optional attributes should NOT be present when empty
	if v, ok := attrMap["link.host"]; ok && v.AsString() != "" {
		t.Errorf("expected no link.host, got %v", v)
	}
	if v, ok := attrMap["link.transport"]; ok && v.AsString() != "" {
		t.Errorf("expected no link.transport, got %v", v)
	}
}

// TestTracer_ContextPropagation verifies parent span is propagated.
func TestTracer_ContextPropagation(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := LinkMeta{DeviceID: "device-child"}

	// Create parent span
	parentCtx, parentSpan := tracer.Start(context.Background(), "parent")

	// Create child span through our tracer
	childCtx, childSpan := tr.StartSpan(parentCtx, meta, "send")
	tr.EndSpan(childSpan, nil)
	parentSpan.End()
	_ = childCtx

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	// Find the child span (the one with link prefix)
	var child sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == "link.send.device-child" {
			child = s
			break
		}
	}
	if child == nil {
		t.Fatal("child span not found")
	}

	// Verify parent-child relationship
	if child.Parent().TraceID() != parentSpan.SpanContext().TraceID() {
		t.Error("child span should have same trace ID as parent")
	}
	if !child.Parent().SpanID().IsValid() {
		t.Error("child span should have valid parent span ID")
	}
}

// TestTracer_ErrorRecording verifies error sets span status and attribute.
func TestTracer_ErrorRecording(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := LinkMeta{DeviceID: "device-1"}

	ctx, span := tr.StartSpan(context.Background(), meta, "send")
	testErr := errors.New("send failed")
	tr.EndSpan(span, testErr)
	_ = ctx

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]

	// Verify error status
	if s.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", s.Status().Code)
	}

	// Verify link.error attribute
	attrs := s.Attributes()
	var linkError bool
	for _, a := range attrs {
		if string(a.Key) == "link.error" {
			linkError = a.Value.AsBool()
			break
		}
	}
	if !linkError {
		t.Error("expected link.error=true")
	}
}
