package observe

import (
	"context"
	"testing"
	"time"
)

func TestObserverContract_Noops(t *testing.T) {
	cfg := Config{
		ServiceName: "observe-test",
		Tracing: TracingConfig{
			Enabled:  false,
			Exporter: "none",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Exporter: "none",
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
		},
	}

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	if obs.Tracer() == nil {
		t.Fatalf("expected non-nil tracer")
	}
	if obs.Meter() == nil {
		t.Fatalf("expected non-nil meter")
	}
	if obs.Logger() == nil {
		t.Fatalf("expected non-nil logger")
	}
}

func TestLoggerContract_WithLink(t *testing.T) {
	logger := NewNoopLogger()
	if logger.WithLink(LinkMeta{DeviceID: "noop"}) == nil {
		t.Fatalf("WithLink should return non-nil logger")
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := NewNoopMetrics()
	meta := LinkMeta{DeviceID: "noop"}
	metrics.RecordTransition(context.Background(), "connected", "ok")
	metrics.RecordInitialization(context.Background(), 10*time.Millisecond, nil)
	metrics.RecordAttempt(context.Background(), "send", nil)
	metrics.RecordBackoff(context.Background(), "send", 100*time.Millisecond)
	metrics.RecordOperation(context.Background(), meta, "send", 10*time.Millisecond, nil)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := NewNoopTracer()
	ctx := context.Background()
	_, span := tracer.StartSpan(ctx, LinkMeta{DeviceID: "noop"}, "send")
	tracer.EndSpan(span, nil)
}
