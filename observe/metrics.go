package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records link lifecycle and operation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordTransition records a link state transition.
	RecordTransition(ctx context.Context, state, reason string)

	// RecordInitialization records a client initialization with duration and error status.
	RecordInitialization(ctx context.Context, duration time.Duration, err error)

	// RecordAttempt records one invocation of a retried operation.
	RecordAttempt(ctx context.Context, op string, err error)

	// RecordBackoff records the delay scheduled before the next retry of op.
	RecordBackoff(ctx context.Context, op string, delay time.Duration)

	// RecordOperation records a link operation with duration and error status.
	RecordOperation(ctx context.Context, link LinkMeta, op string, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter            metric.Meter
	transitionCount  metric.Int64Counter
	initCount        metric.Int64Counter
	initErrorCount   metric.Int64Counter
	initDurationHist metric.Float64Histogram
	attemptCount     metric.Int64Counter
	attemptErrors    metric.Int64Counter
	backoffHist      metric.Float64Histogram
	opCount          metric.Int64Counter
	opErrorCount     metric.Int64Counter
	opDurationHist   metric.Float64Histogram
}

// NewMetrics creates a Metrics instance recording to the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

// NewNoopMetrics returns a Metrics that records nothing.
func NewNoopMetrics() Metrics {
	return &noopMetrics{}
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	transitionCount, err := meter.Int64Counter(
		"link.transitions",
		metric.WithDescription("Total number of link state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	initCount, err := meter.Int64Counter(
		"link.init.total",
		metric.WithDescription("Total number of client initializations"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	initErrorCount, err := meter.Int64Counter(
		"link.init.errors",
		metric.WithDescription("Total number of failed client initializations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	initDurationHist, err := meter.Float64Histogram(
		"link.init.duration_ms",
		metric.WithDescription("Client initialization duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	attemptCount, err := meter.Int64Counter(
		"retry.attempts",
		metric.WithDescription("Total number of retried operation invocations"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	attemptErrors, err := meter.Int64Counter(
		"retry.attempt.errors",
		metric.WithDescription("Total number of failed operation invocations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	backoffHist, err := meter.Float64Histogram(
		"retry.backoff_ms",
		metric.WithDescription("Backoff delay before retries in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	opCount, err := meter.Int64Counter(
		"link.op.total",
		metric.WithDescription("Total number of link operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	opErrorCount, err := meter.Int64Counter(
		"link.op.errors",
		metric.WithDescription("Total number of link operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	opDurationHist, err := meter.Float64Histogram(
		"link.op.duration_ms",
		metric.WithDescription("Link operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:            meter,
		transitionCount:  transitionCount,
		initCount:        initCount,
		initErrorCount:   initErrorCount,
		initDurationHist: initDurationHist,
		attemptCount:     attemptCount,
		attemptErrors:    attemptErrors,
		backoffHist:      backoffHist,
		opCount:          opCount,
		opErrorCount:     opErrorCount,
		opDurationHist:   opDurationHist,
	}, nil
}

// RecordTransition records a link state transition.
func (m *metricsImpl) RecordTransition(ctx context.Context, state, reason string) {
	m.transitionCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("link.state", state),
		attribute.String("link.reason", reason),
	))
}

// RecordInitialization records a client initialization.
func (m *metricsImpl) RecordInitialization(ctx context.Context, duration time.Duration, err error) {
	m.initCount.Add(ctx, 1)
	if err != nil {
		m.initErrorCount.Add(ctx, 1)
	}
	m.initDurationHist.Record(ctx, float64(duration.Milliseconds()))
}

// RecordAttempt records one invocation of a retried operation.
func (m *metricsImpl) RecordAttempt(ctx context.Context, op string, err error) {
	opt := metric.WithAttributes(attribute.String("op", op))
	m.attemptCount.Add(ctx, 1, opt)
	if err != nil {
		m.attemptErrors.Add(ctx, 1, opt)
	}
}

// RecordBackoff records the delay scheduled before the next retry.
func (m *metricsImpl) RecordBackoff(ctx context.Context, op string, delay time.Duration) {
	m.backoffHist.Record(ctx, float64(delay.Milliseconds()),
		metric.WithAttributes(attribute.String("op", op)))
}

// RecordOperation records metrics for a link operation.
func (m *metricsImpl) RecordOperation(ctx context.Context, link LinkMeta, op string, duration time.Duration, err error) {
	// Build common attributes
	attrs := []attribute.KeyValue{
		attribute.String("link.id", link.LinkID()),
		attribute.String("device.id", link.DeviceID),
		attribute.String("link.op", op),
	}

	// Add host if present
	if link.Host != "" {
		attrs = append(attrs, attribute.String("link.host", link.Host))
	}

	opt := metric.WithAttributes(attrs...)

	// Always increment total counter
	m.opCount.Add(ctx, 1, opt)

	// Increment error counter on failure
	if err != nil {
		m.opErrorCount.Add(ctx, 1, opt)
	}

	// Record duration in milliseconds
	durationMs := float64(duration.Milliseconds())
	m.opDurationHist.Record(ctx, durationMs, opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordTransition(ctx context.Context, state, reason string) {}

func (m *noopMetrics) RecordInitialization(ctx context.Context, duration time.Duration, err error) {}

func (m *noopMetrics) RecordAttempt(ctx context.Context, op string, err error) {}

func (m *noopMetrics) RecordBackoff(ctx context.Context, op string, delay time.Duration) {}

func (m *noopMetrics) RecordOperation(ctx context.Context, link LinkMeta, op string, duration time.Duration, err error) {}
