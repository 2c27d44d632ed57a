package observe

import (
	"context"
	"time"
)

// OperationFunc is the signature for instrumented link operations.
// This is the standard function signature that Instrument wraps.
type OperationFunc func(ctx context.Context, link LinkMeta, msg any) error

// Instrument wraps link operations with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe OperationFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Ownership: Message values are passed through without modification.
type Instrument struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrument creates a new Instrument with the given observability components.
func NewInstrument(tracer Tracer, metrics Metrics, logger Logger) *Instrument {
	return &Instrument{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps an OperationFunc with tracing, metrics, and logging.
func (m *Instrument) Wrap(op string, fn OperationFunc) OperationFunc {
	return func(ctx context.Context, link LinkMeta, msg any) error {
		// Start span
		ctx, span := m.tracer.StartSpan(ctx, link, op)

		// Record start time
		start := time.Now()

		// Execute the function
		err := fn(ctx, link, msg)

		// Calculate duration
		duration := time.Since(start)

		// End span (records error status if err != nil)
		m.tracer.EndSpan(span, err)

		// Record metrics
		m.metrics.RecordOperation(ctx, link, op, duration, err)

		// Log the operation
		linkLogger := m.logger.WithLink(link)
		fields := []Field{
			{Key: "op", Value: op},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			linkLogger.Error(ctx, "link operation failed", fields...)
		} else {
			linkLogger.Debug(ctx, "link operation completed", fields...)
		}

		return err
	}
}

// InstrumentFromObserver creates an Instrument from an Observer.
// This is a convenience function for common use cases.
func InstrumentFromObserver(obs Observer) (*Instrument, error) {
	tracer := NewTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewInstrument(tracer, metrics, obs.Logger()), nil
}
