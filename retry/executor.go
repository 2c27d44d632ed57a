package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/iotops/observe"
	"github.com/jonwraymond/iotops/transport"
)

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	// Policy is the backoff schedule for transient failures.
	Policy Policy

	// Ready gates execution on connection readiness. While it reports
	// false the operation is not invoked and the retry budget is not
	// consumed. Nil means always ready.
	Ready func() bool

	// ReadyPoll is the delay between readiness checks.
	// Default: 250ms
	ReadyPoll time.Duration

	// AttemptTimeout bounds each individual attempt. Zero means no
	// per-attempt deadline.
	AttemptTimeout time.Duration

	// Ignorable maps failure kinds to a short description. A failure of an
	// ignorable kind is logged with its description and then retried like
	// any transient failure.
	Ignorable map[transport.Kind]string

	// OnRetry is called before each backoff sleep.
	OnRetry func(op string, retry int, err error, delay time.Duration)

	// Logger records retry activity.
	Logger observe.Logger

	// Metrics records attempt and backoff measurements.
	Metrics observe.Metrics
}

// Executor runs operations with readiness gating and transient-failure
// retry.
//
// Contract:
//   - Concurrency: safe for concurrent use; Run calls are independent.
//   - Context: Run returns promptly with ctx.Err() when ctx ends, whether
//     waiting for readiness, executing, or backing off.
//   - Errors: terminal failures are returned unchanged; an exhausted budget
//     returns ErrRetriesExhausted wrapping the final failure.
type Executor struct {
	config ExecutorConfig
}

// NewExecutor creates a new executor.
func NewExecutor(config ExecutorConfig) *Executor {
	// Apply defaults
	config.Policy = config.Policy.withDefaults()
	if config.ReadyPoll <= 0 {
		config.ReadyPoll = 250 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = observe.NewNoopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NewNoopMetrics()
	}

	return &Executor{config: config}
}

// Run executes op, waiting for readiness before every invocation and
// retrying transient failures per the policy. The name identifies the
// operation in logs and metrics.
//
// Readiness waits never consume the retry budget; only invocations that
// fail transiently do.
func (e *Executor) Run(ctx context.Context, name string, op func(context.Context) error) error {
	retries := 0

	for {
		if err := e.awaitReady(ctx, name); err != nil {
			return err
		}

		err := e.attempt(ctx, op)
		e.config.Metrics.RecordAttempt(ctx, name, err)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if desc, ok := e.config.Ignorable[transport.KindOf(err)]; ok {
			e.config.Logger.Info(ctx, "ignorable failure",
				observe.Field{Key: "op", Value: name},
				observe.Field{Key: "detail", Value: desc},
				observe.Field{Key: "error", Value: err.Error()},
			)
		} else if !Transient(err) {
			return err
		}

		if e.config.Policy.Exhausted(retries) {
			e.config.Logger.Warn(ctx, "retries exhausted",
				observe.Field{Key: "op", Value: name},
				observe.Field{Key: "retries", Value: retries},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}
		retries++

		delay := e.config.Policy.Delay(retries)
		if e.config.OnRetry != nil {
			e.config.OnRetry(name, retries, err, delay)
		}
		e.config.Metrics.RecordBackoff(ctx, name, delay)
		e.config.Logger.Debug(ctx, "transient failure, backing off",
			observe.Field{Key: "op", Value: name},
			observe.Field{Key: "retry", Value: retries},
			observe.Field{Key: "delay_ms", Value: float64(delay.Milliseconds())},
			observe.Field{Key: "error", Value: err.Error()},
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// awaitReady polls the readiness predicate until it passes or ctx ends.
func (e *Executor) awaitReady(ctx context.Context, name string) error {
	if e.config.Ready == nil || e.config.Ready() {
		return nil
	}

	e.config.Logger.Debug(ctx, "waiting for readiness",
		observe.Field{Key: "op", Value: name},
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.config.ReadyPoll):
		}
		if e.config.Ready() {
			return nil
		}
	}
}

func (e *Executor) attempt(ctx context.Context, op func(context.Context) error) error {
	if e.config.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.AttemptTimeout)
		defer cancel()
	}
	return op(ctx)
}
