// Package retry executes operations against a supervised connection,
// retrying transient failures with clamped exponential backoff.
//
// # Classification
//
// Failures split three ways. Transient failures (throttling, network
// timeouts, resets, classified transport errors that report themselves
// retryable) are retried per the policy. Terminal failures are returned
// immediately without consuming the retry budget. Ignorable failures are a
// configured set of kinds that are logged with a caller-supplied
// description and then retried like transient ones; the canonical example
// is a message settlement window expiring while the broker prepares a
// redelivery.
//
// # Readiness
//
// An Executor can be gated on a readiness predicate, typically the
// supervisor's connection state. While the predicate reports false the
// operation is never invoked and the retry budget is not consumed; the
// executor just polls until the connection returns or the context ends.
//
// # Usage
//
//	exec := retry.NewExecutor(retry.ExecutorConfig{
//	    Policy: retry.Policy{MaxRetries: 3},
//	    Ready:  sup.IsConnected,
//	})
//
//	err := exec.Run(ctx, "send", func(ctx context.Context) error {
//	    return client.Send(ctx, msg)
//	})
package retry
