package transport

import (
	"context"
	"time"

	"github.com/jonwraymond/iotops/credentials"
)

// Client is a single connection to a broker.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Status: SetStatusHandler must be called before Open. Open reports its
//     outcome through the handler before returning. Handlers run on
//     transport-owned goroutines and must not block.
//   - Errors: operations return *Error for classifiable failures.
//   - Lifecycle: Close is idempotent, releases all resources held by the
//     handle, and the client must not be reused afterward.
type Client interface {
	// Open establishes the connection.
	Open(ctx context.Context) error

	// Close tears the connection down and releases the handle.
	Close(ctx context.Context) error

	// Send publishes msg to its topic.
	Send(ctx context.Context, msg *Message) error

	// Receive returns the next inbound message, or nil if none arrived
	// within wait.
	Receive(ctx context.Context, wait time.Duration) (*Message, error)

	// Ack settles an inbound message with the broker.
	Ack(ctx context.Context, msg *Message) error

	// SetStatusHandler registers the status transition callback.
	SetStatusHandler(fn StatusHandler)
}

// Factory builds clients from credentials.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: NewClient errors are construction failures (malformed
//     credential, unusable configuration) and are never retried.
type Factory interface {
	// NewClient builds an unopened client for cred.
	NewClient(cred credentials.Credential) (Client, error)
}

// FactoryFunc is an adapter to allow ordinary functions to be used as
// Factories.
type FactoryFunc func(cred credentials.Credential) (Client, error)

// NewClient builds a client by calling f.
func (f FactoryFunc) NewClient(cred credentials.Credential) (Client, error) {
	return f(cred)
}
