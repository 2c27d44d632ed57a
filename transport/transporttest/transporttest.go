// Package transporttest provides a scriptable in-memory transport for tests.
package transporttest

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/iotops/credentials"
	"github.com/jonwraymond/iotops/transport"
)

// Client is a scriptable transport.Client.
//
// The zero value is a working client: Open reports connected through the
// status handler and succeeds, Send and Ack succeed and record their
// messages, Receive drains messages queued with Enqueue, Close reports
// disabled. Individual operations are overridden with the Func fields.
type Client struct {
	// OpenFunc overrides the outcome of Open. The reported status change is
	// still derived from its result.
	OpenFunc func(ctx context.Context) error

	// CloseFunc overrides the outcome of Close.
	CloseFunc func(ctx context.Context) error

	// SendFunc overrides the outcome of Send. The message is recorded first.
	SendFunc func(ctx context.Context, msg *transport.Message) error

	// ReceiveFunc overrides Receive entirely.
	ReceiveFunc func(ctx context.Context, wait time.Duration) (*transport.Message, error)

	// AckFunc overrides the outcome of Ack. The message is recorded first.
	AckFunc func(ctx context.Context, msg *transport.Message) error

	mu      sync.Mutex
	handler transport.StatusHandler
	opens   int
	closes  int
	closed  bool
	sent    []*transport.Message
	acked   []*transport.Message
	inbox   []*transport.Message
}

var _ transport.Client = (*Client)(nil)

// NewClient returns a working scriptable client.
func NewClient() *Client {
	return &Client{}
}

// SetStatusHandler registers the status transition callback.
func (c *Client) SetStatusHandler(fn transport.StatusHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// Open establishes the fake connection and reports the outcome through the
// status handler before returning.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	c.opens++
	fn := c.OpenFunc
	c.mu.Unlock()

	var err error
	if fn != nil {
		err = fn(ctx)
	}
	if err != nil {
		c.Report(transport.StatusChange{
			State:  transport.StateDisconnected,
			Reason: openFailureReason(err),
			Err:    err,
		})
		return err
	}

	c.Report(transport.StatusChange{State: transport.StateConnected, Reason: transport.ReasonOK})
	return nil
}

// Close tears the fake connection down. Only the first call reports a
// status change.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closes++
	alreadyClosed := c.closed
	c.closed = true
	fn := c.CloseFunc
	c.mu.Unlock()

	if fn != nil {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	if !alreadyClosed {
		c.Report(transport.StatusChange{State: transport.StateDisabled, Reason: transport.ReasonClientClosed})
	}
	return nil
}

// Send records msg as sent.
func (c *Client) Send(ctx context.Context, msg *transport.Message) error {
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	fn := c.SendFunc
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, msg)
	}
	return nil
}

// Receive returns the next queued message, or nil if none arrives within
// wait.
func (c *Client) Receive(ctx context.Context, wait time.Duration) (*transport.Message, error) {
	c.mu.Lock()
	fn := c.ReceiveFunc
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, wait)
	}

	if msg := c.pop(); msg != nil {
		return msg, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}
	return c.pop(), nil
}

// Ack records msg as settled.
func (c *Client) Ack(ctx context.Context, msg *transport.Message) error {
	c.mu.Lock()
	c.acked = append(c.acked, msg)
	fn := c.AckFunc
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, msg)
	}
	return nil
}

// Report invokes the registered status handler with change. Tests use it to
// drive asynchronous transitions such as a dropped connection.
func (c *Client) Report(change transport.StatusChange) {
	c.mu.Lock()
	fn := c.handler
	c.mu.Unlock()

	if fn != nil {
		fn(change)
	}
}

// Enqueue adds msg to the inbox drained by Receive.
func (c *Client) Enqueue(msg *transport.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, msg)
}

func (c *Client) pop() *transport.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.inbox) == 0 {
		return nil
	}
	msg := c.inbox[0]
	c.inbox = c.inbox[1:]
	return msg
}

// Opens returns the number of Open calls.
func (c *Client) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// Closes returns the number of Close calls.
func (c *Client) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sent returns the messages recorded by Send.
func (c *Client) Sent() []*transport.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*transport.Message(nil), c.sent...)
}

// Acked returns the messages recorded by Ack.
func (c *Client) Acked() []*transport.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*transport.Message(nil), c.acked...)
}

// openFailureReason maps an open error to the reason a real transport would
// report.
func openFailureReason(err error) transport.Reason {
	switch transport.KindOf(err) {
	case transport.KindUnauthorized:
		return transport.ReasonBadCredential
	case transport.KindDisabled:
		return transport.ReasonDeviceDisabled
	default:
		return transport.ReasonCommunicationError
	}
}

// Factory hands out scripted clients in order and records the credential of
// every request. When the script is exhausted it returns fresh working
// clients.
type Factory struct {
	// NewFunc overrides NewClient entirely.
	NewFunc func(cred credentials.Credential) (transport.Client, error)

	mu      sync.Mutex
	queue   []*Client
	created []*Client
	calls   []credentials.Credential
	err     error
}

var _ transport.Factory = (*Factory)(nil)

// NewFactory creates a factory scripted with clients, handed out in order.
func NewFactory(clients ...*Client) *Factory {
	f := &Factory{}
	f.queue = append(f.queue, clients...)
	return f
}

// Push appends a scripted client.
func (f *Factory) Push(c *Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, c)
}

// Fail makes every subsequent NewClient call return err.
func (f *Factory) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// NewClient records cred and returns the next scripted client.
func (f *Factory) NewClient(cred credentials.Credential) (transport.Client, error) {
	if f.NewFunc != nil {
		f.mu.Lock()
		f.calls = append(f.calls, cred)
		f.mu.Unlock()
		return f.NewFunc(cred)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, cred)
	if f.err != nil {
		return nil, f.err
	}

	var c *Client
	if len(f.queue) > 0 {
		c = f.queue[0]
		f.queue = f.queue[1:]
	} else {
		c = NewClient()
	}
	f.created = append(f.created, c)
	return c, nil
}

// Calls returns the credentials passed to NewClient in order.
func (f *Factory) Calls() []credentials.Credential {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]credentials.Credential(nil), f.calls...)
}

// Created returns every client handed out, in order.
func (f *Factory) Created() []*Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Client(nil), f.created...)
}
