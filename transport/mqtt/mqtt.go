package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jonwraymond/iotops/credentials"
	"github.com/jonwraymond/iotops/observe"
	"github.com/jonwraymond/iotops/transport"
)

const (
	defaultKeepAlive      = 60 * time.Second
	defaultConnectTimeout = 30 * time.Second
	defaultReconnectMax   = 30 * time.Second
	defaultRetryExpiry    = 4 * time.Minute
	defaultInboundBuffer  = 64

	// defaultQoS is at-least-once, required for manual settlement.
	defaultQoS byte = 1

	// quiesceMillis is how long Disconnect waits for in-flight work.
	quiesceMillis = 250
)

// Config configures the MQTT transport.
type Config struct {
	// TokenLifetime is how long minted broker passwords remain valid.
	// Default: 1 hour
	TokenLifetime time.Duration

	// KeepAlive is the MQTT keep-alive interval.
	// Default: 60 seconds
	KeepAlive time.Duration

	// ConnectTimeout bounds the broker handshake and subscription setup.
	// Default: 30 seconds
	ConnectTimeout time.Duration

	// ReconnectMax caps the connection's internal reconnect backoff.
	// Default: 30 seconds
	ReconnectMax time.Duration

	// RetryExpiry is how long a lost connection may keep reconnecting on
	// its own before the client reports the retry window expired.
	// Default: 4 minutes
	RetryExpiry time.Duration

	// InboundBuffer is the capacity of the inbound message queue. Messages
	// arriving while the queue is full stay unsettled with the broker.
	// Default: 64
	InboundBuffer int

	// WebSocket connects with MQTT over WebSockets on port 443 instead of
	// TLS on port 8883, for hosts where 8883 is blocked.
	WebSocket bool

	// TLS overrides the TLS configuration. Default: system roots, TLS 1.2+.
	TLS *tls.Config

	// Logger receives connection lifecycle logs. Default: noop.
	Logger observe.Logger

	// Options adjusts the underlying client options after the adapter has
	// applied its own. Replacing handlers or credentials here breaks status
	// reporting.
	Options func(*mqtt.ClientOptions)
}

// Factory builds MQTT clients from credentials.
type Factory struct {
	config Config
}

// NewFactory creates a factory that dials with the given configuration.
func NewFactory(config Config) *Factory {
	// Apply defaults
	if config.KeepAlive <= 0 {
		config.KeepAlive = defaultKeepAlive
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaultConnectTimeout
	}
	if config.ReconnectMax <= 0 {
		config.ReconnectMax = defaultReconnectMax
	}
	if config.RetryExpiry <= 0 {
		config.RetryExpiry = defaultRetryExpiry
	}
	if config.InboundBuffer <= 0 {
		config.InboundBuffer = defaultInboundBuffer
	}
	if config.Logger == nil {
		config.Logger = observe.NewNoopLogger()
	}

	return &Factory{config: config}
}

// NewClient builds an unopened client for cred.
func (f *Factory) NewClient(cred credentials.Credential) (transport.Client, error) {
	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("mqtt: %w", err)
	}
	return newClient(cred, f.config), nil
}

var _ transport.Factory = (*Factory)(nil)

// client adapts one paho connection to the transport.Client contract.
type client struct {
	cred   credentials.Credential
	config Config
	tokens *credentials.TokenSource
	logger observe.Logger

	inbound chan *transport.Message

	mu      sync.Mutex
	conn    mqtt.Client
	handler transport.StatusHandler
	state   transport.State
	closed  bool
	lost    error                   // last connection-loss error
	expiry  *time.Timer             // fires when the internal retry window lapses
	pending map[string]mqtt.Message // inbound messages awaiting settlement
}

func newClient(cred credentials.Credential, config Config) *client {
	return &client{
		cred:   cred,
		config: config,
		tokens: credentials.NewTokenSource(cred, credentials.TokenConfig{
			Lifetime: config.TokenLifetime,
		}),
		logger: config.Logger.WithLink(observe.LinkMeta{
			Host:      cred.Host,
			DeviceID:  cred.DeviceID,
			Transport: "mqtt",
		}),
		inbound: make(chan *transport.Message, config.InboundBuffer),
		pending: make(map[string]mqtt.Message),
	}
}

var _ transport.Client = (*client)(nil)

// SetStatusHandler registers the status transition callback.
func (c *client) SetStatusHandler(fn transport.StatusHandler) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

// Open establishes the connection and reports the outcome before returning.
func (c *client) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return transport.ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	conn := mqtt.NewClient(c.options())
	c.conn = conn
	c.mu.Unlock()

	if err := waitToken(ctx, conn.Connect()); err != nil {
		// Stop any attempt still running in the background.
		conn.Disconnect(0)
		err = classify("open", err)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.report(transport.StateDisconnected, reasonFor(err), err)
		return err
	}

	c.report(transport.StateConnected, transport.ReasonOK, nil)
	return nil
}

// options assembles the paho client options for this credential.
func (c *client) options() *mqtt.ClientOptions {
	tlsCfg := c.config.TLS
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	o := mqtt.NewClientOptions()
	o.SetTLSConfig(tlsCfg)
	if c.config.WebSocket {
		o.AddBroker("wss://" + c.cred.Host + ":443/mqtt")
	} else {
		o.AddBroker("tls://" + c.cred.Host + ":8883")
	}
	o.SetProtocolVersion(4) // MQTT 3.1.1
	o.SetClientID(c.cred.DeviceID)
	o.SetCredentialsProvider(c.brokerCredentials)
	o.SetKeepAlive(c.config.KeepAlive)
	o.SetConnectTimeout(c.config.ConnectTimeout)
	o.SetWriteTimeout(c.config.ConnectTimeout)
	o.SetCleanSession(false)
	o.SetAutoReconnect(true)
	o.SetMaxReconnectInterval(c.config.ReconnectMax)
	o.SetAutoAckDisabled(true)
	o.SetOnConnectHandler(c.onConnect)
	o.SetConnectionLostHandler(c.onConnectionLost)
	o.SetReconnectingHandler(c.onReconnecting)

	if c.config.Options != nil {
		c.config.Options(o)
	}
	return o
}

// brokerCredentials mints the username/password pair for a connection
// attempt. paho invokes it on every reconnect, so token refresh is automatic.
func (c *client) brokerCredentials() (string, string) {
	token, err := c.tokens.Token()
	if err != nil {
		c.logger.Error(context.Background(), "mint broker token",
			observe.Field{Key: "error", Value: err.Error()})
		return c.username(), ""
	}
	return c.username(), token
}

func (c *client) username() string {
	return c.cred.Host + "/" + c.cred.DeviceID
}

// onConnect runs on every established connection, including reconnects. The
// devicebound subscription does not survive a reconnect and must be reissued.
func (c *client) onConnect(conn mqtt.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
	defer cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
	c.mu.Unlock()

	token := conn.Subscribe(inboundFilter(c.cred.DeviceID), defaultQoS, c.onMessage)
	if err := waitToken(ctx, token); err != nil {
		c.logger.Error(ctx, "inbound subscribe failed",
			observe.Field{Key: "error", Value: err.Error()})
	}

	c.logger.Debug(ctx, "connection established")
	c.report(transport.StateConnected, transport.ReasonOK, nil)
}

// onConnectionLost arms the retry-expiry timer and reports the connection as
// retrying; paho keeps reconnecting with backoff in the background.
func (c *client) onConnectionLost(_ mqtt.Client, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.lost = err
	if c.expiry != nil {
		c.expiry.Stop()
	}
	c.expiry = time.AfterFunc(c.config.RetryExpiry, c.expire)
	c.mu.Unlock()

	c.logger.Warn(context.Background(), "connection lost",
		observe.Field{Key: "error", Value: err.Error()})
	c.report(transport.StateRetrying, transport.ReasonCommunicationError, classify("connection", err))
}

func (c *client) onReconnecting(_ mqtt.Client, _ *mqtt.ClientOptions) {
	c.logger.Debug(context.Background(), "reconnecting")
}

// expire runs when the internal reconnect window lapses without a connection
// coming back. The supervisor responds by rebuilding the handle.
func (c *client) expire() {
	c.mu.Lock()
	if c.closed || c.state != transport.StateRetrying {
		c.mu.Unlock()
		return
	}
	err := c.lost
	c.mu.Unlock()

	c.logger.Warn(context.Background(), "reconnect window expired")
	c.report(transport.StateDisconnected, transport.ReasonRetryExpired, classify("reconnect", err))
}

// report records the state and invokes the status handler. Repeated
// Connected reports collapse so the initial connect, which is announced both
// by Open and by onConnect, surfaces once.
func (c *client) report(state transport.State, reason transport.Reason, err error) {
	c.mu.Lock()
	if c.closed && state != transport.StateDisabled {
		c.mu.Unlock()
		return
	}
	if state == transport.StateConnected && c.state == transport.StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = state
	handler := c.handler
	c.mu.Unlock()

	if handler != nil {
		handler(transport.StatusChange{State: state, Reason: reason, Err: err})
	}
}

// onMessage queues an inbound message and registers it for settlement. A
// full queue leaves the message unsettled so the broker redelivers it.
func (c *client) onMessage(_ mqtt.Client, raw mqtt.Message) {
	msg, err := parseInbound(raw)
	if err != nil {
		// Settle malformed messages so the broker stops redelivering them.
		c.logger.Warn(context.Background(), "dropping malformed inbound message",
			observe.Field{Key: "topic", Value: raw.Topic()},
			observe.Field{Key: "error", Value: err.Error()})
		raw.Ack()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending[msg.ID] = raw
	c.mu.Unlock()

	select {
	case c.inbound <- msg:
	default:
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		c.logger.Warn(context.Background(), "inbound queue full, message left unsettled",
			observe.Field{Key: "message_id", Value: msg.ID})
	}
}

// Send publishes msg to the device's events topic.
func (c *client) Send(ctx context.Context, msg *transport.Message) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return transport.ErrClosed
	}
	if conn == nil {
		return transport.NewError(transport.KindNetwork, "send", transport.ErrNotConnected)
	}

	token := conn.Publish(eventsTopic(c.cred.DeviceID, msg), defaultQoS, false, msg.Payload)
	if err := waitToken(ctx, token); err != nil {
		return classify("send", err)
	}
	return nil
}

// Receive returns the next queued inbound message, or nil if none arrives
// within wait.
func (c *client) Receive(ctx context.Context, wait time.Duration) (*transport.Message, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, transport.ErrClosed
	}

	select {
	case msg := <-c.inbound:
		return msg, nil
	default:
	}
	if wait <= 0 {
		return nil, nil
	}

	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
		return nil, nil
	}
}

// Ack settles msg with the broker. Messages the client no longer holds a
// settlement for, such as after a reconnect or handle swap, report as lock
// lost.
func (c *client) Ack(ctx context.Context, msg *transport.Message) error {
	c.mu.Lock()
	raw, ok := c.pending[msg.ID]
	delete(c.pending, msg.ID)
	c.mu.Unlock()

	if !ok {
		return transport.NewError(transport.KindLockLost, "ack", transport.ErrUnknownMessage)
	}
	raw.Ack()
	return nil
}

// Close tears the connection down. Idempotent.
func (c *client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
	c.pending = make(map[string]mqtt.Message)
	c.mu.Unlock()

	if conn != nil {
		conn.Disconnect(quiesceMillis)
	}
	c.report(transport.StateDisabled, transport.ReasonClientClosed, nil)
	return nil
}

// paho tokens do not take contexts, so completion is awaited manually.
func waitToken(ctx context.Context, t mqtt.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
