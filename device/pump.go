package device

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/iotops/link"
	"github.com/jonwraymond/iotops/observe"
	"github.com/jonwraymond/iotops/retry"
	"github.com/jonwraymond/iotops/transport"
	"golang.org/x/sync/errgroup"
)

// defaultReceiveTimeout is how long one receive poll waits for a message.
const defaultReceiveTimeout = 5 * time.Second

// Source supplies the next outbound message, blocking until one is
// available. Returning nil stops the sender cleanly. Implementations must
// honor ctx so the sender can shut down promptly.
type Source func(ctx context.Context) *transport.Message

// Handler processes one inbound message. A non-nil error stops the
// receiver; the message is not settled and the broker will redeliver it.
type Handler func(ctx context.Context, msg *transport.Message) error

// Config configures a Pump.
type Config struct {
	// Supervisor owns the connection the pumps operate on. Required.
	Supervisor *link.Supervisor

	// SendPolicy is the backoff schedule for outbound sends.
	// Default: unbounded retries
	SendPolicy retry.Policy

	// ReceivePolicy is the backoff schedule for receive polls.
	// Default: unbounded retries
	ReceivePolicy retry.Policy

	// AckPolicy is the backoff schedule for message settlement.
	// Default: 3 retries
	AckPolicy retry.Policy

	// ReceiveTimeout is how long one receive poll waits for a message.
	// Default: 5s
	ReceiveTimeout time.Duration

	// ReadyPoll is the delay between readiness checks while the link is
	// down.
	// Default: 250ms
	ReadyPoll time.Duration

	// Ignorable maps failure kinds on settlement to a log description.
	// Default: lock-lost settlements are ignorable, since the broker
	// redelivers the message anyway.
	Ignorable map[transport.Kind]string

	// Meta identifies the link in spans, metrics, and logs.
	Meta observe.LinkMeta

	// Logger records pump activity.
	Logger observe.Logger

	// Metrics records operation counts and latencies.
	Metrics observe.Metrics

	// Tracer records per-operation spans.
	Tracer observe.Tracer
}

// Pump drives the send and receive worker loops over a supervised link.
//
// Every operation runs through a retry executor gated on the supervisor's
// readiness, so the loops ride out reconnects and credential failovers
// without dropping work. The pumps never change connection state; they
// re-check readiness immediately before each operation.
type Pump struct {
	config     Config
	sender     *retry.Executor
	receiver   *retry.Executor
	acker      *retry.Executor
	instrument *observe.Instrument
	sendOp     observe.OperationFunc
	ackOp      observe.OperationFunc
}

// NewPump creates a pump over the supervised link.
func NewPump(config Config) (*Pump, error) {
	if config.Supervisor == nil {
		return nil, ErrNilSupervisor
	}

	// Apply defaults
	if config.SendPolicy == (retry.Policy{}) {
		config.SendPolicy = retry.Policy{MaxRetries: retry.Unbounded}
	}
	if config.ReceivePolicy == (retry.Policy{}) {
		config.ReceivePolicy = retry.Policy{MaxRetries: retry.Unbounded}
	}
	if config.ReceiveTimeout <= 0 {
		config.ReceiveTimeout = defaultReceiveTimeout
	}
	if config.Ignorable == nil {
		config.Ignorable = map[transport.Kind]string{
			transport.KindLockLost: "settlement window expired; broker will redeliver",
		}
	}
	if config.Logger == nil {
		config.Logger = observe.NewNoopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NewNoopMetrics()
	}
	if config.Tracer == nil {
		config.Tracer = observe.NewNoopTracer()
	}

	p := &Pump{config: config}

	ready := config.Supervisor.IsConnected
	p.sender = retry.NewExecutor(retry.ExecutorConfig{
		Policy:    config.SendPolicy,
		Ready:     ready,
		ReadyPoll: config.ReadyPoll,
		Logger:    config.Logger,
		Metrics:   config.Metrics,
	})
	p.receiver = retry.NewExecutor(retry.ExecutorConfig{
		Policy:    config.ReceivePolicy,
		Ready:     ready,
		ReadyPoll: config.ReadyPoll,
		Logger:    config.Logger,
		Metrics:   config.Metrics,
	})
	p.acker = retry.NewExecutor(retry.ExecutorConfig{
		Policy:    config.AckPolicy,
		Ready:     ready,
		ReadyPoll: config.ReadyPoll,
		Ignorable: config.Ignorable,
		Logger:    config.Logger,
		Metrics:   config.Metrics,
	})

	p.instrument = observe.NewInstrument(config.Tracer, config.Metrics, config.Logger)
	p.sendOp = p.instrument.Wrap("send", p.sendAttempt)
	p.ackOp = p.instrument.Wrap("ack", p.ackAttempt)

	return p, nil
}

// Run starts the sender and receiver loops and waits for them. The first
// failure cancels the siblings, and a fatal supervisor condition surfaces
// as the group error. Run blocks until ctx ends or a loop fails.
func (p *Pump) Run(ctx context.Context, next Source, handle Handler) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.RunSender(ctx, next) })
	g.Go(func() error { return p.RunReceiver(ctx, handle) })
	g.Go(func() error { return p.watch(ctx) })

	return g.Wait()
}

// RunSender pumps outbound messages from next until it returns nil, the
// context ends, or a send fails beyond recovery.
func (p *Pump) RunSender(ctx context.Context, next Source) error {
	if next == nil {
		return ErrNilSource
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := next(ctx)
		if msg == nil {
			return nil
		}

		err := p.sender.Run(ctx, "send", func(ctx context.Context) error {
			return p.sendOp(ctx, p.config.Meta, msg)
		})
		if err != nil {
			return fmt.Errorf("send %s: %w", msg.ID, err)
		}
	}
}

// RunReceiver polls for inbound messages, hands each to handle, and settles
// it with the broker. An expired settlement window is logged and skipped;
// the broker redelivers the message.
func (p *Pump) RunReceiver(ctx context.Context, handle Handler) error {
	if handle == nil {
		return ErrNilHandler
	}

	process := p.instrument.Wrap("receive", func(ctx context.Context, _ observe.LinkMeta, msg any) error {
		return handle(ctx, msg.(*transport.Message))
	})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var msg *transport.Message
		err := p.receiver.Run(ctx, "receive", func(ctx context.Context) error {
			client := p.config.Supervisor.Client()
			if client == nil {
				return transport.NewError(transport.KindNetwork, "receive", transport.ErrNotConnected)
			}
			var rerr error
			msg, rerr = client.Receive(ctx, p.config.ReceiveTimeout)
			return rerr
		})
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		if msg == nil {
			// Idle poll
			continue
		}

		if err := process(ctx, p.config.Meta, msg); err != nil {
			return fmt.Errorf("process %s: %w", msg.ID, err)
		}

		err = p.acker.Run(ctx, "ack", func(ctx context.Context) error {
			return p.ackOp(ctx, p.config.Meta, msg)
		})
		if err != nil {
			if transport.KindOf(err) == transport.KindLockLost {
				p.config.Logger.Info(ctx, "settlement window expired, message will be redelivered",
					observe.Field{Key: "message_id", Value: msg.ID},
				)
				continue
			}
			return fmt.Errorf("ack %s: %w", msg.ID, err)
		}
	}
}

// watch ends the pump group when the supervisor gives up on the link.
func (p *Pump) watch(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.config.Supervisor.Fatal():
		return p.config.Supervisor.Err()
	}
}

func (p *Pump) sendAttempt(ctx context.Context, _ observe.LinkMeta, msg any) error {
	client := p.config.Supervisor.Client()
	if client == nil {
		return transport.NewError(transport.KindNetwork, "send", transport.ErrNotConnected)
	}
	return client.Send(ctx, msg.(*transport.Message))
}

func (p *Pump) ackAttempt(ctx context.Context, _ observe.LinkMeta, msg any) error {
	client := p.config.Supervisor.Client()
	if client == nil {
		return transport.NewError(transport.KindNetwork, "ack", transport.ErrNotConnected)
	}
	return client.Ack(ctx, msg.(*transport.Message))
}
