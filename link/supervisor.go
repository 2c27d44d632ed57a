package link

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/iotops/credentials"
	"github.com/jonwraymond/iotops/observe"
	"github.com/jonwraymond/iotops/retry"
	"github.com/jonwraymond/iotops/transport"
	"golang.org/x/sync/singleflight"
)

const (
	// defaultQueueSize bounds the status event queue.
	defaultQueueSize = 16

	// disposeTimeout bounds the close of a stale handle so a wedged
	// transport cannot stall recovery.
	disposeTimeout = 5 * time.Second
)

// Config configures a Supervisor.
type Config struct {
	// Factory builds transport clients from credentials. Required.
	Factory transport.Factory

	// Credentials is the ordered failover set, consumed from the front as
	// the broker rejects candidates. Required.
	Credentials *credentials.Set

	// Policy is the backoff schedule for opening a connection.
	Policy retry.Policy

	// QueueSize bounds the status event queue drained by the supervisor.
	// Default: 16
	QueueSize int

	// OnFatal is called once, from its own goroutine, when the supervisor
	// gives up on automatic recovery.
	OnFatal func(error)

	// Logger records lifecycle activity.
	Logger observe.Logger

	// Metrics records state transitions and initialization outcomes.
	Metrics observe.Metrics
}

// Validate checks that the required collaborators are present.
func (c Config) Validate() error {
	if c.Factory == nil {
		return ErrNilFactory
	}
	if c.Credentials == nil {
		return ErrNilCredentials
	}
	return nil
}

// Supervisor owns a single broker connection and keeps it usable.
//
// It reacts to status transitions reported by the transport: transient
// losses trigger a full handle rebuild, credential rejections advance
// through the failover set, and unrecoverable conditions latch a fatal
// error that halts automatic recovery.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent Initialize calls
//     collapse into a single create+open sequence.
//   - State: only status reports from the transport move the connection
//     state; callers read it through IsConnected and State.
//   - Lifecycle: Shutdown stops background work and closes the handle. The
//     supervisor must not be reused afterward.
type Supervisor struct {
	config Config

	flight singleflight.Group
	opener *retry.Executor

	ctx     context.Context
	cancel  context.CancelFunc
	events  chan statusEvent
	done    chan struct{}
	fatalCh chan struct{}

	mu         sync.Mutex
	client     transport.Client
	generation uint64
	state      transport.State
	reason     transport.Reason
	fatalErr   error
	closed     bool
}

// statusEvent pairs a status change with the handle generation and the
// credential that produced it.
type statusEvent struct {
	change transport.StatusChange
	gen    uint64
	cred   credentials.Credential
}

// NewSupervisor creates a supervisor and starts its status event pump.
// Shutdown releases it.
func NewSupervisor(config Config) (*Supervisor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Apply defaults
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	if config.Logger == nil {
		config.Logger = observe.NewNoopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NewNoopMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan statusEvent, config.QueueSize),
		done:    make(chan struct{}),
		fatalCh: make(chan struct{}),
	}
	s.opener = retry.NewExecutor(retry.ExecutorConfig{
		Policy:  config.Policy,
		Logger:  config.Logger,
		Metrics: config.Metrics,
	})

	go s.pump()

	return s, nil
}

// Initialize ensures a usable connection exists. It is idempotent: when the
// connection is already up, or the transport is recovering on its own, it
// returns immediately. Concurrent callers share a single underlying
// create+open sequence and observe its outcome.
//
// It returns nil once connected, the latched fatal error once automatic
// recovery has been abandoned, and the construction or open error when the
// attempt itself fails.
func (s *Supervisor) Initialize(ctx context.Context) error {
	if ok, err := s.needsInit(); !ok {
		return err
	}

	ch := s.flight.DoChan("init", func() (any, error) {
		return nil, s.initialize()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsConnected reports whether the connection is currently usable. Workers
// use it as their readiness gate and must re-check it immediately before
// each operation rather than caching the answer.
func (s *Supervisor) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == transport.StateConnected
}

// State returns the current connection state and the reason it was entered.
func (s *Supervisor) State() (transport.State, transport.Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.reason
}

// Err returns the latched fatal condition, or nil while the supervisor can
// still recover automatically.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatalErr
}

// Fatal returns a channel that is closed when the supervisor latches a
// fatal condition. Err reports the condition itself.
func (s *Supervisor) Fatal() <-chan struct{} {
	return s.fatalCh
}

// Client returns the current handle, or nil while no connection exists.
// Callers must not close the handle and must not cache it across
// operations.
func (s *Supervisor) Client() transport.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Shutdown stops the event pump and closes the current handle. It is safe
// to call before Initialize and safe to call more than once.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	client := s.client
	s.client = nil
	s.state = transport.StateDisabled
	s.reason = transport.ReasonClientClosed
	s.mu.Unlock()

	s.cancel()
	<-s.done

	s.config.Metrics.RecordTransition(ctx, transport.StateDisabled.String(), transport.ReasonClientClosed.String())

	if client == nil {
		return nil
	}
	if err := client.Close(ctx); err != nil {
		return fmt.Errorf("close client: %w", err)
	}
	return nil
}

// needsInit is the double-checked predicate guarding initialization. When
// it reports false, err is the terminal answer for the caller.
func (s *Supervisor) needsInit() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return false, ErrClosed
	case s.fatalErr != nil:
		return false, s.fatalErr
	case s.state == transport.StateConnected || s.state == transport.StateRetrying:
		return false, nil
	default:
		return true, nil
	}
}

// initialize runs the create+open sequence, failing over through the
// credential set until connected, fatal, or a non-credential failure. The
// previous handle is always disposed before a new one is built.
func (s *Supervisor) initialize() error {
	for {
		ok, err := s.needsInit()
		if !ok {
			return err
		}

		s.mu.Lock()
		old := s.client
		s.client = nil
		s.generation++
		s.mu.Unlock()

		if old != nil {
			s.dispose(old)
		}

		cred, ok := s.config.Credentials.Active()
		if !ok {
			return s.fatal(ErrCredentialsExhausted, "update the credential set and restart")
		}

		client, err := s.config.Factory.NewClient(cred)
		if err != nil {
			s.config.Logger.Error(s.ctx, "client construction failed",
				observe.Field{Key: "credential", Value: cred.String()},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return err
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			s.dispose(client)
			return ErrClosed
		}
		gen := s.generation
		s.client = client
		s.mu.Unlock()

		client.SetStatusHandler(s.statusHandler(gen, cred))

		s.config.Logger.Info(s.ctx, "opening connection",
			observe.Field{Key: "credential", Value: cred.String()},
		)

		start := time.Now()
		err = s.opener.Run(s.ctx, "open", client.Open)
		s.config.Metrics.RecordInitialization(s.ctx, time.Since(start), err)
		if err == nil {
			s.config.Logger.Info(s.ctx, "connected",
				observe.Field{Key: "credential", Value: cred.String()},
			)
			return nil
		}

		switch transport.KindOf(err) {
		case transport.KindUnauthorized:
			if s.config.Credentials.Discard(cred) {
				s.config.Logger.Warn(s.ctx, "credential rejected, failing over",
					observe.Field{Key: "credential", Value: cred.String()},
					observe.Field{Key: "remaining", Value: s.config.Credentials.Remaining()},
				)
			}
		case transport.KindDisabled:
			s.disposeCurrent()
			return s.fatal(ErrDeviceDisabled, "re-enable the device in the identity registry")
		default:
			s.disposeCurrent()
			s.config.Logger.Error(s.ctx, "open failed",
				observe.Field{Key: "credential", Value: cred.String()},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return err
		}
	}
}

// statusHandler builds the status callback for one client handle. The
// callback records the transition, then hands disconnect events to the
// pump; it never blocks and never performs recovery itself. Events from a
// superseded handle are dropped.
func (s *Supervisor) statusHandler(gen uint64, cred credentials.Credential) transport.StatusHandler {
	return func(change transport.StatusChange) {
		s.mu.Lock()
		if s.closed || gen != s.generation {
			s.mu.Unlock()
			return
		}
		s.state = change.State
		s.reason = change.Reason
		s.mu.Unlock()

		s.config.Metrics.RecordTransition(s.ctx, change.State.String(), change.Reason.String())
		s.config.Logger.Info(s.ctx, "connection status changed",
			observe.Field{Key: "state", Value: change.State.String()},
			observe.Field{Key: "reason", Value: change.Reason.String()},
		)

		if change.State != transport.StateDisconnected {
			return
		}

		select {
		case s.events <- statusEvent{change: change, gen: gen, cred: cred}:
		default:
			s.config.Logger.Warn(s.ctx, "status event queue full, dropping event",
				observe.Field{Key: "state", Value: change.State.String()},
				observe.Field{Key: "reason", Value: change.Reason.String()},
			)
		}
	}
}

// pump drains status events and performs the remediation they call for.
func (s *Supervisor) pump() {
	defer close(s.done)

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			s.remediate(ev)
		}
	}
}

// remediate reacts to one disconnect event: credential rejections advance
// the failover set, transient losses rebuild the handle, and unrecoverable
// reports latch the fatal state.
func (s *Supervisor) remediate(ev statusEvent) {
	s.mu.Lock()
	stale := s.closed || ev.gen != s.generation || s.fatalErr != nil
	s.mu.Unlock()
	if stale {
		return
	}

	switch ev.change.Reason {
	case transport.ReasonBadCredential:
		if s.config.Credentials.Discard(ev.cred) {
			s.config.Logger.Warn(s.ctx, "credential rejected, failing over",
				observe.Field{Key: "credential", Value: ev.cred.String()},
				observe.Field{Key: "remaining", Value: s.config.Credentials.Remaining()},
			)
		}
		if s.config.Credentials.Remaining() == 0 {
			_ = s.fatal(ErrCredentialsExhausted, "update the credential set and restart")
			return
		}
		s.reinitialize()
	case transport.ReasonRetryExpired, transport.ReasonCommunicationError:
		s.reinitialize()
	case transport.ReasonDeviceDisabled:
		_ = s.fatal(ErrDeviceDisabled, "re-enable the device in the identity registry")
	}
}

// reinitialize rebuilds the handle on behalf of the transport callback that
// reported the loss. Failures are logged, not propagated; workers keep
// gating on IsConnected.
func (s *Supervisor) reinitialize() {
	if err := s.Initialize(s.ctx); err != nil {
		s.config.Logger.Error(s.ctx, "reinitialization failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}

// fatal latches err as the terminal condition. Only the first caller wins;
// later fatal reports return the already latched error.
func (s *Supervisor) fatal(err error, remedy string) error {
	s.mu.Lock()
	if s.fatalErr != nil {
		err = s.fatalErr
		s.mu.Unlock()
		return err
	}
	s.fatalErr = err
	close(s.fatalCh)
	onFatal := s.config.OnFatal
	s.mu.Unlock()

	s.config.Logger.Error(s.ctx, "automatic recovery halted",
		observe.Field{Key: "error", Value: err.Error()},
		observe.Field{Key: "remediation", Value: remedy},
	)
	if onFatal != nil {
		go onFatal(err)
	}
	return err
}

// disposeCurrent invalidates and closes the current handle.
func (s *Supervisor) disposeCurrent() {
	s.mu.Lock()
	old := s.client
	s.client = nil
	if old != nil {
		s.generation++
	}
	s.mu.Unlock()

	if old != nil {
		s.dispose(old)
	}
}

// dispose closes a handle that is no longer current. Status events the
// close provokes are already stale and get dropped by the handler guard.
func (s *Supervisor) dispose(client transport.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), disposeTimeout)
	defer cancel()

	if err := client.Close(ctx); err != nil {
		s.config.Logger.Warn(ctx, "disposing stale handle failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}
