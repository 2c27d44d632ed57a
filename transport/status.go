package transport

// State represents the connection state of a supervised client.
type State int

const (
	// StateDisconnected means no usable connection exists and the transport
	// is not recovering on its own. External remediation is required.
	StateDisconnected State = iota
	// StateRetrying means the transport lost the connection and is retrying
	// internally. The handle must be left alone while it recovers.
	StateRetrying
	// StateConnected means the connection is established and operational.
	StateConnected
	// StateDisabled means the client was closed locally and will not be
	// used again.
	StateDisabled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateRetrying:
		return "retrying"
	case StateConnected:
		return "connected"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Reason explains why a connection entered its current state.
type Reason int

const (
	// ReasonOK means the state was reached as part of normal operation.
	ReasonOK Reason = iota
	// ReasonBadCredential means the broker rejected the credential in use.
	ReasonBadCredential
	// ReasonDeviceDisabled means the broker reports the device identity as
	// disabled or revoked.
	ReasonDeviceDisabled
	// ReasonRetryExpired means the transport gave up retrying internally.
	ReasonRetryExpired
	// ReasonCommunicationError means a network or protocol failure the
	// transport could not recover from.
	ReasonCommunicationError
	// ReasonClientClosed means the client was closed by its owner.
	ReasonClientClosed
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonBadCredential:
		return "bad_credential"
	case ReasonDeviceDisabled:
		return "device_disabled"
	case ReasonRetryExpired:
		return "retry_expired"
	case ReasonCommunicationError:
		return "communication_error"
	case ReasonClientClosed:
		return "client_closed"
	default:
		return "unknown"
	}
}

// StatusChange describes a connection status transition reported by a Client.
type StatusChange struct {
	// State is the state the connection moved to.
	State State

	// Reason explains the transition.
	Reason Reason

	// Err carries the underlying failure for error transitions, if any.
	Err error
}

// StatusHandler receives status transitions. Handlers are invoked from
// transport-owned goroutines and must return quickly without blocking.
type StatusHandler func(StatusChange)
