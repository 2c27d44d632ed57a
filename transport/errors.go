package transport

import "errors"

// Sentinel errors for client operations.
var (
	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("transport: client closed")

	// ErrNotConnected is returned when an operation requires an open
	// connection and none exists.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrUnknownMessage is returned by Ack when the message is not pending
	// settlement, typically because its delivery window already expired.
	ErrUnknownMessage = errors.New("transport: message not pending acknowledgment")
)

// Kind classifies an operation failure for retry decisions.
type Kind int

const (
	// KindOther is an unclassified failure. Not retryable.
	KindOther Kind = iota
	// KindTransientService is a failure the service reports as temporary,
	// such as throttling or a busy broker. Retryable.
	KindTransientService
	// KindNetwork is a connectivity-level failure such as a timeout, reset,
	// or unexpected EOF. Retryable.
	KindNetwork
	// KindUnauthorized means the broker rejected the credential in use.
	// Not retryable with the same credential.
	KindUnauthorized
	// KindDisabled means the broker reports the device identity as disabled
	// or revoked. Not retryable at all.
	KindDisabled
	// KindLockLost means a message settlement window expired and the broker
	// will redeliver. Retryable; callers usually treat it as ignorable.
	KindLockLost
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindTransientService:
		return "transient_service"
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindDisabled:
		return "disabled"
	case KindLockLost:
		return "lock_lost"
	default:
		return "unknown"
	}
}

// Transient reports whether failures of this kind are worth retrying as-is.
func (k Kind) Transient() bool {
	switch k {
	case KindTransientService, KindNetwork, KindLockLost:
		return true
	default:
		return false
	}
}

// Error is a classified transport failure.
type Error struct {
	// Kind is the failure classification.
	Kind Kind

	// Op names the operation that failed: "open", "send", "receive", "ack".
	Op string

	// Err is the underlying failure, if any.
	Err error
}

// NewError classifies err as kind for the named operation.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	msg := "transport: " + e.Op + ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying as-is.
func (e *Error) Transient() bool {
	return e.Kind.Transient()
}

// KindOf extracts the classification from err. Unclassified errors map to
// KindOther.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindOther
}
