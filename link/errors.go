package link

import "errors"

// Sentinel errors for supervisor lifecycle and terminal conditions.
var (
	// ErrCredentialsExhausted means every candidate credential was rejected
	// by the broker. Automatic recovery halts; the credential set must be
	// updated by an operator.
	ErrCredentialsExhausted = errors.New("link: credentials exhausted")

	// ErrDeviceDisabled means the broker reports the device identity as
	// disabled or revoked. Automatic recovery halts; the identity must be
	// re-enabled by an operator.
	ErrDeviceDisabled = errors.New("link: device disabled")

	// ErrClosed is returned by operations on a supervisor after Shutdown.
	ErrClosed = errors.New("link: supervisor closed")

	// ErrNilFactory is returned when a supervisor is configured without a
	// client factory.
	ErrNilFactory = errors.New("link: factory is required")

	// ErrNilCredentials is returned when a supervisor is configured without
	// a credential set.
	ErrNilCredentials = errors.New("link: credential set is required")
)
