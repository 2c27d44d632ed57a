package device

import "errors"

// Sentinel errors for pump configuration.
var (
	// ErrNilSupervisor is returned when a pump is configured without a link
	// supervisor.
	ErrNilSupervisor = errors.New("device: supervisor is required")

	// ErrNilSource is returned by RunSender when no message source is
	// supplied.
	ErrNilSource = errors.New("device: message source is required")

	// ErrNilHandler is returned by RunReceiver when no message handler is
	// supplied.
	ErrNilHandler = errors.New("device: message handler is required")
)
