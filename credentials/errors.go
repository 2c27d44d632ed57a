package credentials

import "errors"

// Sentinel errors for credential validation and resolution.
var (
	// ErrMissingHost indicates a credential without a broker host.
	ErrMissingHost = errors.New("credentials: host is required")

	// ErrMissingDeviceID indicates a credential without a device identity.
	ErrMissingDeviceID = errors.New("credentials: device id is required")

	// ErrMissingKey indicates a credential without key material.
	ErrMissingKey = errors.New("credentials: key is required")

	// ErrEnvNotSet indicates an env: key reference naming an unset variable.
	ErrEnvNotSet = errors.New("credentials: environment variable not set")
)
