package health

import "errors"

// ErrCheckTimeout indicates a health check did not finish in time.
var ErrCheckTimeout = errors.New("health: check timeout")
