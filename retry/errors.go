package retry

import "errors"

// Sentinel errors for retry execution.
var (
	// ErrRetriesExhausted is returned when the retry budget is spent. The
	// final operation error is wrapped alongside it and remains matchable
	// with errors.Is and errors.As.
	ErrRetriesExhausted = errors.New("retry: retries exhausted")
)
