package retry

import (
	"math/rand"
	"time"
)

// Unbounded removes the retry-count limit when used as MaxRetries.
const Unbounded = -1

// Policy describes the backoff schedule for transient failures.
type Policy struct {
	// MaxRetries is the number of retries allowed after the initial
	// attempt, so a policy with MaxRetries 3 permits 4 invocations in
	// total. Negative means retry without limit.
	// Default: 3
	MaxRetries int

	// MinBackoff is the delay before the first retry.
	// Default: 100ms
	MinBackoff time.Duration

	// MaxBackoff caps the delay between retries.
	// Default: 10s
	MaxBackoff time.Duration

	// DeltaBackoff is the exponential growth term added per doubling.
	// Default: 100ms
	DeltaBackoff time.Duration

	// Jitter adds up to 25% randomness to each delay to avoid synchronized
	// retries across devices. Delays are no longer deterministic when
	// enabled.
	// Default: false
	Jitter bool
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries == 0 {
		p.MaxRetries = 3
	}
	if p.MinBackoff <= 0 {
		p.MinBackoff = 100 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 10 * time.Second
	}
	if p.DeltaBackoff <= 0 {
		p.DeltaBackoff = 100 * time.Millisecond
	}
	return p
}

// Delay returns the backoff before the given retry, counted from 1. The
// first retry waits MinBackoff; the exponential term then doubles per retry
// until the delay reaches MaxBackoff.
func (p Policy) Delay(retry int) time.Duration {
	p = p.withDefaults()

	if retry < 1 {
		retry = 1
	}
	shift := uint(retry - 1)
	if shift > 32 {
		// The factor is already beyond any real MaxBackoff.
		shift = 32
	}
	factor := (int64(1) << shift) - 1

	delay := p.MinBackoff + time.Duration(factor*int64(p.DeltaBackoff))
	if delay > p.MaxBackoff || delay < 0 {
		delay = p.MaxBackoff
	}

	if quarter := delay / 4; p.Jitter && quarter > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int63n(int64(quarter)))
		if delay > p.MaxBackoff {
			delay = p.MaxBackoff
		}
	}

	return delay
}

// Exhausted reports whether the policy forbids another retry after the
// given number of retries has been performed.
func (p Policy) Exhausted(retries int) bool {
	p = p.withDefaults()
	return p.MaxRetries >= 0 && retries >= p.MaxRetries
}
