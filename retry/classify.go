package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/jonwraymond/iotops/transport"
)

// Transient reports whether err is worth retrying.
//
// Classified transport errors answer through their kind. Unclassified
// errors are matched against the recognized network failure families:
// timeouts, connection resets and refusals, broken pipes, and unexpected
// EOF. Everything else is terminal.
//
// context.DeadlineExceeded is treated as a per-attempt timeout and is
// transient; context.Canceled is a deliberate stop and is terminal. The
// executor checks its own context before classifying, so a canceled parent
// never reaches this path.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var te *transport.Error
	if errors.As(err, &te) {
		return te.Transient()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	return false
}
