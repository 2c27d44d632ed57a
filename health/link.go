package health

import (
	"context"
	"errors"

	"github.com/jonwraymond/iotops/link"
	"github.com/jonwraymond/iotops/transport"
)

// LinkChecker reports the health of a supervised broker link.
//
// A connected link is healthy. A link that is down or reconnecting is
// degraded, because the supervisor is still recovering it. A link whose
// supervisor has halted automatic recovery is unhealthy, and the message
// carries the remediation an operator must take.
type LinkChecker struct {
	name string
	sup  *link.Supervisor
}

// NewLinkChecker creates a checker reporting on sup under the given name.
func NewLinkChecker(name string, sup *link.Supervisor) *LinkChecker {
	return &LinkChecker{name: name, sup: sup}
}

// Name identifies this checker in aggregated results.
func (c *LinkChecker) Name() string {
	return c.name
}

// Check reports the link state.
func (c *LinkChecker) Check(ctx context.Context) Result {
	state, reason := c.sup.State()
	details := map[string]any{
		"state":  state.String(),
		"reason": reason.String(),
	}

	if err := c.sup.Err(); err != nil {
		return Unhealthy(remediationFor(err), err).WithDetails(details)
	}

	switch state {
	case transport.StateConnected:
		return Healthy("connected").WithDetails(details)
	case transport.StateRetrying:
		return Degraded("reconnecting after connection loss").WithDetails(details)
	case transport.StateDisabled:
		return Unhealthy("link closed", link.ErrClosed).WithDetails(details)
	default:
		return Degraded("disconnected, recovery in progress").WithDetails(details)
	}
}

// remediationFor phrases a fatal link error for an operator.
func remediationFor(err error) string {
	switch {
	case errors.Is(err, link.ErrCredentialsExhausted):
		return "all credentials rejected: update the credential set and restart"
	case errors.Is(err, link.ErrDeviceDisabled):
		return "device disabled by the service: re-enable the device in the identity registry"
	default:
		return "link beyond automatic recovery: restart the host"
	}
}

var _ Checker = (*LinkChecker)(nil)
