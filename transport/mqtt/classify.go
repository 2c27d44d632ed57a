package mqtt

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/jonwraymond/iotops/transport"
)

// classify wraps err in a *transport.Error carrying the failure kind.
// Context errors and already-classified errors pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var terr *transport.Error
	if errors.As(err, &terr) {
		return err
	}
	return transport.NewError(kindFor(err), op, err)
}

// kindFor maps broker refusals and network failures onto the transport
// taxonomy. CONNACK refusals come through as the packets sentinel errors.
func kindFor(err error) transport.Kind {
	switch {
	case errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword),
		errors.Is(err, packets.ErrorRefusedNotAuthorised),
		errors.Is(err, packets.ErrorRefusedIDRejected):
		return transport.KindUnauthorized
	case errors.Is(err, packets.ErrorRefusedServerUnavailable):
		return transport.KindTransientService
	case errors.Is(err, packets.ErrorNetworkError),
		errors.Is(err, mqtt.ErrNotConnected):
		return transport.KindNetwork
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return transport.KindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return transport.KindNetwork
	}
	return transport.KindOther
}

// reasonFor translates a classified open failure into a status reason.
func reasonFor(err error) transport.Reason {
	switch transport.KindOf(err) {
	case transport.KindUnauthorized:
		return transport.ReasonBadCredential
	case transport.KindDisabled:
		return transport.ReasonDeviceDisabled
	default:
		return transport.ReasonCommunicationError
	}
}
