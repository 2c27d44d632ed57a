// Package link supervises the lifecycle of a single broker connection.
//
// A Supervisor owns exactly one transport client handle at a time. It opens
// the connection from an ordered credential set, watches the status
// transitions the transport reports, and decides how to react: leave the
// transport alone while it retries internally, rebuild the handle from
// scratch after a communication failure, fail over to the next credential
// after a rejection, or latch a fatal error when no automatic recovery is
// possible.
//
// # States
//
// The supervisor tracks the transport states declared in package transport:
//
//   - Connected: the link is usable; IsConnected reports true.
//
//   - Retrying: the transport lost the connection and is recovering on its
//     own. The supervisor records the state and keeps its hands off the
//     handle.
//
//   - Disconnected: the transport gave up. Depending on the reported
//     reason the supervisor rebuilds the handle, discards the rejected
//     credential and fails over, or gives up for good.
//
//   - Disabled: the supervisor closed its own handle.
//
// # Fatal conditions
//
// Two conditions end automatic recovery: the broker reports the device
// identity as disabled, or every candidate credential has been rejected.
// Both latch an error readable through Err, emit one log entry naming the
// required remediation, and invoke the optional OnFatal callback. Workers
// keep gating on IsConnected and stay idle until an operator intervenes.
//
// # Usage
//
//	sup, err := link.NewSupervisor(link.Config{
//	    Factory:     mqtt.NewFactory(mqttConfig),
//	    Credentials: creds,
//	    Policy:      retry.Policy{MaxRetries: 5},
//	})
//	if err != nil {
//	    return err
//	}
//	defer sup.Shutdown(context.Background())
//
//	if err := sup.Initialize(ctx); err != nil {
//	    return err
//	}
//
//	// Workers gate their operations on sup.IsConnected and pick up the
//	// current handle through sup.Client.
package link
