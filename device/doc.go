// Package device runs the worker loops of a device application.
//
// A Pump composes a link.Supervisor with retry executors to drive the two
// long-running loops a telemetry device needs: sending outbound messages
// and receiving plus settling inbound ones. Both loops gate every broker
// operation on the supervisor's readiness, so they pause during reconnects
// and credential failovers and resume where they left off.
//
// # Failure behavior
//
// Transient failures are retried per the configured policies, which default
// to unbounded so the loops survive arbitrary outages. Non-transient
// failures stop the affected loop and, through Run, the whole group. When
// the supervisor latches a fatal condition the group stops with that error;
// spinning workers against a link that cannot recover would only hide the
// operator action required.
//
// An expired settlement window on acknowledge is the one tolerated failure:
// the message is logged and skipped, because the broker redelivers it.
//
// # Usage
//
//	pump, err := device.NewPump(device.Config{
//	    Supervisor: sup,
//	    Meta:       observe.LinkMeta{Host: cfg.Host, DeviceID: cfg.DeviceID},
//	})
//	if err != nil {
//	    return err
//	}
//
//	err = pump.Run(ctx,
//	    func(ctx context.Context) *transport.Message {
//	        return nextReading(ctx)
//	    },
//	    func(ctx context.Context, msg *transport.Message) error {
//	        return applyCommand(msg)
//	    },
//	)
package device
