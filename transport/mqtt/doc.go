// Package mqtt adapts eclipse/paho.mqtt.golang to the transport.Client
// contract.
//
// # Connection model
//
// Each client owns one broker connection authenticated with a short-lived
// signed token minted from its credential; tokens refresh automatically on
// reconnect. A lost connection retries internally with capped backoff and
// surfaces as StateRetrying. When the retry window expires without a
// connection the client reports StateDisconnected with ReasonRetryExpired,
// which tells the supervisor to rebuild the handle from scratch.
//
// # Messages
//
// Outbound messages publish at QoS 1 to the device's events topic, with
// message metadata URL-encoded into the final topic segment. Inbound
// messages arrive on the devicebound subscription and queue until Receive
// drains them; they stay unsettled with the broker until Ack, so unsettled
// messages are redelivered after a reconnect.
//
// # Usage
//
//	factory := mqtt.NewFactory(mqtt.Config{Logger: logger})
//	sup, err := link.NewSupervisor(link.Config{
//		Factory:     factory,
//		Credentials: set,
//	})
package mqtt
