package transport

import (
	"time"

	"github.com/google/uuid"
)

// Message is a broker message in either direction.
type Message struct {
	// ID uniquely identifies the message. Inbound messages carry the
	// broker-assigned ID; outbound messages get one from NewMessage.
	ID string

	// CorrelationID ties a response to its request, if any.
	CorrelationID string

	// Topic is the broker destination or source.
	Topic string

	// Payload is the opaque message body.
	Payload []byte

	// Properties carries application-defined metadata.
	Properties map[string]string

	// Enqueued is when the broker accepted the message. Zero for outbound
	// messages.
	Enqueued time.Time
}

// NewMessage builds an outbound message for topic with a fresh unique ID.
func NewMessage(topic string, payload []byte) *Message {
	return &Message{
		ID:      uuid.NewString(),
		Topic:   topic,
		Payload: payload,
	}
}

// WithProperty sets an application property and returns the message for
// chaining.
func (m *Message) WithProperty(key, value string) *Message {
	if m.Properties == nil {
		m.Properties = make(map[string]string)
	}
	m.Properties[key] = value
	return m
}
