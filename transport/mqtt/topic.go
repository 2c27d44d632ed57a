package mqtt

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/jonwraymond/iotops/transport"
)

// Topic layout (hub convention):
//
//	devices/{device}/messages/events[/{stream}]/{properties}   outbound
//	devices/{device}/messages/devicebound/{properties}         inbound
//
// Message metadata rides in the final topic segment as a URL-encoded
// property bag. System properties are prefixed with "$.".

const (
	propMessageID     = "$.mid"
	propCorrelationID = "$.cid"
	propEnqueued      = "$.ctime"
)

const rfc3339Milli = "2006-01-02T15:04:05.999Z07:00"

// eventsTopic builds the outbound topic for msg. A non-empty msg.Topic
// becomes a stream segment under the events root.
func eventsTopic(deviceID string, msg *transport.Message) string {
	bag := make(url.Values, len(msg.Properties)+3)
	if msg.ID != "" {
		bag.Set(propMessageID, msg.ID)
	}
	if msg.CorrelationID != "" {
		bag.Set(propCorrelationID, msg.CorrelationID)
	}
	if !msg.Enqueued.IsZero() {
		bag.Set(propEnqueued, msg.Enqueued.UTC().Format(rfc3339Milli))
	}
	for k, v := range msg.Properties {
		bag.Set(k, v)
	}

	topic := "devices/" + deviceID + "/messages/events/"
	if msg.Topic != "" {
		topic += url.PathEscape(msg.Topic) + "/"
	}
	return topic + encodeProperties(bag)
}

// encodeProperties URL-encodes the bag; inside a topic segment spaces must
// be %20, not "+".
func encodeProperties(bag url.Values) string {
	return strings.ReplaceAll(bag.Encode(), "+", "%20")
}

// inboundFilter is the subscription filter for cloud-to-device messages.
func inboundFilter(deviceID string) string {
	return "devices/" + deviceID + "/messages/devicebound/#"
}

// parseInbound converts a raw broker message into a transport message,
// lifting system properties out of the topic's property bag. Messages
// without a $.mid property get a generated ID so they can be settled.
func parseInbound(raw mqtt.Message) (*transport.Message, error) {
	bag, err := parseProperties(raw.Topic())
	if err != nil {
		return nil, err
	}

	msg := &transport.Message{
		Topic:      raw.Topic(),
		Payload:    raw.Payload(),
		Properties: make(map[string]string, len(bag)),
	}
	for k, v := range bag {
		switch k {
		case propMessageID:
			msg.ID = v
		case propCorrelationID:
			msg.CorrelationID = v
		case propEnqueued:
			t, err := time.Parse(rfc3339Milli, v)
			if err != nil {
				return nil, fmt.Errorf("mqtt: parse %s: %w", propEnqueued, err)
			}
			msg.Enqueued = t
		default:
			msg.Properties[k] = v
		}
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return msg, nil
}

// parseProperties extracts the property bag from an inbound topic name.
// The bag segment is optional.
func parseProperties(topic string) (map[string]string, error) {
	const marker = "/messages/devicebound"

	i := strings.Index(topic, marker)
	if i == -1 {
		return nil, fmt.Errorf("mqtt: unexpected inbound topic %q", topic)
	}
	rest := strings.TrimPrefix(topic[i+len(marker):], "/")
	if rest == "" {
		return nil, nil
	}

	q, err := url.ParseQuery(rest)
	if err != nil {
		return nil, fmt.Errorf("mqtt: malformed property bag: %w", err)
	}
	props := make(map[string]string, len(q))
	for k, v := range q {
		if len(v) != 1 {
			return nil, fmt.Errorf("mqtt: property %q repeated", k)
		}
		props[k] = v[0]
	}
	return props, nil
}
