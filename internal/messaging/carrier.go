package messaging

import (
	"slices"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
)

const (
	HeaderEventType     = "event-type"
	HeaderCorrelationID = "correlation-id"
)

var _ propagation.TextMapCarrier = (*MessageCarrier)(nil)

// MessageCarrier exposes kafka headers as an OTel text map and gives typed
// access to the event headers set by Producer. Duplicate keys resolve to the
// last value.
type MessageCarrier struct {
	msg *kafka.Message
}

func NewMessageCarrier(msg *kafka.Message) *MessageCarrier {
	return &MessageCarrier{msg: msg}
}

func (c *MessageCarrier) Get(key string) string {
	i := c.index(key)
	if i < 0 {
		return ""
	}
	return string(c.msg.Headers[i].Value)
}

func (c *MessageCarrier) Set(key, value string) {
	if i := c.index(key); i >= 0 {
		c.msg.Headers[i].Value = []byte(value)
		return
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *MessageCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		if !slices.Contains(keys, h.Key) {
			keys = append(keys, h.Key)
		}
	}
	return keys
}

func (c *MessageCarrier) EventType() string     { return c.Get(HeaderEventType) }
func (c *MessageCarrier) CorrelationID() string { return c.Get(HeaderCorrelationID) }

func (c *MessageCarrier) index(key string) int {
	for i := len(c.msg.Headers) - 1; i >= 0; i-- {
		if c.msg.Headers[i].Key == key {
			return i
		}
	}
	return -1
}
