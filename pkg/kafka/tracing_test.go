package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestKafkaHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := NewHeaderCarrier(&headers)

	assert.Equal(t, "1", c.Get("a"))
	assert.Empty(t, c.Get("missing"))

	c.Set("a", "2")
	c.Set("traceparent", "00-abc")
	assert.Equal(t, "2", c.Get("a"))
	assert.Len(t, headers, 2)
	assert.ElementsMatch(t, []string{"a", "traceparent"}, c.Keys())
}
