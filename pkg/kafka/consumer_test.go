package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventMessage(t *testing.T, topic string) kafka.Message {
	t.Helper()
	ev, err := NewEvent("review.created", "item-1", "item", "review-service", nil)
	require.NoError(t, err)
	raw, err := ev.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Key: []byte("item-1"), Value: raw, Offset: 42}
}

func newTestConsumer(r messageReader, dlq *DLQProducer, h Handler) *Consumer {
	c := newConsumer(r, ConsumerConfig{GroupID: "g", Topics: []string{"t"}, DLQ: dlq}, h, testLogger())
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{eventMessage(t, "t"), eventMessage(t, "t")}}
	calls := 0
	c := newTestConsumer(r, nil, func(context.Context, *Event) error {
		calls++
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 2, calls)
	assert.Len(t, r.committed, 2)
	assert.Equal(t, 1, r.closed)
}

func TestConsumer_RetriesThenParksInDLQ(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{eventMessage(t, "t")}}
	w := &fakeWriter{}
	dlq := &DLQProducer{writer: w, logger: testLogger()}

	calls := 0
	c := newTestConsumer(r, dlq, func(context.Context, *Event) error {
		calls++
		return errors.New("store unavailable")
	})

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, maxHandlerRetries, calls)
	assert.Len(t, r.committed, 1)
	require.Len(t, w.msgs, 1)

	parked := w.msgs[0]
	assert.Equal(t, DLQTopic("t"), parked.Topic)
	carrier := NewHeaderCarrier(&parked.Headers)
	assert.Equal(t, "store unavailable", carrier.Get("dlq.error"))
	assert.Equal(t, "42", carrier.Get("dlq.original_offset"))
	assert.Equal(t, "g", carrier.Get("dlq.consumer_group"))
}

func TestConsumer_SucceedsOnRetry(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{eventMessage(t, "t")}}
	w := &fakeWriter{}
	calls := 0
	c := newTestConsumer(r, &DLQProducer{writer: w, logger: testLogger()}, func(context.Context, *Event) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 2, calls)
	assert.Empty(t, w.msgs)
	assert.Len(t, r.committed, 1)
}

func TestConsumer_PoisonMessageCommitted(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Topic: "t", Value: []byte("{garbage")}}}
	called := false
	c := newTestConsumer(r, nil, func(context.Context, *Event) error {
		called = true
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	assert.False(t, called)
	assert.Len(t, r.committed, 1)
}

func TestConsumer_CanceledContextStops(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{eventMessage(t, "t")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestConsumer(r, nil, func(context.Context, *Event) error { return nil })
	require.NoError(t, c.Start(ctx))
	assert.Empty(t, r.committed)
	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closed)
}
