package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("review.created", "item-1", "item", "review-service", map[string]int{"rating": 4})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, EnvelopeVersion, ev.Version)
	assert.Equal(t, "item-1", ev.AggregateID)
	assert.JSONEq(t, `{"rating":4}`, string(ev.Data))
	assert.False(t, ev.Timestamp.IsZero())
	assert.Empty(t, ev.CorrelationID)
	assert.Nil(t, ev.Metadata)
}

func TestEvent_RoundTripThroughEnvelope(t *testing.T) {
	ev, err := NewEvent("item.rating_updated", "item-9", "item", "review-service",
		map[string]any{"count": 3},
		WithCorrelationID("corr-1"),
		WithMetadata("user_id", "u-1"),
		WithMetadata("empty", ""),
	)
	require.NoError(t, err)

	raw, err := ev.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, map[string]string{"user_id": "u-1"}, got.Metadata)

	var data struct {
		Count int `json:"count"`
	}
	require.NoError(t, got.UnmarshalData(&data))
	assert.Equal(t, 3, data.Count)
}

func TestEvent_Key(t *testing.T) {
	ev, err := NewEvent("review.created", "item-1", "item", "review-service", nil)
	require.NoError(t, err)
	assert.Equal(t, "item-1", string(ev.Key()))

	ev.AggregateID = ""
	assert.Equal(t, ev.EventID, string(ev.Key()))
}

func TestUnmarshalEvent_Rejects(t *testing.T) {
	_, err := UnmarshalEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = UnmarshalEvent([]byte(`{"event_id":"x"}`))
	assert.ErrorContains(t, err, "missing event_type")

	_, err = UnmarshalEvent([]byte(`{"event_type":"review.created"}`))
	assert.ErrorContains(t, err, "missing event_id")
}

func TestUnmarshalData_Empty(t *testing.T) {
	ev := &Event{EventType: "review.created"}
	var v map[string]any
	assert.ErrorContains(t, ev.UnmarshalData(&v), "has no data")
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "vingo.review.created", Topic("review", "created"))
	assert.Equal(t, "vingo.dlq.vingo.review.created", DLQTopic(Topic("review", "created")))
}
