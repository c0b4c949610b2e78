package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/vingo-review/internal/domain"
	pkgkafka "github.com/utafrali/vingo-review/pkg/kafka"
	"github.com/utafrali/vingo-review/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingPublisher struct {
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return p.err
}

func sampleReview() *domain.Review {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Review{
		ID: "r-1", ItemID: "item-1", UserID: "u-1", OrderID: "o-1",
		Rating: 4, Text: "tasty", CreatedAt: at, UpdatedAt: at,
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "vingo.review.created", TopicReviewCreated)
	assert.Equal(t, "vingo.review.updated", TopicReviewUpdated)
	assert.Equal(t, "vingo.review.deleted", TopicReviewDeleted)
	assert.Equal(t, "vingo.item.rating_updated", TopicItemRatingUpdated)
	assert.NotContains(t, ReviewTopics(), TopicItemRatingUpdated)
}

func TestProducer_PublishReviewCreated(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, testLogger())
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ctx = logger.WithUserID(ctx, "u-1")

	require.NoError(t, p.PublishReviewCreated(ctx, sampleReview()))

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, TopicReviewCreated, pub.topics[0])
	assert.Equal(t, TopicReviewCreated, ev.EventType)
	assert.Equal(t, "item-1", ev.AggregateID, "events are keyed by item")
	assert.Equal(t, AggregateTypeItem, ev.AggregateType)
	assert.Equal(t, SourceReviewService, ev.Source)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, "u-1", ev.Metadata["user_id"])

	var data ReviewEventData
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	assert.Equal(t, "r-1", data.ID)
	assert.Equal(t, "o-1", data.OrderID)
	assert.Equal(t, 4, data.Rating)
}

func TestProducer_PublishDeletedAndRating(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, testLogger())

	require.NoError(t, p.PublishReviewDeleted(context.Background(), sampleReview()))
	require.NoError(t, p.PublishItemRatingUpdated(context.Background(), "item-1", domain.ItemRating{Average: 4.3, Count: 4}))

	assert.Equal(t, []string{TopicReviewDeleted, TopicItemRatingUpdated}, pub.topics)

	var deleted ReviewDeletedData
	require.NoError(t, json.Unmarshal(pub.events[0].Data, &deleted))
	assert.Equal(t, ReviewDeletedData{ID: "r-1", ItemID: "item-1", UserID: "u-1"}, deleted)

	var rating ItemRatingUpdatedData
	require.NoError(t, json.Unmarshal(pub.events[1].Data, &rating))
	assert.Equal(t, ItemRatingUpdatedData{ItemID: "item-1", Average: 4.3, Count: 4}, rating)
}

func TestProducer_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	p := NewProducer(pub, testLogger())

	err := p.PublishReviewUpdated(context.Background(), sampleReview())
	assert.ErrorContains(t, err, "publish vingo.review.updated event")
}

type mockRecomputer struct{ mock.Mock }

func (m *mockRecomputer) Recompute(ctx context.Context, itemID string) (domain.ItemRating, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(domain.ItemRating), args.Error(1)
}

func newEvent(t *testing.T, eventType, aggregateID string, data any) *pkgkafka.Event {
	t.Helper()
	ev, err := pkgkafka.NewEvent(eventType, aggregateID, AggregateTypeItem, SourceReviewService, data)
	require.NoError(t, err)
	return ev
}

func TestRatingRepairConsumer_Recomputes(t *testing.T) {
	for _, topic := range ReviewTopics() {
		t.Run(topic, func(t *testing.T) {
			agg := new(mockRecomputer)
			agg.On("Recompute", mock.Anything, "item-1").Return(domain.ItemRating{Average: 4, Count: 1}, nil).Once()
			c := NewRatingRepairConsumer(agg, testLogger())

			err := c.Handle(context.Background(), newEvent(t, topic, "item-1", ReviewDeletedData{ID: "r-1", ItemID: "item-1"}))
			require.NoError(t, err)
			agg.AssertExpectations(t)
		})
	}
}

func TestRatingRepairConsumer_FallsBackToAggregateID(t *testing.T) {
	agg := new(mockRecomputer)
	agg.On("Recompute", mock.Anything, "item-9").Return(domain.ItemRating{}, nil).Once()
	c := NewRatingRepairConsumer(agg, testLogger())

	require.NoError(t, c.Handle(context.Background(), newEvent(t, TopicReviewDeleted, "item-9", map[string]string{"id": "r-1"})))
	agg.AssertExpectations(t)
}

func TestRatingRepairConsumer_IgnoresOtherTopics(t *testing.T) {
	agg := new(mockRecomputer)
	c := NewRatingRepairConsumer(agg, testLogger())

	require.NoError(t, c.Handle(context.Background(), newEvent(t, TopicItemRatingUpdated, "item-1", ItemRatingUpdatedData{ItemID: "item-1"})))
	agg.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestRatingRepairConsumer_RecomputeError(t *testing.T) {
	agg := new(mockRecomputer)
	agg.On("Recompute", mock.Anything, "item-1").Return(domain.ItemRating{}, errors.New("db down"))
	c := NewRatingRepairConsumer(agg, testLogger())

	err := c.Handle(context.Background(), newEvent(t, TopicReviewCreated, "item-1", reviewData(sampleReview())))
	assert.ErrorContains(t, err, "recompute rating from vingo.review.created event")
}

func TestRatingRepairConsumer_BadPayload(t *testing.T) {
	agg := new(mockRecomputer)
	c := NewRatingRepairConsumer(agg, testLogger())
	ev := newEvent(t, TopicReviewCreated, "item-1", nil)
	ev.Data = json.RawMessage(`[1,2]`)

	assert.Error(t, c.Handle(context.Background(), ev))
}
