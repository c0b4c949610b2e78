// Package event publishes review domain events and consumes them to keep
// item rating aggregates converged.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/vingo-review/internal/domain"
	pkgkafka "github.com/utafrali/vingo-review/pkg/kafka"
	"github.com/utafrali/vingo-review/pkg/logger"
)

// Kafka topics owned by the review service.
var (
	TopicReviewCreated     = pkgkafka.Topic("review", "created")
	TopicReviewUpdated     = pkgkafka.Topic("review", "updated")
	TopicReviewDeleted     = pkgkafka.Topic("review", "deleted")
	TopicItemRatingUpdated = pkgkafka.Topic("item", "rating_updated")
)

// ReviewTopics are the topics the rating-repair consumer subscribes to.
func ReviewTopics() []string {
	return []string{TopicReviewCreated, TopicReviewUpdated, TopicReviewDeleted}
}

// Events are keyed by item so all mutations of an item share a partition.
const AggregateTypeItem = "item"

// SourceReviewService identifies events emitted by this service.
const SourceReviewService = "review-service"

// ReviewEventData is the payload of review.created and review.updated.
type ReviewEventData struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	UserID    string    `json:"user_id"`
	OrderID   string    `json:"order_id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	Images    []string  `json:"images,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewDeletedData is the payload of review.deleted.
type ReviewDeletedData struct {
	ID     string `json:"id"`
	ItemID string `json:"item_id"`
	UserID string `json:"user_id"`
}

// ItemRatingUpdatedData is the payload of item.rating_updated.
type ItemRatingUpdatedData struct {
	ItemID  string  `json:"item_id"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Publisher is the subset of pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func reviewData(r *domain.Review) ReviewEventData {
	return ReviewEventData{
		ID:        r.ID,
		ItemID:    r.ItemID,
		UserID:    r.UserID,
		OrderID:   r.OrderID,
		Rating:    r.Rating,
		Text:      r.Text,
		Images:    r.Images,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, review.ItemID, reviewData(review))
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, review.ItemID, reviewData(review))
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewDeleted, review.ItemID, ReviewDeletedData{
		ID:     review.ID,
		ItemID: review.ItemID,
		UserID: review.UserID,
	})
}

// PublishItemRatingUpdated publishes an item.rating_updated event.
func (p *Producer) PublishItemRatingUpdated(ctx context.Context, itemID string, rating domain.ItemRating) error {
	return p.publish(ctx, TopicItemRatingUpdated, itemID, ItemRatingUpdatedData{
		ItemID:  itemID,
		Average: rating.Average,
		Count:   rating.Count,
	})
}

func (p *Producer) publish(ctx context.Context, topic, itemID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, itemID, AggregateTypeItem, SourceReviewService, data,
		pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx)),
		pkgkafka.WithMetadata("user_id", logger.UserIDFromContext(ctx)),
	)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("item_id", itemID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

// Noop discards events. It is used when Kafka is not configured.
type Noop struct{}

func (Noop) PublishReviewCreated(context.Context, *domain.Review) error { return nil }
func (Noop) PublishReviewUpdated(context.Context, *domain.Review) error { return nil }
func (Noop) PublishReviewDeleted(context.Context, *domain.Review) error { return nil }

func (Noop) PublishItemRatingUpdated(context.Context, string, domain.ItemRating) error {
	return nil
}
