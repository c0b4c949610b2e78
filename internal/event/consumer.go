package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/vingo-review/internal/domain"
	pkgkafka "github.com/utafrali/vingo-review/pkg/kafka"
)

// Recomputer rebuilds an item's rating aggregate from its reviews.
type Recomputer interface {
	Recompute(ctx context.Context, itemID string) (domain.ItemRating, error)
}

type itemRef struct {
	ItemID string `json:"item_id"`
}

// RatingRepairConsumer recomputes the item aggregate after every review
// event. The synchronous recompute on the write path is best-effort; this
// brings the aggregate back in line when it failed or two writers raced.
type RatingRepairConsumer struct {
	aggregator Recomputer
	logger     *slog.Logger
}

// NewRatingRepairConsumer creates a consumer backed by aggregator.
func NewRatingRepairConsumer(aggregator Recomputer, logger *slog.Logger) *RatingRepairConsumer {
	return &RatingRepairConsumer{
		aggregator: aggregator,
		logger:     logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *RatingRepairConsumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicReviewCreated, TopicReviewUpdated, TopicReviewDeleted:
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	var ref itemRef
	if err := event.UnmarshalData(&ref); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	itemID := ref.ItemID
	if itemID == "" {
		itemID = event.AggregateID
	}
	if itemID == "" {
		c.logger.WarnContext(ctx, "review event without item id",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	rating, err := c.aggregator.Recompute(ctx, itemID)
	if err != nil {
		return fmt.Errorf("recompute rating from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "repaired item rating",
		slog.String("item_id", itemID),
		slog.String("event_type", event.EventType),
		slog.Float64("average", rating.Average),
		slog.Int("count", rating.Count),
	)
	return nil
}
