package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
)

// EventPublisher emits review domain events. Implementations live in
// internal/event.
type EventPublisher interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
	PublishReviewUpdated(ctx context.Context, review *domain.Review) error
	PublishReviewDeleted(ctx context.Context, review *domain.Review) error
	PublishItemRatingUpdated(ctx context.Context, itemID string, rating domain.ItemRating) error
}

// RatingAggregator keeps Item.rating equal to the mean of the item's reviews.
type RatingAggregator struct {
	reviews repository.ReviewRepository
	items   repository.ItemRatingWriter
	events  EventPublisher
	logger  *slog.Logger
}

// NewRatingAggregator creates a new rating aggregator.
func NewRatingAggregator(reviews repository.ReviewRepository, items repository.ItemRatingWriter, events EventPublisher, logger *slog.Logger) *RatingAggregator {
	return &RatingAggregator{
		reviews: reviews,
		items:   items,
		events:  events,
		logger:  logger,
	}
}

// Recompute reads every rating of the item and replaces the stored aggregate.
// The aggregate is never adjusted incrementally.
func (a *RatingAggregator) Recompute(ctx context.Context, itemID string) (domain.ItemRating, error) {
	ratings, err := a.reviews.RatingsByItem(ctx, itemID)
	if err != nil {
		return domain.ItemRating{}, fmt.Errorf("load ratings: %w", err)
	}

	rating := domain.ComputeItemRating(ratings)
	if err := a.items.SetItemRating(ctx, itemID, rating); err != nil {
		return domain.ItemRating{}, fmt.Errorf("write item rating: %w", err)
	}
	ratingRecomputes.Inc()

	a.logger.DebugContext(ctx, "item rating recomputed",
		slog.String("item_id", itemID),
		slog.Float64("average", rating.Average),
		slog.Int("count", rating.Count),
	)

	if err := a.events.PublishItemRatingUpdated(ctx, itemID, rating); err != nil {
		sideEffectFailures.WithLabelValues("publish").Inc()
		a.logger.WarnContext(ctx, "failed to publish item rating event",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
	}

	return rating, nil
}
