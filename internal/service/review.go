package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
	apperrors "github.com/utafrali/vingo-review/pkg/errors"
)

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	ItemID string
	UserID string
	Rating int
	Text   string
	Images []string
}

// UpdateReviewInput holds the parameters for editing a review. Only rating
// and text change; the order binding and images are fixed at creation.
type UpdateReviewInput struct {
	ReviewID string
	UserID   string
	Rating   int
	Text     string
}

// errAlreadyReviewed renders as 400 ALREADY_REVIEWED, which existing clients
// key on, while still matching apperrors.ErrConflict.
func errAlreadyReviewed() error {
	return apperrors.ConflictWithStatus("ALREADY_REVIEWED", "you have already reviewed this item", http.StatusBadRequest)
}

// ReviewService owns the review lifecycle: create, update and delete, each
// followed by a full recompute of the item's rating.
type ReviewService struct {
	reviews     repository.ReviewRepository
	eligibility *EligibilityChecker
	aggregator  *RatingAggregator
	authors     repository.AuthorReader
	cache       repository.ReviewPageCache
	events      EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	eligibility *EligibilityChecker,
	aggregator *RatingAggregator,
	authors repository.AuthorReader,
	cache repository.ReviewPageCache,
	events EventPublisher,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:     reviews,
		eligibility: eligibility,
		aggregator:  aggregator,
		authors:     authors,
		cache:       cache,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

func validateContent(rating int, text string) (string, error) {
	if rating < domain.MinRating || rating > domain.MaxRating {
		return "", apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.InvalidInput("review text is required")
	}
	if utf8.RuneCountInString(text) > domain.MaxTextLength {
		return "", apperrors.InvalidInput(fmt.Sprintf("review text must be at most %d characters", domain.MaxTextLength))
	}
	return text, nil
}

func validateImages(images []string) ([]string, error) {
	if len(images) > domain.MaxImages {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d images are allowed", domain.MaxImages))
	}
	out := make([]string, 0, len(images))
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			return nil, apperrors.InvalidInput("image url must not be empty")
		}
		out = append(out, img)
	}
	return out, nil
}

// CreateReview records a review for an item the user received. Business
// rules are checked before anything is written.
func (s *ReviewService) CreateReview(ctx context.Context, input *CreateReviewInput) (*domain.Review, error) {
	if input.UserID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if input.ItemID == "" {
		return nil, apperrors.InvalidInput("item_id is required")
	}
	text, err := validateContent(input.Rating, input.Text)
	if err != nil {
		return nil, err
	}
	images, err := validateImages(input.Images)
	if err != nil {
		return nil, err
	}

	elig, err := s.eligibility.Check(ctx, input.UserID, input.ItemID)
	if err != nil {
		return nil, fmt.Errorf("check eligibility: %w", err)
	}
	if !elig.HasPurchased {
		reviewRejections.WithLabelValues("not_purchased").Inc()
		return nil, apperrors.Forbidden("you can only review items from your delivered orders")
	}
	if elig.HasReviewed {
		reviewRejections.WithLabelValues("already_reviewed").Inc()
		return nil, errAlreadyReviewed()
	}

	order, _ := domain.SelectOrder(elig.DeliveredOrders)
	now := s.now().UTC()
	review := &domain.Review{
		ItemID:    input.ItemID,
		UserID:    input.UserID,
		OrderID:   order.ID,
		Rating:    input.Rating,
		Text:      text,
		Images:    images,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, domain.ErrAlreadyReviewed) {
			reviewRejections.WithLabelValues("already_reviewed").Inc()
			return nil, errAlreadyReviewed()
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	reviewMutations.WithLabelValues("create").Inc()

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("item_id", review.ItemID),
		slog.String("user_id", review.UserID),
		slog.String("order_id", review.OrderID),
		slog.Int("rating", review.Rating),
	)

	s.recompute(ctx, review.ItemID)
	s.attachAuthor(ctx, review)
	if err := s.events.PublishReviewCreated(ctx, review); err != nil {
		s.warnSideEffect(ctx, "publish", review, err)
	}
	s.invalidate(ctx, review)

	return review, nil
}

// UpdateReview changes the rating and text of the caller's own review.
func (s *ReviewService) UpdateReview(ctx context.Context, input *UpdateReviewInput) (*domain.Review, error) {
	if input.UserID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	text, err := validateContent(input.Rating, input.Text)
	if err != nil {
		return nil, err
	}

	review, err := s.reviews.GetByID(ctx, input.ReviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if !review.IsAuthoredBy(input.UserID) {
		reviewRejections.WithLabelValues("not_author").Inc()
		return nil, apperrors.Forbidden("you can only edit your own reviews")
	}

	review.Rating = input.Rating
	review.Text = text
	review.UpdatedAt = s.now().UTC()

	if err := s.reviews.UpdateContent(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	reviewMutations.WithLabelValues("update").Inc()

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("item_id", review.ItemID),
		slog.Int("rating", review.Rating),
	)

	s.recompute(ctx, review.ItemID)
	s.attachAuthor(ctx, review)
	if err := s.events.PublishReviewUpdated(ctx, review); err != nil {
		s.warnSideEffect(ctx, "publish", review, err)
	}
	s.invalidate(ctx, review)

	return review, nil
}

// DeleteReview removes the caller's own review.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, userID string) error {
	if userID == "" {
		return apperrors.Unauthorized("authentication required")
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	if !review.IsAuthoredBy(userID) {
		reviewRejections.WithLabelValues("not_author").Inc()
		return apperrors.Forbidden("you can only delete your own reviews")
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	reviewMutations.WithLabelValues("delete").Inc()

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", review.ID),
		slog.String("item_id", review.ItemID),
	)

	s.recompute(ctx, review.ItemID)
	if err := s.events.PublishReviewDeleted(ctx, review); err != nil {
		s.warnSideEffect(ctx, "publish", review, err)
	}
	s.invalidate(ctx, review)

	return nil
}

// RecomputeItemRating rebuilds the aggregate of one item on demand.
func (s *ReviewService) RecomputeItemRating(ctx context.Context, itemID string) (domain.ItemRating, error) {
	if itemID == "" {
		return domain.ItemRating{}, apperrors.InvalidInput("item_id is required")
	}
	rating, err := s.aggregator.Recompute(ctx, itemID)
	if err != nil {
		return domain.ItemRating{}, fmt.Errorf("recompute item rating: %w", err)
	}
	return rating, nil
}

// recompute runs after a committed write; a failure leaves the aggregate
// stale until the next mutation or the repair consumer fixes it.
func (s *ReviewService) recompute(ctx context.Context, itemID string) {
	if _, err := s.aggregator.Recompute(ctx, itemID); err != nil {
		sideEffectFailures.WithLabelValues("recompute").Inc()
		s.logger.ErrorContext(ctx, "failed to recompute item rating",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ReviewService) attachAuthor(ctx context.Context, review *domain.Review) {
	authors, err := s.authors.GetAuthors(ctx, []string{review.UserID})
	if err != nil {
		s.warnSideEffect(ctx, "enrich", review, err)
		return
	}
	if a, ok := authors[review.UserID]; ok {
		review.Author = &a
	}
}

func (s *ReviewService) invalidate(ctx context.Context, review *domain.Review) {
	if err := s.cache.Invalidate(ctx, review.ItemID); err != nil {
		s.warnSideEffect(ctx, "cache", review, err)
	}
}

func (s *ReviewService) warnSideEffect(ctx context.Context, step string, review *domain.Review, err error) {
	sideEffectFailures.WithLabelValues(step).Inc()
	s.logger.WarnContext(ctx, "review side effect failed",
		slog.String("step", step),
		slog.String("review_id", review.ID),
		slog.String("item_id", review.ItemID),
		slog.String("error", err.Error()),
	)
}
