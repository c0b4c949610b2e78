package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
	apperrors "github.com/utafrali/vingo-review/pkg/errors"
	"github.com/utafrali/vingo-review/pkg/pagination"
)

// ListReviewsInput selects a page of an item's reviews. Zero values fall back
// to page 1, the default page size and newest-first.
type ListReviewsInput struct {
	ItemID  string
	Page    int
	PerPage int
	Sort    string
}

// ReviewQueryService serves paginated review listings with the item-wide
// rating distribution.
type ReviewQueryService struct {
	reviews repository.ReviewRepository
	authors repository.AuthorReader
	cache   repository.ReviewPageCache
	logger  *slog.Logger
}

// NewReviewQueryService creates a new query service.
func NewReviewQueryService(reviews repository.ReviewRepository, authors repository.AuthorReader, cache repository.ReviewPageCache, logger *slog.Logger) *ReviewQueryService {
	return &ReviewQueryService{
		reviews: reviews,
		authors: authors,
		cache:   cache,
		logger:  logger,
	}
}

// ListReviews returns one page of reviews. A page past the end is empty, not
// an error.
func (s *ReviewQueryService) ListReviews(ctx context.Context, input ListReviewsInput) (*domain.ReviewPage, error) {
	if input.ItemID == "" {
		return nil, apperrors.InvalidInput("item_id is required")
	}

	params := pagination.New(input.Page, input.PerPage)
	filter := repository.ReviewFilter{
		ItemID:  input.ItemID,
		Sort:    domain.ParseReviewSort(input.Sort),
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	cached, version, cacheErr := s.cache.GetPage(ctx, filter)
	if cacheErr != nil {
		s.logger.WarnContext(ctx, "review cache read failed",
			slog.String("item_id", filter.ItemID),
			slog.String("error", cacheErr.Error()),
		)
	}
	if cached != nil {
		return cached, nil
	}

	reviews, total, err := s.reviews.ListByItem(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	counts, err := s.reviews.RatingCounts(ctx, filter.ItemID)
	if err != nil {
		return nil, fmt.Errorf("count ratings: %w", err)
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	s.attachAuthors(ctx, reviews)

	page := &domain.ReviewPage{
		Reviews:      reviews,
		TotalCount:   total,
		TotalPages:   pagination.TotalPages(total, filter.PerPage),
		CurrentPage:  filter.Page,
		PerPage:      filter.PerPage,
		Distribution: domain.NewRatingDistribution(counts),
	}

	// Only fill under a version we actually read.
	if cacheErr == nil {
		if err := s.cache.SetPage(ctx, filter, version, page); err != nil {
			s.logger.WarnContext(ctx, "review cache write failed",
				slog.String("item_id", filter.ItemID),
				slog.String("error", err.Error()),
			)
		}
	}

	return page, nil
}

func (s *ReviewQueryService) attachAuthors(ctx context.Context, reviews []domain.Review) {
	if len(reviews) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(reviews))
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if _, ok := seen[r.UserID]; !ok {
			seen[r.UserID] = struct{}{}
			ids = append(ids, r.UserID)
		}
	}

	authors, err := s.authors.GetAuthors(ctx, ids)
	if err != nil {
		sideEffectFailures.WithLabelValues("enrich").Inc()
		s.logger.WarnContext(ctx, "failed to load review authors",
			slog.Int("authors", len(ids)),
			slog.String("error", err.Error()),
		)
		return
	}

	for i := range reviews {
		if a, ok := authors[reviews[i].UserID]; ok {
			reviews[i].Author = &a
		}
	}
}
