package repository

import (
	"context"
	"math"

	"github.com/utafrali/vingo-review/internal/domain"
)

// ReviewFilter selects one page of an item's reviews.
type ReviewFilter struct {
	ItemID  string
	Sort    domain.ReviewSort
	Page    int
	PerPage int
}

// Offset returns the number of rows to skip. Page is 1-indexed. Offsets too
// large for an int saturate at math.MaxInt, which every store treats as past
// the last row.
func (f ReviewFilter) Offset() int {
	if f.Page <= 1 || f.PerPage <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.PerPage {
		return math.MaxInt
	}
	return (f.Page - 1) * f.PerPage
}

// ReviewRepository is the review ledger. Implementations enforce uniqueness of
// (item, user) in storage and report a violation as domain.ErrAlreadyReviewed.
type ReviewRepository interface {
	// Create inserts a review, assigning an ID in the store's format when
	// review.ID is empty. Timestamps must already be set.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID returns apperrors.ErrNotFound when no review has the ID.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// GetByItemAndUser returns apperrors.ErrNotFound when the user has not
	// reviewed the item.
	GetByItemAndUser(ctx context.Context, itemID, userID string) (*domain.Review, error)

	// UpdateContent persists rating, text and updated_at of an existing review.
	UpdateContent(ctx context.Context, review *domain.Review) error

	// Delete removes a review, returning apperrors.ErrNotFound if it is gone.
	Delete(ctx context.Context, id string) error

	// ListByItem returns one sorted page of reviews and the item's total count.
	ListByItem(ctx context.Context, filter ReviewFilter) ([]domain.Review, int, error)

	// RatingsByItem returns the rating of every review of the item.
	RatingsByItem(ctx context.Context, itemID string) ([]int, error)

	// RatingCounts returns review counts per rating value for the item.
	RatingCounts(ctx context.Context, itemID string) (map[int]int, error)
}

// OrderReader is the read-only view of the order ledger.
type OrderReader interface {
	// FindOrdersByUserAndItemStatus returns the user's orders that contain
	// the item and are in the given fulfillment status.
	FindOrdersByUserAndItemStatus(ctx context.Context, userID, itemID, status string) ([]domain.OrderRef, error)
}

// ItemRatingWriter owns the single writable field of the item catalog.
type ItemRatingWriter interface {
	// SetItemRating replaces the item's aggregate wholesale.
	SetItemRating(ctx context.Context, itemID string, rating domain.ItemRating) error

	// GetItemRating returns the stored aggregate.
	GetItemRating(ctx context.Context, itemID string) (domain.ItemRating, error)
}

// AuthorReader resolves public display fields of review authors.
type AuthorReader interface {
	// GetAuthors returns authors keyed by user ID. Unknown IDs are omitted.
	GetAuthors(ctx context.Context, userIDs []string) (map[string]domain.Author, error)
}

// ReviewPageCache caches listing pages per item. Reads return the item's
// cache version alongside the page; writes are stored under that version so
// a page computed before an invalidation is never served after it.
type ReviewPageCache interface {
	// GetPage returns the cached page or nil on a miss.
	GetPage(ctx context.Context, filter ReviewFilter) (*domain.ReviewPage, int64, error)

	// SetPage stores page under the version returned by GetPage.
	SetPage(ctx context.Context, filter ReviewFilter, version int64, page *domain.ReviewPage) error

	// Invalidate retires every cached page of the item.
	Invalidate(ctx context.Context, itemID string) error
}
