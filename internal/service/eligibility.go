package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
	apperrors "github.com/utafrali/vingo-review/pkg/errors"
)

// EligibilityChecker decides whether a user may review an item.
type EligibilityChecker struct {
	orders  repository.OrderReader
	reviews repository.ReviewRepository
}

// NewEligibilityChecker creates a new eligibility checker.
func NewEligibilityChecker(orders repository.OrderReader, reviews repository.ReviewRepository) *EligibilityChecker {
	return &EligibilityChecker{
		orders:  orders,
		reviews: reviews,
	}
}

// Check reports whether userID has a delivered order containing itemID and
// whether they already reviewed it. It never writes.
func (c *EligibilityChecker) Check(ctx context.Context, userID, itemID string) (*domain.Eligibility, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if itemID == "" {
		return nil, apperrors.InvalidInput("item_id is required")
	}

	orders, err := c.orders.FindOrdersByUserAndItemStatus(ctx, userID, itemID, domain.OrderStatusDelivered)
	if err != nil {
		return nil, fmt.Errorf("find delivered orders: %w", err)
	}

	existing, err := c.reviews.GetByItemAndUser(ctx, itemID, userID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, fmt.Errorf("find existing review: %w", err)
	}

	return &domain.Eligibility{
		HasPurchased:    len(orders) > 0,
		HasReviewed:     existing != nil,
		ExistingReview:  existing,
		DeliveredOrders: orders,
	}, nil
}
