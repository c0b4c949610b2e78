package domain

import (
	"errors"
	"time"
)

// Rating bounds and text limits for a review.
const (
	MinRating     = 1
	MaxRating     = 5
	MaxTextLength = 500
	MaxImages     = 5
)

// OrderStatusDelivered is the only order status that confers review eligibility.
const OrderStatusDelivered = "delivered"

// ErrAlreadyReviewed marks a second review attempt for the same (item, user).
var ErrAlreadyReviewed = errors.New("item already reviewed by user")

// Review is one user's opinion of one purchased item.
type Review struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	UserID    string    `json:"user_id"`
	OrderID   string    `json:"order_id"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author *Author `json:"author,omitempty"`
}

// IsAuthoredBy reports whether userID wrote the review.
func (r *Review) IsAuthoredBy(userID string) bool {
	return r.UserID == userID
}

// Author holds the public display fields of a review's author.
type Author struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// OrderRef is the slice of an order needed to establish eligibility.
type OrderRef struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
