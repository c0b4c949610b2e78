package domain

// Eligibility is the outcome of checking whether a user may review an item.
type Eligibility struct {
	HasPurchased   bool    `json:"has_purchased"`
	HasReviewed    bool    `json:"has_reviewed"`
	ExistingReview *Review `json:"existing_review"`

	// DeliveredOrders are the user's delivered orders containing the item.
	DeliveredOrders []OrderRef `json:"-"`
}

// CanReview reports whether a new review would be accepted.
func (e *Eligibility) CanReview() bool {
	return e.HasPurchased && !e.HasReviewed
}
