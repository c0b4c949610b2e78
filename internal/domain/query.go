package domain

import "strings"

// ReviewSort selects the ordering of a review listing.
type ReviewSort string

const (
	SortNewest  ReviewSort = "newest"
	SortOldest  ReviewSort = "oldest"
	SortHighest ReviewSort = "highest"
	SortLowest  ReviewSort = "lowest"
)

// ParseReviewSort maps a query value onto a sort key. Unknown and empty
// values fall back to SortNewest.
func ParseReviewSort(s string) ReviewSort {
	switch v := ReviewSort(strings.ToLower(strings.TrimSpace(s))); v {
	case SortNewest, SortOldest, SortHighest, SortLowest:
		return v
	default:
		return SortNewest
	}
}

// ReviewPage is one page of an item's reviews plus the item-wide histogram.
type ReviewPage struct {
	Reviews      []Review           `json:"reviews"`
	TotalCount   int                `json:"total_count"`
	TotalPages   int                `json:"total_pages"`
	CurrentPage  int                `json:"current_page"`
	PerPage      int                `json:"per_page"`
	Distribution RatingDistribution `json:"distribution"`
}
