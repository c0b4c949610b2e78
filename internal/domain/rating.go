package domain

import "sort"

// ItemRating is the denormalized aggregate stored on an item.
type ItemRating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// ComputeItemRating returns the mean of ratings rounded half-up to one
// decimal, and their count. An empty set yields {0, 0}.
//
// Rounding is done on integers so that means such as 4.25 or 4.35 land on
// 4.3 and 4.4 rather than on the nearest binary float below them.
func ComputeItemRating(ratings []int) ItemRating {
	n := len(ratings)
	if n == 0 {
		return ItemRating{}
	}

	sum := 0
	for _, r := range ratings {
		sum += r
	}

	// round(sum*10/n) for non-negative sums: floor((20*sum + n) / 2n).
	tenths := (sum*20 + n) / (2 * n)
	return ItemRating{Average: float64(tenths) / 10, Count: n}
}

// RatingDistribution maps each star value to its review count.
type RatingDistribution map[int]int

// NewRatingDistribution builds a distribution with every star value from
// MinRating to MaxRating present. Counts for values outside that range are
// ignored.
func NewRatingDistribution(counts map[int]int) RatingDistribution {
	d := make(RatingDistribution, MaxRating-MinRating+1)
	for star := MinRating; star <= MaxRating; star++ {
		d[star] = counts[star]
	}
	return d
}

// Total sums all counts.
func (d RatingDistribution) Total() int {
	total := 0
	for _, c := range d {
		total += c
	}
	return total
}

// SelectOrder picks the order a new review is bound to: the oldest one,
// ties broken by ID. It returns false for an empty slice. The input is not
// modified.
func SelectOrder(orders []OrderRef) (OrderRef, bool) {
	if len(orders) == 0 {
		return OrderRef{}, false
	}

	sorted := make([]OrderRef, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0], true
}
