package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReviewSort(t *testing.T) {
	tests := map[string]ReviewSort{
		"":         SortNewest,
		"newest":   SortNewest,
		"oldest":   SortOldest,
		"HIGHEST":  SortHighest,
		" lowest ": SortLowest,
		"random":   SortNewest,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseReviewSort(in), "input %q", in)
	}
}

func TestEligibility_CanReview(t *testing.T) {
	assert.True(t, (&Eligibility{HasPurchased: true}).CanReview())
	assert.False(t, (&Eligibility{HasPurchased: true, HasReviewed: true}).CanReview())
	assert.False(t, (&Eligibility{}).CanReview())
	assert.False(t, (&Eligibility{HasReviewed: true}).CanReview())
}

func TestReview_IsAuthoredBy(t *testing.T) {
	r := &Review{UserID: "u-1"}
	assert.True(t, r.IsAuthoredBy("u-1"))
	assert.False(t, r.IsAuthoredBy("u-2"))
}

func TestRatingDistribution_JSONKeys(t *testing.T) {
	raw, err := json.Marshal(NewRatingDistribution(map[int]int{4: 2}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":0,"2":0,"3":0,"4":2,"5":0}`, string(raw))
}
