package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Params holds 1-indexed pagination parameters.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// New normalizes raw page values: a page below 1 becomes 1, a non-positive
// page size becomes DefaultPerPage and an oversized one is capped at MaxPerPage.
func New(page, perPage int) Params {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case perPage <= 0:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage}
}

// FromRequest reads page and per_page from the query string. limit is
// accepted as an alias of per_page; unparsable values fall back to defaults.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))

	raw := q.Get("per_page")
	if raw == "" {
		raw = q.Get("limit")
	}
	perPage, _ := strconv.Atoi(raw)

	return New(page, perPage)
}

// Offset is the number of rows to skip for this page, saturating at
// math.MaxInt instead of overflowing.
func (p Params) Offset() int {
	if p.Page <= 1 || p.PerPage <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PerPage {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PerPage
}

// TotalPages returns ceil(total / perPage), and 0 for an empty set.
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
