package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/service"
	"github.com/utafrali/vingo-review/pkg/httputil"
	"github.com/utafrali/vingo-review/pkg/middleware"
	"github.com/utafrali/vingo-review/pkg/pagination"
	"github.com/utafrali/vingo-review/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	reviews     *service.ReviewService
	queries     *service.ReviewQueryService
	eligibility *service.EligibilityChecker
	logger      *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(
	reviews *service.ReviewService,
	queries *service.ReviewQueryService,
	eligibility *service.EligibilityChecker,
	logger *slog.Logger,
) *ReviewHandler {
	return &ReviewHandler{
		reviews:     reviews,
		queries:     queries,
		eligibility: eligibility,
		logger:      logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for creating a review.
type CreateReviewRequest struct {
	Rating int      `json:"rating" validate:"required,min=1,max=5"`
	Text   string   `json:"text" validate:"notblank,trimmax=500"`
	Images []string `json:"images" validate:"omitempty,max=5,dive,url"`
}

// UpdateReviewRequest is the JSON request body for editing a review.
type UpdateReviewRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Text   string `json:"text" validate:"notblank,trimmax=500"`
}

// --- Response DTOs ---

// ListReviewsResponse is the listing body. It is not wrapped in data to keep
// the shape existing clients read.
type ListReviewsResponse struct {
	Reviews      []domain.Review           `json:"reviews"`
	TotalCount   int                       `json:"total_count"`
	TotalPages   int                       `json:"total_pages"`
	CurrentPage  int                       `json:"current_page"`
	PerPage      int                       `json:"per_page"`
	Distribution domain.RatingDistribution `json:"distribution"`
}

// EligibilityResponse tells the client whether to offer the review form.
type EligibilityResponse struct {
	CanReview      bool           `json:"can_review"`
	HasPurchased   bool           `json:"has_purchased"`
	HasReviewed    bool           `json:"has_reviewed"`
	ExistingReview *domain.Review `json:"existing_review"`
}

// DeleteReviewResponse confirms a deletion.
type DeleteReviewResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// --- Handlers ---

// ListReviews handles GET /api/v1/items/{itemId}/reviews
// @Summary List item reviews
// @Description Returns paginated reviews for an item with the rating distribution
// @Tags reviews
// @Produce json
// @Param itemId path string true "Item ID"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page (max 100), alias limit" default(10)
// @Param sort query string false "newest, oldest, highest or lowest" default(newest)
// @Success 200 {object} ListReviewsResponse
// @Router /api/v1/items/{itemId}/reviews [get]
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	result, err := h.queries.ListReviews(r.Context(), service.ListReviewsInput{
		ItemID:  chi.URLParam(r, "itemId"),
		Page:    params.Page,
		PerPage: params.PerPage,
		Sort:    r.URL.Query().Get("sort"),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListReviewsResponse{
		Reviews:      result.Reviews,
		TotalCount:   result.TotalCount,
		TotalPages:   result.TotalPages,
		CurrentPage:  result.CurrentPage,
		PerPage:      result.PerPage,
		Distribution: result.Distribution,
	})
}

// CreateReview handles POST /api/v1/items/{itemId}/reviews
// @Summary Review a delivered item
// @Tags reviews
// @Accept json
// @Produce json
// @Param itemId path string true "Item ID"
// @Param request body CreateReviewRequest true "Review to submit"
// @Success 201 {object} httputil.Response
// @Failure 400 {object} httputil.Response
// @Failure 403 {object} httputil.Response
// @Router /api/v1/items/{itemId}/reviews [post]
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	review, err := h.reviews.CreateReview(r.Context(), &service.CreateReviewInput{
		ItemID: chi.URLParam(r, "itemId"),
		UserID: middleware.UserIDFromContext(r.Context()),
		Rating: req.Rating,
		Text:   req.Text,
		Images: req.Images,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// CheckEligibility handles GET /api/v1/items/{itemId}/reviews/eligibility
func (h *ReviewHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	elig, err := h.eligibility.Check(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "itemId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: EligibilityResponse{
		CanReview:      elig.CanReview(),
		HasPurchased:   elig.HasPurchased,
		HasReviewed:    elig.HasReviewed,
		ExistingReview: elig.ExistingReview,
	}})
}

// UpdateReview handles PUT /api/v1/reviews/{reviewId}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	var req UpdateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	review, err := h.reviews.UpdateReview(r.Context(), &service.UpdateReviewInput{
		ReviewID: chi.URLParam(r, "reviewId"),
		UserID:   middleware.UserIDFromContext(r.Context()),
		Rating:   req.Rating,
		Text:     req.Text,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// DeleteReview handles DELETE /api/v1/reviews/{reviewId}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewId")

	if err := h.reviews.DeleteReview(r.Context(), reviewID, middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: DeleteReviewResponse{
		ID:      reviewID,
		Message: "review deleted",
	}})
}

// RecomputeRating handles POST /api/v1/items/{itemId}/rating/recompute (admin)
func (h *ReviewHandler) RecomputeRating(w http.ResponseWriter, r *http.Request) {
	rating, err := h.reviews.RecomputeItemRating(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: rating})
}
