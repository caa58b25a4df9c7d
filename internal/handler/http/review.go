package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/khoitriso/review-service/internal/domain"
	"github.com/khoitriso/review-service/internal/service"
	apperrors "github.com/khoitriso/review-service/pkg/errors"
	"github.com/khoitriso/review-service/pkg/httputil"
	"github.com/khoitriso/review-service/pkg/middleware"
	"github.com/khoitriso/review-service/pkg/pagination"
	"github.com/khoitriso/review-service/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ReviewRequest is the JSON request body for creating or updating a review.
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Title   string `json:"title" validate:"max=200"`
	Content string `json:"content" validate:"required"`
}

// --- Helpers ---

// itemParams extracts and validates the {itemType}/{itemId} path segments.
func itemParams(w http.ResponseWriter, r *http.Request) (domain.ItemType, int64, bool) {
	itemType, err := domain.ParseItemType(chi.URLParam(r, "itemType"))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "item type must be course, book or learning_path"},
		})
		return 0, 0, false
	}

	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil || itemID <= 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "item id must be a positive integer"},
		})
		return 0, 0, false
	}

	return itemType, itemID, true
}

// --- Handlers ---

// ListReviews handles GET /api/v1/items/{itemType}/{itemId}/reviews
// @Summary List reviews for a learning item
// @Description Returns paginated reviews with the aggregate rating summary
// @Tags reviews
// @Produce json
// @Param itemType path string true "Item type (course, book, learning_path)"
// @Param itemId path int true "Item ID"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page (max 100)" default(20)
// @Param sort_by query string false "Sort field (createdAt, rating, helpfulCount)" default(createdAt)
// @Param sort_order query string false "Sort order (asc, desc)" default(desc)
// @Param rating query int false "Only reviews with this exact star rating"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/items/{itemType}/{itemId}/reviews [get]
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	itemType, itemID, ok := itemParams(w, r)
	if !ok {
		return
	}

	page := pagination.FromRequest(r)
	input := &service.ListReviewsInput{
		ItemType:  itemType,
		ItemID:    itemID,
		Page:      page.Page,
		PerPage:   page.PerPage,
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}

	if v := r.URL.Query().Get("rating"); v != "" {
		rating, err := strconv.Atoi(v)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("rating filter must be a number"), h.logger)
			return
		}
		input.Rating = &rating
	}

	result, err := h.service.ListReviews(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"data":        result.Reviews,
		"summary":     result.Summary,
		"total_count": result.TotalCount,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
	})
}

// GetSummary handles GET /api/v1/items/{itemType}/{itemId}/reviews/summary
// @Summary Get the rating summary for a learning item
// @Tags reviews
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/items/{itemType}/{itemId}/reviews/summary [get]
func (h *ReviewHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	itemType, itemID, ok := itemParams(w, r)
	if !ok {
		return
	}

	summary, err := h.service.GetSummary(r.Context(), itemType, itemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}

// GetMyReview handles GET /api/v1/items/{itemType}/{itemId}/reviews/me
// @Summary Get the authenticated user's review for a learning item
// @Tags reviews
// @Produce json
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/items/{itemType}/{itemId}/reviews/me [get]
func (h *ReviewHandler) GetMyReview(w http.ResponseWriter, r *http.Request) {
	itemType, itemID, ok := itemParams(w, r)
	if !ok {
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	review, err := h.service.GetUserReview(r.Context(), userID, itemType, itemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// CreateReview handles POST /api/v1/items/{itemType}/{itemId}/reviews
// @Summary Submit a review for a learning item
// @Description One review per user per item. Requires X-User-ID header.
// @Tags reviews
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user ID"
// @Param request body ReviewRequest true "Review to submit"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/items/{itemType}/{itemId}/reviews [post]
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	itemType, itemID, ok := itemParams(w, r)
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.CreateReviewInput{
		UserID:   middleware.UserIDFromContext(r.Context()),
		ItemType: itemType,
		ItemID:   itemID,
		Rating:   req.Rating,
		Title:    req.Title,
		Content:  req.Content,
	}

	review, err := h.service.CreateReview(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// UpdateReview handles PUT /api/v1/reviews/{reviewId}
// @Summary Edit a review
// @Description Only the author may edit their review.
// @Tags reviews
// @Accept json
// @Produce json
// @Param reviewId path string true "Review UUID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Param request body ReviewRequest true "Updated review"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/reviews/{reviewId} [put]
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewId"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.UpdateReview(r.Context(), &service.UpdateReviewInput{
		ReviewID: reviewID.String(),
		UserID:   middleware.UserIDFromContext(r.Context()),
		Rating:   req.Rating,
		Title:    req.Title,
		Content:  req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// DeleteReview handles DELETE /api/v1/reviews/{reviewId}
// @Summary Delete a review
// @Description Only the author may delete their review.
// @Tags reviews
// @Param reviewId path string true "Review UUID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 204 "review deleted"
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/reviews/{reviewId} [delete]
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewId"))
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), reviewID.String(), middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkHelpful handles POST /api/v1/reviews/{reviewId}/helpful
// @Summary Mark a review as helpful
// @Description One vote per user per review; repeat votes return 409.
// @Tags reviews
// @Produce json
// @Param reviewId path string true "Review UUID"
// @Param X-User-ID header string true "Authenticated user ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/reviews/{reviewId}/helpful [post]
func (h *ReviewHandler) MarkHelpful(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reviewId"))
	if !ok {
		return
	}

	count, err := h.service.MarkHelpful(r.Context(), reviewID.String(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"review_id":     reviewID.String(),
		"helpful_count": count,
	}})
}
