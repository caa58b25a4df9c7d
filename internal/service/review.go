package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/khoitriso/review-service/internal/cache"
	"github.com/khoitriso/review-service/internal/domain"
	"github.com/khoitriso/review-service/internal/repository"
	apperrors "github.com/khoitriso/review-service/pkg/errors"
)

// Content length bounds, counted in characters rather than bytes so that
// non-ASCII content is measured the way users see it.
const (
	minContentLength = 10
	maxContentLength = 2000
	maxTitleLength   = 200
)

// EventPublisher publishes review domain events.
type EventPublisher interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
	PublishReviewUpdated(ctx context.Context, review *domain.Review) error
	PublishReviewDeleted(ctx context.Context, review *domain.Review) error
	PublishHelpfulVoted(ctx context.Context, reviewID, voterID string, helpfulCount int) error
}

// SummaryCache caches computed review summaries.
type SummaryCache interface {
	Get(ctx context.Context, itemType domain.ItemType, itemID int64) (*domain.ReviewSummary, error)
	Set(ctx context.Context, summary *domain.ReviewSummary) error
	Invalidate(ctx context.Context, itemType domain.ItemType, itemID int64) error
}

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	UserID   string
	ItemType domain.ItemType
	ItemID   int64
	Rating   int
	Title    string
	Content  string
}

// UpdateReviewInput holds the parameters for editing a review.
type UpdateReviewInput struct {
	ReviewID string
	UserID   string
	Rating   int
	Title    string
	Content  string
}

// ListReviewsInput holds the parameters for listing reviews of an item.
type ListReviewsInput struct {
	ItemType  domain.ItemType
	ItemID    int64
	Rating    *int
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

// ReviewListResult contains a page of reviews plus the aggregate summary.
type ReviewListResult struct {
	Reviews    []domain.Review       `json:"reviews"`
	Summary    *domain.ReviewSummary `json:"summary"`
	TotalCount int                   `json:"total_count"`
	Page       int                   `json:"page"`
	PerPage    int                   `json:"per_page"`
	TotalPages int                   `json:"total_pages"`
}

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	reviews      repository.ReviewRepository
	entitlements repository.EntitlementRepository
	events       EventPublisher
	summaries    SummaryCache
	logger       *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	entitlements repository.EntitlementRepository,
	events EventPublisher,
	summaries SummaryCache,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:      reviews,
		entitlements: entitlements,
		events:       events,
		summaries:    summaries,
		logger:       logger,
	}
}

// CreateReview validates the input, marks the review as a verified purchase
// when the user owns the item, and persists it. A user gets one review per
// item; a second attempt fails with ALREADY_EXISTS.
func (s *ReviewService) CreateReview(ctx context.Context, input *CreateReviewInput) (*domain.Review, error) {
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}
	if !input.ItemType.Valid() {
		return nil, apperrors.InvalidInput("item_type must be course, book or learning_path")
	}
	if input.ItemID <= 0 {
		return nil, apperrors.InvalidInput("item_id must be positive")
	}

	rating, title, content, err := validateReviewFields(input.Rating, input.Title, input.Content)
	if err != nil {
		return nil, err
	}

	verified, err := s.entitlements.HasEntitlement(ctx, input.UserID, input.ItemType, input.ItemID)
	if err != nil {
		return nil, fmt.Errorf("check entitlement: %w", err)
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:                 uuid.New().String(),
		UserID:             input.UserID,
		ItemType:           input.ItemType,
		ItemID:             input.ItemID,
		Rating:             rating,
		Title:              title,
		Content:            content,
		IsVerifiedPurchase: verified,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.AlreadyExists("review", "you have already reviewed this item")
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("user_id", review.UserID),
		slog.String("item_type", review.ItemType.String()),
		slog.Int64("item_id", review.ItemID),
		slog.Int("rating", review.Rating),
		slog.Bool("verified_purchase", review.IsVerifiedPurchase),
	)

	s.afterMutation(ctx, review, s.events.PublishReviewCreated)

	return review, nil
}

// GetReview retrieves a single review by its identifier.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// GetUserReview retrieves the review the given user wrote for an item, so
// callers don't have to page through the full listing to find their own.
func (s *ReviewService) GetUserReview(ctx context.Context, userID string, itemType domain.ItemType, itemID int64) (*domain.Review, error) {
	if !itemType.Valid() {
		return nil, apperrors.InvalidInput("item_type must be course, book or learning_path")
	}

	review, err := s.reviews.GetByUserAndItem(ctx, userID, itemType, itemID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", fmt.Sprintf("%s/%d", itemType, itemID))
		}
		return nil, fmt.Errorf("get user review: %w", err)
	}
	return review, nil
}

// ListReviews returns a page of reviews for an item along with the
// aggregate summary. Unknown sort fields fall back to newest-first.
func (s *ReviewService) ListReviews(ctx context.Context, input *ListReviewsInput) (*ReviewListResult, error) {
	if !input.ItemType.Valid() {
		return nil, apperrors.InvalidInput("item_type must be course, book or learning_path")
	}
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return nil, apperrors.InvalidInput("rating filter must be between 1 and 5")
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}
	perPage := input.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	reviews, total, err := s.reviews.List(ctx, repository.ReviewFilter{
		ItemType:  input.ItemType,
		ItemID:    input.ItemID,
		Rating:    input.Rating,
		SortBy:    input.SortBy,
		SortOrder: input.SortOrder,
		Limit:     perPage,
		Offset:    (page - 1) * perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	summary, err := s.GetSummary(ctx, input.ItemType, input.ItemID)
	if err != nil {
		return nil, err
	}

	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}

	return &ReviewListResult{
		Reviews:    reviews,
		Summary:    summary,
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// GetSummary returns the aggregate rating statistics for an item, served
// from cache when possible. Cache failures degrade to a database read.
func (s *ReviewService) GetSummary(ctx context.Context, itemType domain.ItemType, itemID int64) (*domain.ReviewSummary, error) {
	if !itemType.Valid() {
		return nil, apperrors.InvalidInput("item_type must be course, book or learning_path")
	}

	cached, err := s.summaries.Get(ctx, itemType, itemID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "summary cache read failed, falling back to database",
			slog.String("error", err.Error()),
		)
	}

	summary, err := s.reviews.GetSummary(ctx, itemType, itemID)
	if err != nil {
		return nil, fmt.Errorf("get review summary: %w", err)
	}

	if err := s.summaries.Set(ctx, summary); err != nil {
		s.logger.WarnContext(ctx, "summary cache write failed",
			slog.String("error", err.Error()),
		)
	}

	return summary, nil
}

// UpdateReview edits a review's rating, title and content. Only the author
// may edit their review.
func (s *ReviewService) UpdateReview(ctx context.Context, input *UpdateReviewInput) (*domain.Review, error) {
	rating, title, content, err := validateReviewFields(input.Rating, input.Title, input.Content)
	if err != nil {
		return nil, err
	}

	review, err := s.GetReview(ctx, input.ReviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != input.UserID {
		return nil, apperrors.Forbidden("you can only edit your own review")
	}

	review.Rating = rating
	review.Title = title
	review.Content = content
	review.UpdatedAt = time.Now().UTC()

	if err := s.reviews.Update(ctx, review); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", input.ReviewID)
		}
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("user_id", review.UserID),
		slog.Int("rating", review.Rating),
	)

	s.afterMutation(ctx, review, s.events.PublishReviewUpdated)

	return review, nil
}

// DeleteReview removes a review. Only the author may delete their review.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, userID string) error {
	review, err := s.GetReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != userID {
		return apperrors.Forbidden("you can only delete your own review")
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("review", reviewID)
		}
		return fmt.Errorf("delete review: %w", err)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("user_id", userID),
	)

	s.afterMutation(ctx, review, s.events.PublishReviewDeleted)

	return nil
}

// MarkHelpful records a helpful vote on a review. The database, not the
// caller, decides whether the vote is a duplicate; a repeat vote fails
// with CONFLICT and the count stays put. Authors cannot vote on their own
// reviews.
func (s *ReviewService) MarkHelpful(ctx context.Context, reviewID, voterID string) (int, error) {
	review, err := s.GetReview(ctx, reviewID)
	if err != nil {
		return 0, err
	}
	if review.UserID == voterID {
		return 0, apperrors.InvalidInput("you cannot mark your own review as helpful")
	}

	count, err := s.reviews.MarkHelpful(ctx, reviewID, voterID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrConflict):
			return 0, apperrors.Conflict("you have already marked this review as helpful")
		case errors.Is(err, apperrors.ErrNotFound):
			return 0, apperrors.NotFound("review", reviewID)
		}
		return 0, fmt.Errorf("mark helpful: %w", err)
	}

	s.logger.InfoContext(ctx, "review marked helpful",
		slog.String("review_id", reviewID),
		slog.String("voter_id", voterID),
		slog.Int("helpful_count", count),
	)

	if err := s.events.PublishHelpfulVoted(ctx, reviewID, voterID, count); err != nil {
		s.logger.WarnContext(ctx, "failed to publish helpful_voted event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	return count, nil
}

// afterMutation publishes the event and drops the cached summary. Both are
// best effort: the write already committed, so failures are logged and the
// call succeeds.
func (s *ReviewService) afterMutation(ctx context.Context, review *domain.Review, publish func(context.Context, *domain.Review) error) {
	if err := publish(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.summaries.Invalidate(ctx, review.ItemType, review.ItemID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate summary cache",
			slog.String("item_type", review.ItemType.String()),
			slog.Int64("item_id", review.ItemID),
			slog.String("error", err.Error()),
		)
	}
}

// validateReviewFields normalizes and validates the user-editable fields
// shared by create and update.
func validateReviewFields(rating int, title, content string) (int, string, string, error) {
	if rating < 1 || rating > 5 {
		return 0, "", "", apperrors.InvalidInput("rating must be between 1 and 5")
	}

	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > maxTitleLength {
		return 0, "", "", apperrors.InvalidInput(fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	content = strings.TrimSpace(content)
	length := utf8.RuneCountInString(content)
	if length < minContentLength {
		return 0, "", "", apperrors.InvalidInput(fmt.Sprintf("content must be at least %d characters", minContentLength))
	}
	if length > maxContentLength {
		return 0, "", "", apperrors.InvalidInput(fmt.Sprintf("content must be at most %d characters", maxContentLength))
	}

	return rating, title, content, nil
}
