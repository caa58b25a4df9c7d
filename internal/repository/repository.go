package repository

import (
	"context"

	"github.com/khoitriso/review-service/internal/domain"
)

// Sort fields accepted by ReviewFilter.
const (
	SortByCreatedAt    = "createdAt"
	SortByRating       = "rating"
	SortByHelpfulCount = "helpfulCount"
)

// ReviewFilter narrows and orders a review listing.
type ReviewFilter struct {
	ItemType  domain.ItemType
	ItemID    int64
	Rating    *int // exact star match when set
	SortBy    string
	SortOrder string // "asc" or "desc"
	Limit     int
	Offset    int
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new review. Returns ErrAlreadyExists when the user
	// has already reviewed the item.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// GetByUserAndItem retrieves the single review a user wrote for an item.
	GetByUserAndItem(ctx context.Context, userID string, itemType domain.ItemType, itemID int64) (*domain.Review, error)

	// List returns reviews matching the filter plus the total match count.
	List(ctx context.Context, filter ReviewFilter) ([]domain.Review, int, error)

	// Update modifies the rating, title and content of an existing review.
	Update(ctx context.Context, review *domain.Review) error

	// Delete removes a review and its helpful votes.
	Delete(ctx context.Context, id string) error

	// GetSummary computes the aggregate rating statistics for an item.
	GetSummary(ctx context.Context, itemType domain.ItemType, itemID int64) (*domain.ReviewSummary, error)

	// MarkHelpful records a helpful vote and returns the new helpful count.
	// Returns ErrConflict when the user has already voted on the review.
	MarkHelpful(ctx context.Context, reviewID, userID string) (int, error)
}

// EntitlementRepository answers whether a user has acquired an item, which
// drives the verified purchase flag on new reviews.
type EntitlementRepository interface {
	HasEntitlement(ctx context.Context, userID string, itemType domain.ItemType, itemID int64) (bool, error)
}
